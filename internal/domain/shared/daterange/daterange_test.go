package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(day int, hour int) time.Time {
	return time.Date(2026, time.March, day, hour, 0, 0, 0, time.UTC)
}

func TestNewValidatesOrdering(t *testing.T) {
	_, err := New(date(5, 0), date(3, 0))
	assert.ErrorIs(t, err, ErrInvertedRange)

	_, err = New(date(5, 0), date(5, 0))
	assert.ErrorIs(t, err, ErrInvertedRange)

	_, err = New(time.Time{}, date(5, 0))
	assert.ErrorIs(t, err, ErrEmptyRange)
}

func TestDaysRoundsPartialDaysUp(t *testing.T) {
	full, err := New(date(1, 0), date(4, 0))
	require.NoError(t, err)
	assert.Equal(t, 3, full.Days())

	partial, err := New(date(1, 0), date(4, 6))
	require.NoError(t, err)
	assert.Equal(t, 4, partial.Days())

	short, err := New(date(1, 10), date(1, 12))
	require.NoError(t, err)
	assert.Equal(t, 1, short.Days())
}

func TestOverlaps(t *testing.T) {
	base, err := New(date(10, 0), date(13, 0))
	require.NoError(t, err)

	cases := []struct {
		name    string
		pickup  time.Time
		dropoff time.Time
		want    bool
	}{
		{"starts inside", date(12, 0), date(15, 0), true},
		{"ends inside", date(8, 0), date(11, 0), true},
		{"fully contains", date(9, 0), date(14, 0), true},
		{"fully contained", date(11, 0), date(12, 0), true},
		{"before", date(5, 0), date(8, 0), false},
		{"after", date(14, 0), date(16, 0), false},
		{"back to back before", date(7, 0), date(10, 0), false},
		{"back to back after", date(13, 0), date(16, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			other, err := New(tc.pickup, tc.dropoff)
			require.NoError(t, err)
			assert.Equal(t, tc.want, base.Overlaps(other))
			assert.Equal(t, tc.want, other.Overlaps(base))
		})
	}
}
