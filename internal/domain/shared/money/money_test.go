package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmptyCurrency(t *testing.T) {
	_, err := New(100, "")
	assert.Error(t, err)
}

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	usd := Must(100, "USD")
	eur := Must(100, "EUR")
	_, err := usd.Add(eur)
	assert.Error(t, err)
}

func TestAddAndSub(t *testing.T) {
	a := Must(150, "USD")
	b := Must(50, "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(200), sum.Amount)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, int64(100), diff.Amount)
}

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount  int64
		percent int
		want    int64
	}{
		{30000, 10, 3000},
		{100, 50, 50},
		// 2.5 rounds up, 2.4 rounds down, 329.67 rounds up.
		{25, 10, 3},
		{24, 10, 2},
		{999, 33, 330},
	}
	for _, tc := range cases {
		got := Must(tc.amount, "USD").Percent(tc.percent)
		assert.Equal(t, tc.want, got.Amount, "%d%% of %d", tc.percent, tc.amount)
	}
}

func TestBasisPointsRoundsHalfUp(t *testing.T) {
	// 2.9% of 30000 is exactly 870.
	got := Must(30000, "USD").BasisPoints(290)
	assert.Equal(t, int64(870), got.Amount)

	// 2.9% of 10000 is exactly 290.
	got = Must(10000, "USD").BasisPoints(290)
	assert.Equal(t, int64(290), got.Amount)

	// 2.9% of 101 is 2.929, rounds to 3.
	got = Must(101, "USD").BasisPoints(290)
	assert.Equal(t, int64(3), got.Amount)
}

func TestString(t *testing.T) {
	assert.Equal(t, "354.00 USD", Must(35400, "USD").String())
	assert.Equal(t, "0.05 EUR", Must(5, "EUR").String())
}
