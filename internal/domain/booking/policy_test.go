package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"motorent/internal/domain/shared/money"
)

func TestResolveCancellationGuestRules(t *testing.T) {
	total := money.Must(20000, "USD")

	cases := []struct {
		name         string
		sinceBooking time.Duration
		untilPickup  time.Duration
		refund       int64
		hostPayout   int64
		platformFee  int64
	}{
		{
			name:         "booked recently and far from pickup",
			sinceBooking: 2 * time.Hour,
			untilPickup:  100 * time.Hour,
			refund:       20000,
		},
		{
			name:         "between 24 and 48 hours before pickup",
			sinceBooking: 70 * time.Hour,
			untilPickup:  30 * time.Hour,
			refund:       10000,
			hostPayout:   10000,
		},
		{
			name:         "less than 24 hours before pickup",
			sinceBooking: 120 * time.Hour,
			untilPickup:  10 * time.Hour,
			hostPayout:   18000,
			platformFee:  2000,
		},
		{
			name:         "booked long ago but pickup still far",
			sinceBooking: 80 * time.Hour,
			untilPickup:  200 * time.Hour,
			hostPayout:   20000,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := ResolveCancellation(InitiatorGuest, tc.sinceBooking, tc.untilPickup, total)
			assert.Equal(t, tc.refund, out.RefundAmount.Amount, "refund")
			assert.Equal(t, tc.hostPayout, out.HostPayout.Amount, "host payout")
			assert.Equal(t, tc.platformFee, out.PlatformFee.Amount, "platform fee")
			assert.True(t, out.Penalty.IsZero(), "guest cancellations carry no penalty")
		})
	}
}

func TestResolveCancellationBoundaries(t *testing.T) {
	total := money.Must(20000, "USD")

	// Exactly 48 hours before pickup falls into the 50/50 window even when
	// the booking is fresh.
	out := ResolveCancellation(InitiatorGuest, time.Hour, 48*time.Hour, total)
	assert.Equal(t, int64(10000), out.RefundAmount.Amount)
	assert.Equal(t, int64(10000), out.HostPayout.Amount)

	// Exactly 24 hours before pickup still refunds half.
	out = ResolveCancellation(InitiatorGuest, 100*time.Hour, 24*time.Hour, total)
	assert.Equal(t, int64(10000), out.RefundAmount.Amount)

	// Just under 24 hours forfeits the refund.
	out = ResolveCancellation(InitiatorGuest, 100*time.Hour, 23*time.Hour+59*time.Minute, total)
	assert.Equal(t, int64(0), out.RefundAmount.Amount)
	assert.Equal(t, int64(18000), out.HostPayout.Amount)
	assert.Equal(t, int64(2000), out.PlatformFee.Amount)
}

func TestResolveCancellationHostInitiated(t *testing.T) {
	total := money.Must(20000, "USD")
	out := ResolveCancellation(InitiatorHost, time.Hour, time.Hour, total)

	assert.Equal(t, int64(20000), out.RefundAmount.Amount)
	assert.Equal(t, 100, out.RefundPercent)
	assert.Equal(t, int64(2000), out.Penalty.Amount)
	assert.True(t, out.HostPayout.IsZero())
}

func TestResolveCancellationAdmin(t *testing.T) {
	total := money.Must(20000, "USD")
	out := ResolveCancellation(InitiatorAdmin, 500*time.Hour, time.Minute, total)

	assert.Equal(t, int64(20000), out.RefundAmount.Amount)
	assert.True(t, out.Penalty.IsZero())
	assert.True(t, out.HostPayout.IsZero())
}

func TestInitiatorValid(t *testing.T) {
	assert.True(t, InitiatorGuest.Valid())
	assert.True(t, InitiatorHost.Valid())
	assert.True(t, InitiatorAdmin.Valid())
	assert.False(t, Initiator("bot").Valid())
}
