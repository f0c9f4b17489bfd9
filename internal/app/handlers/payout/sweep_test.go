package payout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "motorent/internal/domain/booking"
	"motorent/internal/domain/pricing"
	"motorent/internal/domain/shared/daterange"
	"motorent/internal/domain/shared/money"
	domainuser "motorent/internal/domain/user"
	paymemory "motorent/internal/infra/payments/memory"
	"motorent/internal/infra/storage/memory"
)

var sweepNow = time.Date(2026, time.August, 10, 6, 0, 0, 0, time.UTC)

type sweepFixture struct {
	handler  *SweepHandler
	bookings *memory.BookingRepository
	users    *memory.UserRepository
	gateway  *paymemory.Gateway
	outbox   *memory.Outbox
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	f := &sweepFixture{
		bookings: memory.NewBookingRepository(),
		users:    memory.NewUserRepository(),
		gateway:  paymemory.NewGateway(),
		outbox:   memory.NewOutbox(),
	}
	require.NoError(t, f.users.Save(context.Background(), &domainuser.User{
		ID:                 "host-1",
		Email:              "host@example.com",
		Name:               "Host",
		Role:               domainuser.RoleHost,
		ConnectedAccountID: "acct_1",
		PayoutsEnabled:     true,
	}))
	f.handler = &SweepHandler{
		Bookings: f.bookings,
		Users:    f.users,
		Payments: f.gateway,
		Pricing:  pricing.NewCalculator(pricing.Config{PlatformFeePercent: 10}),
		Outbox:   f.outbox,
		Now:      func() time.Time { return sweepNow },
	}
	return f
}

// seedDueBooking stores a completed booking whose payout became due an hour
// before the sweep runs.
func (f *sweepFixture) seedDueBooking(t *testing.T, id domainbooking.ID) *domainbooking.Booking {
	t.Helper()
	ctx := context.Background()
	total := money.Must(35400, "USD")

	dr, err := daterange.New(sweepNow.Add(-200*time.Hour), sweepNow.Add(-128*time.Hour))
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:              id,
		VehicleID:       "veh-1",
		GuestID:         "guest-1",
		HostID:          "host-1",
		Range:           dr,
		Price:           pricing.Quote{TotalAmount: total},
		PaymentIntentID: "pi_seed",
		CreatedAt:       sweepNow.Add(-210 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, b.Complete(sweepNow.Add(-time.Hour), 0))
	require.NoError(t, f.bookings.Create(ctx, b))
	return b
}

func TestSweepTransfersDuePayout(t *testing.T) {
	f := newSweepFixture(t)
	b := f.seedDueBooking(t, "bk-1")

	stats, err := f.handler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Due: 1, Completed: 1}, stats)

	transfers := f.gateway.Transfers()
	require.Len(t, transfers, 1)
	// 90 percent of 35400 after the 10 percent platform cut.
	assert.Equal(t, int64(31860), transfers[0].Amount.Amount)
	assert.Equal(t, "acct_1", transfers[0].Destination)

	stored, err := f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Payout)
	assert.Equal(t, domainbooking.PayoutCompleted, stored.Payout.Status)
	assert.Equal(t, transfers[0].ID, stored.Payout.TransferID)
	assert.Equal(t, int64(31860), stored.Payout.Amount.Amount)
	assert.Equal(t, int64(3540), stored.Payout.PlatformFee.Amount)

	host, err := f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	assert.Equal(t, int64(31860), host.TotalRevenueCents)
	assert.Equal(t, 1, host.TotalCompletedTrips)

	records := f.outbox.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "booking.payout_succeeded", records[0].Name)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newSweepFixture(t)
	f.seedDueBooking(t, "bk-1")

	_, err := f.handler.Sweep(context.Background())
	require.NoError(t, err)

	stats, err := f.handler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Len(t, f.gateway.Transfers(), 1)
}

func TestSweepFailsPayoutWithoutDestination(t *testing.T) {
	f := newSweepFixture(t)
	b := f.seedDueBooking(t, "bk-1")

	host, err := f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	host.PayoutsEnabled = false
	require.NoError(t, f.users.Save(context.Background(), host))

	stats, err := f.handler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Due: 1, Failed: 1}, stats)
	assert.Empty(t, f.gateway.Transfers())

	stored, err := f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.PayoutFailed, stored.Payout.Status)

	// A failed payout is terminal; later sweeps never pick it up again.
	stats, err = f.handler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	records := f.outbox.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "booking.payout_failed", records[0].Name)
}

func TestSweepDeductsAccruedPenalty(t *testing.T) {
	f := newSweepFixture(t)
	f.seedDueBooking(t, "bk-1")

	host, err := f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	host.AccruePenalty(5000, sweepNow.Add(-24*time.Hour))
	require.NoError(t, f.users.Save(context.Background(), host))

	stats, err := f.handler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Due: 1, Completed: 1}, stats)

	transfers := f.gateway.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, int64(26860), transfers[0].Amount.Amount)

	host, err = f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), host.PendingPenaltyCents)
	assert.Equal(t, int64(26860), host.TotalRevenueCents)
}

func TestSweepTransferFailureIsTerminal(t *testing.T) {
	f := newSweepFixture(t)
	b := f.seedDueBooking(t, "bk-1")
	f.gateway.FailTransfer = true

	stats, err := f.handler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Due: 1, Failed: 1}, stats)

	stored, err := f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.PayoutFailed, stored.Payout.Status)

	f.gateway.FailTransfer = false
	stats, err = f.handler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Empty(t, f.gateway.Transfers())
}
