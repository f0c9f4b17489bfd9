package memory

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
)

func storedBooking(t *testing.T, id domainbooking.ID, pickup, dropoff time.Time) *domainbooking.Booking {
	t.Helper()
	dr, err := daterange.New(pickup, dropoff)
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:              id,
		VehicleID:       "veh-1",
		GuestID:         "guest-1",
		HostID:          "host-1",
		Range:           dr,
		Price:           pricing.Quote{TotalAmount: money.Must(35400, "USD")},
		PaymentIntentID: "pi_" + string(id),
		CreatedAt:       pickup.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	return b
}

func day(d int) time.Time {
	return time.Date(2026, time.September, d, 10, 0, 0, 0, time.UTC)
}

func TestCreateRejectsOverlappingBooking(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, storedBooking(t, "bk-1", day(10), day(13))))

	err := repo.Create(ctx, storedBooking(t, "bk-2", day(12), day(15)))
	var conflict *domainbooking.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, day(10), conflict.Busy.Pickup)

	// Back to back is not an overlap.
	require.NoError(t, repo.Create(ctx, storedBooking(t, "bk-3", day(13), day(15))))
}

func TestCreateIgnoresTerminalBookings(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()

	b := storedBooking(t, "bk-1", day(10), day(13))
	require.NoError(t, repo.Create(ctx, b))
	outcome := domainbooking.ResolveCancellation(domainbooking.InitiatorAdmin, 0, 0, b.Price.TotalAmount)
	require.NoError(t, b.Cancel(outcome, domainbooking.InitiatorAdmin, "", day(9)))
	require.NoError(t, repo.Save(ctx, b))

	// The canceled booking no longer blocks the slot.
	require.NoError(t, repo.Create(ctx, storedBooking(t, "bk-2", day(10), day(13))))
}

func TestSaveDetectsConcurrentUpdate(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, storedBooking(t, "bk-1", day(10), day(13))))

	first, err := repo.ByID(ctx, "bk-1")
	require.NoError(t, err)
	second, err := repo.ByID(ctx, "bk-1")
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, first))
	assert.ErrorIs(t, repo.Save(ctx, second), domainbooking.ErrConcurrentUpdate)
}

func TestDuePayoutsFiltersByStatusAndSchedule(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()
	now := day(20)

	due := storedBooking(t, "bk-due", day(1), day(3))
	require.NoError(t, due.Complete(day(3), 0))
	require.NoError(t, repo.Create(ctx, due))

	notYet := storedBooking(t, "bk-later", day(4), day(6))
	require.NoError(t, notYet.Complete(day(6), 30*24*time.Hour))
	require.NoError(t, repo.Create(ctx, notYet))

	running := storedBooking(t, "bk-running", day(18), day(25))
	require.NoError(t, repo.Create(ctx, running))

	list, err := repo.DuePayouts(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domainbooking.ID("bk-due"), list[0].ID)
}

func TestFindOverlapping(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, storedBooking(t, "bk-1", day(10), day(13))))

	dr, err := daterange.New(day(12), day(14))
	require.NoError(t, err)
	list, err := repo.FindOverlapping(ctx, "veh-1", dr)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	free, err := daterange.New(day(13), day(14))
	require.NoError(t, err)
	list, err = repo.FindOverlapping(ctx, "veh-1", free)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = repo.FindOverlapping(ctx, "veh-2", dr)
	require.NoError(t, err)
	assert.Empty(t, list)
}
