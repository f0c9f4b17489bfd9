package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainbooking "motorent/internal/domain/booking"
	"motorent/internal/domain/shared/daterange"
	"motorent/internal/domain/shared/events"
	domainvehicle "motorent/internal/domain/vehicle"
)

// BookingRepository stores bookings in memory. The single mutex makes the
// overlap check in Create and the version check in Save atomic, which is the
// whole point; not suitable for production.
type BookingRepository struct {
	mu   sync.RWMutex
	byID map[domainbooking.ID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{byID: make(map[domainbooking.ID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.byID[id]; ok {
		return cloneBooking(b), nil
	}
	return nil, domainbooking.ErrNotFound
}

func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.VehicleID != b.VehicleID || existing.Status.Terminal() {
			continue
		}
		if existing.Range.Overlaps(b.Range) {
			return &domainbooking.ConflictError{VehicleID: b.VehicleID, Busy: existing.Range}
		}
	}
	stored := cloneBooking(b)
	stored.Version = 1
	r.byID[b.ID] = stored
	b.Version = stored.Version
	return nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[b.ID]
	if !ok {
		return domainbooking.ErrNotFound
	}
	if existing.Version != b.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	stored := cloneBooking(b)
	stored.Version = b.Version + 1
	r.byID[b.ID] = stored
	b.Version = stored.Version
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.GuestID == guestID }), nil
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.HostID == hostID }), nil
}

func (r *BookingRepository) FindOverlapping(ctx context.Context, vehicleID domainvehicle.ID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool {
		return b.VehicleID == vehicleID && !b.Status.Terminal() && b.Range.Overlaps(dr)
	}), nil
}

func (r *BookingRepository) DuePayouts(ctx context.Context, now time.Time) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool {
		return b.Status == domainbooking.StatusCompleted &&
			b.Payout != nil &&
			b.Payout.Status == domainbooking.PayoutPending &&
			!b.Payout.ScheduledAt.After(now)
	}), nil
}

func (r *BookingRepository) list(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.byID {
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	if b == nil {
		return nil
	}
	clone := *b
	clone.EventRecorder = events.EventRecorder{}
	if b.Cancellation != nil {
		rec := *b.Cancellation
		clone.Cancellation = &rec
	}
	if b.Payout != nil {
		rec := *b.Payout
		clone.Payout = &rec
	}
	return &clone
}
