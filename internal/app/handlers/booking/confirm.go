package booking

import (
	"context"
	"errors"
	"time"

	"motorent/internal/app/outbox"
	domainbooking "motorent/internal/domain/booking"
	domainuser "motorent/internal/domain/user"
)

// ErrNotAllowed rejects an operation attempted by someone other than the
// booking's participants (or an admin).
var ErrNotAllowed = errors.New("booking: operation not permitted for this user")

// ConfirmHandler moves a booking to completed and schedules the deferred
// host payout.
type ConfirmHandler struct {
	Bookings    domainbooking.Repository
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	PayoutDelay time.Duration
	Now         func() time.Time
}

type ConfirmParams struct {
	BookingID domainbooking.ID
	ActorID   string
	ActorRole domainuser.Role
}

func (h *ConfirmHandler) Handle(ctx context.Context, params ConfirmParams) (*domainbooking.Booking, error) {
	b, err := h.Bookings.ByID(ctx, params.BookingID)
	if err != nil {
		return nil, err
	}
	if params.ActorRole != domainuser.RoleAdmin && params.ActorID != b.HostID {
		return nil, ErrNotAllowed
	}
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now()
	}
	if err := b.Complete(now, h.PayoutDelay); err != nil {
		return nil, err
	}
	if err := h.Bookings.Save(ctx, b); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, &b.EventRecorder); err != nil {
		return nil, err
	}
	return b, nil
}
