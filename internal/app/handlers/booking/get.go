package booking

import (
	"context"

	domainbooking "motorent/internal/domain/booking"
	domainuser "motorent/internal/domain/user"
)

// QueryHandler serves plain reads used by the transport layer.
type QueryHandler struct {
	Bookings domainbooking.Repository
}

func (h *QueryHandler) ByID(ctx context.Context, id domainbooking.ID, actorID string, role domainuser.Role) (*domainbooking.Booking, error) {
	b, err := h.Bookings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != domainuser.RoleAdmin && actorID != b.GuestID && actorID != b.HostID {
		return nil, ErrNotAllowed
	}
	return b, nil
}

func (h *QueryHandler) ListForGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return h.Bookings.ListByGuest(ctx, guestID)
}

func (h *QueryHandler) ListForHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return h.Bookings.ListByHost(ctx, hostID)
}
