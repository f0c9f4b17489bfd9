package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"motorent/internal/app/outbox"
	"motorent/internal/app/policies"
	domainbooking "motorent/internal/domain/booking"
	domainuser "motorent/internal/domain/user"
)

var ErrInvalidInitiator = errors.New("booking: cancellation initiator must be user, host or admin")

// CancelHandler orchestrates a cancellation: policy resolution, gateway
// refund, state transition, host bookkeeping and the optional host transfer.
// The refund is executed before any mutation so that a gateway failure
// leaves the booking untouched; a failed host transfer is logged but never
// rolls the cancellation back.
type CancelHandler struct {
	Bookings domainbooking.Repository
	Users    domainuser.Repository
	Payments policies.PaymentsPort
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
	Now      func() time.Time
}

type CancelParams struct {
	BookingID domainbooking.ID
	ActorID   string
	ActorRole domainuser.Role
	Initiator domainbooking.Initiator
	Reason    string
}

type CancelResult struct {
	Booking *domainbooking.Booking
	Outcome domainbooking.Outcome
	// TransferID is set when a host payout transfer was executed as part of
	// the cancellation.
	TransferID string
}

func (h *CancelHandler) Handle(ctx context.Context, params CancelParams) (CancelResult, error) {
	if !params.Initiator.Valid() {
		return CancelResult{}, ErrInvalidInitiator
	}

	b, err := h.Bookings.ByID(ctx, params.BookingID)
	if err != nil {
		return CancelResult{}, err
	}
	if err := h.authorize(params, b); err != nil {
		return CancelResult{}, err
	}
	if b.Status != domainbooking.StatusInProgress {
		return CancelResult{}, &domainbooking.StateError{Op: "cancel", Current: b.Status}
	}

	now := h.now()
	outcome := domainbooking.ResolveCancellation(
		params.Initiator,
		now.Sub(b.CreatedAt),
		b.Range.Pickup.Sub(now),
		b.Price.TotalAmount,
	)

	// Guest-refund integrity first: a refund failure aborts the whole
	// cancellation with the booking unmodified.
	if outcome.RefundAmount.IsPositive() {
		if _, err := h.Payments.Refund(ctx, b.PaymentIntentID, outcome.RefundAmount); err != nil {
			return CancelResult{}, err
		}
	}

	if err := b.Cancel(outcome, params.Initiator, params.Reason, now); err != nil {
		return CancelResult{}, err
	}
	if err := h.Bookings.Save(ctx, b); err != nil {
		if h.Logger != nil {
			h.Logger.Error("cancellation not persisted after refund, manual reconciliation required",
				"booking_id", b.ID, "refund", outcome.RefundAmount.String(), "error", err)
		}
		return CancelResult{}, err
	}

	result := CancelResult{Booking: b, Outcome: outcome}
	h.settleHost(ctx, b, outcome, params.Initiator, now, &result)

	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, &b.EventRecorder); err != nil {
		return CancelResult{}, err
	}
	return result, nil
}

func (h *CancelHandler) authorize(params CancelParams, b *domainbooking.Booking) error {
	switch params.Initiator {
	case domainbooking.InitiatorGuest:
		if params.ActorID != b.GuestID {
			return ErrNotAllowed
		}
	case domainbooking.InitiatorHost:
		if params.ActorID != b.HostID {
			return ErrNotAllowed
		}
	case domainbooking.InitiatorAdmin:
		if params.ActorRole != domainuser.RoleAdmin {
			return ErrNotAllowed
		}
	}
	return nil
}

// settleHost applies penalty accrual and the optional cancellation payout.
// Everything here is best-effort: the cancellation is already durable.
func (h *CancelHandler) settleHost(ctx context.Context, b *domainbooking.Booking, outcome domainbooking.Outcome, by domainbooking.Initiator, now time.Time, result *CancelResult) {
	host, err := h.Users.ByID(ctx, domainuser.ID(b.HostID))
	if err != nil {
		h.logWarn("host lookup failed during cancellation", "booking_id", b.ID, "host_id", b.HostID, "error", err)
		return
	}

	if by == domainbooking.InitiatorHost {
		host.AccruePenalty(outcome.Penalty.Amount, now)
		host.RecordCancellation(now)
		if err := h.Users.Save(ctx, host); err != nil {
			h.logWarn("host penalty not recorded", "booking_id", b.ID, "host_id", host.ID, "error", err)
		}
	}

	if !outcome.HostPayout.IsPositive() {
		return
	}
	if !host.CanReceivePayouts() {
		h.logWarn("host payout skipped, no usable payout destination", "booking_id", b.ID, "host_id", host.ID)
		return
	}
	transfer, err := h.Payments.Transfer(ctx, policies.TransferParams{
		Amount:      outcome.HostPayout,
		Destination: host.ConnectedAccountID,
		Description: fmt.Sprintf("cancellation payout for booking %s", b.ID),
		Metadata: map[string]string{
			"booking_id": string(b.ID),
			"host_id":    string(host.ID),
		},
	})
	if err != nil {
		// Operational follow-up, not a booking-state failure.
		h.logWarn("host payout transfer failed during cancellation", "booking_id", b.ID, "host_id", host.ID, "error", err)
		return
	}
	result.TransferID = transfer.ID
	b.Cancellation.PayoutTransferID = transfer.ID
	if err := h.Bookings.Save(ctx, b); err != nil {
		h.logWarn("cancellation transfer reference not persisted", "booking_id", b.ID, "transfer_id", transfer.ID, "error", err)
	}
	host.CreditRevenue(outcome.HostPayout.Amount, now)
	if err := h.Users.Save(ctx, host); err != nil {
		h.logWarn("host revenue not updated after cancellation payout", "booking_id", b.ID, "host_id", host.ID, "error", err)
	}
}

func (h *CancelHandler) logWarn(msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Warn(msg, args...)
	}
}

func (h *CancelHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}
