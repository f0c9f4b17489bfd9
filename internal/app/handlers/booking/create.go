package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"motorent/internal/app/outbox"
	"motorent/internal/app/policies"
	domainbooking "motorent/internal/domain/booking"
	"motorent/internal/domain/pricing"
	"motorent/internal/domain/shared/daterange"
	"motorent/internal/domain/shared/money"
	domainvehicle "motorent/internal/domain/vehicle"
)

// CreateHandler runs the booking-creation flow: availability, pricing,
// capture, persist. Capture and persistence form one logical transaction:
// when the insert fails after the charge went through, the capture is
// reversed before the error surfaces.
type CreateHandler struct {
	Bookings domainbooking.Repository
	Vehicles domainvehicle.Repository
	Payments policies.PaymentsPort
	Pricing  pricing.Calculator
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Currency string
	Logger   *slog.Logger
	Now      func() time.Time
}

type CreateParams struct {
	GuestID       string
	VehicleID     string
	Pickup        time.Time
	Dropoff       time.Time
	PaymentMethod string
}

func (h *CreateHandler) Handle(ctx context.Context, params CreateParams) (*domainbooking.Booking, error) {
	now := h.now()
	dr, err := daterange.New(params.Pickup, params.Dropoff)
	if err != nil {
		return nil, err
	}
	if err := domainbooking.ValidatePickup(dr, now); err != nil {
		return nil, err
	}
	if params.PaymentMethod == "" {
		return nil, errors.New("booking: payment method required")
	}

	veh, err := h.Vehicles.ByID(ctx, domainvehicle.ID(params.VehicleID))
	if err != nil {
		return nil, err
	}
	if !veh.Bookable() {
		return nil, domainvehicle.ErrInactive
	}

	conflicts, err := h.Bookings.FindOverlapping(ctx, veh.ID, dr)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &domainbooking.ConflictError{VehicleID: veh.ID, Busy: conflicts[0].Range}
	}

	rate, err := money.New(veh.DailyRateCents, h.currency())
	if err != nil {
		return nil, err
	}
	quote, err := h.Pricing.Quote(rate, dr)
	if err != nil {
		return nil, err
	}

	bookingID := domainbooking.ID(uuid.NewString())
	capture, err := h.Payments.Capture(ctx, policies.CaptureParams{
		Amount:        quote.TotalAmount,
		PaymentMethod: params.PaymentMethod,
		Description:   fmt.Sprintf("booking %s for vehicle %s", bookingID, veh.ID),
		Metadata: map[string]string{
			"booking_id": string(bookingID),
			"vehicle_id": string(veh.ID),
			"guest_id":   params.GuestID,
		},
	})
	if err != nil {
		return nil, err
	}

	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:              bookingID,
		VehicleID:       veh.ID,
		GuestID:         params.GuestID,
		HostID:          veh.HostID,
		Range:           dr,
		Price:           quote,
		PaymentIntentID: capture.IntentID,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, h.compensate(ctx, capture.IntentID, quote.TotalAmount, err)
	}

	if err := h.Bookings.Create(ctx, b); err != nil {
		return nil, h.compensate(ctx, capture.IntentID, quote.TotalAmount, err)
	}

	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, &b.EventRecorder); err != nil {
		return nil, err
	}
	return b, nil
}

// compensate reverses a capture whose booking never made it to storage.
func (h *CreateHandler) compensate(ctx context.Context, intentID string, amount money.Money, cause error) error {
	if _, refundErr := h.Payments.Refund(ctx, intentID, amount); refundErr != nil {
		if h.Logger != nil {
			h.Logger.Error("compensating refund failed, manual reconciliation required",
				"payment_intent", intentID, "amount", amount.String(), "error", refundErr)
		}
		return errors.Join(cause, refundErr)
	}
	return cause
}

func (h *CreateHandler) currency() string {
	if h.Currency == "" {
		return "USD"
	}
	return h.Currency
}

func (h *CreateHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}
