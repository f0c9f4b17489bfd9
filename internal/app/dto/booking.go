package dto

import (
	"time"

	domainbooking "motorent/internal/domain/booking"
	domainpricing "motorent/internal/domain/pricing"
)

type BookingResponse struct {
	ID              string               `json:"id"`
	VehicleID       string               `json:"vehicle_id"`
	GuestID         string               `json:"guest_id"`
	HostID          string               `json:"host_id"`
	Pickup          time.Time            `json:"pickup"`
	Dropoff         time.Time            `json:"dropoff"`
	Price           domainpricing.Quote  `json:"price"`
	PaymentStatus   string               `json:"payment_status"`
	Status          string               `json:"status"`
	Cancellation    *CancellationDetails `json:"cancellation,omitempty"`
	Payout          *PayoutDetails       `json:"payout,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	PaymentIntentID string               `json:"payment_intent_id,omitempty"`
}

type CancellationDetails struct {
	By               string    `json:"by"`
	At               time.Time `json:"at"`
	Reason           string    `json:"reason,omitempty"`
	RefundCents      int64     `json:"refund_cents"`
	RefundPercent    int       `json:"refund_percent"`
	HostPayoutCents  int64     `json:"host_payout_cents"`
	PlatformFeeCents int64     `json:"platform_fee_cents"`
	TransferID       string    `json:"transfer_id,omitempty"`
}

type PayoutDetails struct {
	Status      string     `json:"status"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	TransferID  string     `json:"transfer_id,omitempty"`
	AmountCents int64      `json:"amount_cents,omitempty"`
}

func NewBookingResponse(b *domainbooking.Booking) BookingResponse {
	resp := BookingResponse{
		ID:              string(b.ID),
		VehicleID:       string(b.VehicleID),
		GuestID:         b.GuestID,
		HostID:          b.HostID,
		Pickup:          b.Range.Pickup,
		Dropoff:         b.Range.Dropoff,
		Price:           b.Price,
		PaymentStatus:   string(b.PaymentStatus),
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
		PaymentIntentID: b.PaymentIntentID,
	}
	if c := b.Cancellation; c != nil {
		resp.Cancellation = &CancellationDetails{
			By:               string(c.By),
			At:               c.At,
			Reason:           c.Reason,
			RefundCents:      c.RefundAmount.Amount,
			RefundPercent:    c.RefundPercent,
			HostPayoutCents:  c.HostPayout.Amount,
			PlatformFeeCents: c.PlatformFee.Amount,
			TransferID:       c.PayoutTransferID,
		}
	}
	if p := b.Payout; p != nil {
		resp.Payout = &PayoutDetails{
			Status:      string(p.Status),
			ScheduledAt: p.ScheduledAt,
			TransferID:  p.TransferID,
			AmountCents: p.Amount.Amount,
		}
		if !p.ProcessedAt.IsZero() {
			at := p.ProcessedAt
			resp.Payout.ProcessedAt = &at
		}
	}
	return resp
}

func NewBookingList(bookings []*domainbooking.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, NewBookingResponse(b))
	}
	return out
}
