package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"motorent/internal/domain/pricing"
	"motorent/internal/domain/shared/daterange"
	"motorent/internal/domain/shared/events"
	"motorent/internal/domain/shared/money"
	"motorent/internal/domain/vehicle"
)

var (
	ErrNotFound          = errors.New("booking: not found")
	ErrPickupInPast      = errors.New("booking: pickup date is in the past")
	ErrPaymentNotSettled = errors.New("booking: payment must be captured before completion")
	ErrPayoutNotPending  = errors.New("booking: payout is not pending")
	ErrPayoutNotClaimed  = errors.New("booking: payout has not been claimed")
	// ErrConcurrentUpdate is returned by repositories when the optimistic
	// version check fails on Save.
	ErrConcurrentUpdate = errors.New("booking: concurrent update detected")
)

type ID string

type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// Terminal reports whether no further lifecycle transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentSucceeded         PaymentStatus = "succeeded"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// StateError rejects an illegal lifecycle transition and carries the current
// status so callers can echo it back.
type StateError struct {
	Op      string
	Current Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("booking: cannot %s a booking with status %q", e.Op, e.Current)
}

// ConflictError names the already-booked interval that blocks a new booking.
type ConflictError struct {
	VehicleID vehicle.ID
	Busy      daterange.DateRange
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking: vehicle %s is already booked for %s", e.VehicleID, e.Busy)
}

// CancellationRecord exists only on canceled bookings.
type CancellationRecord struct {
	By                Initiator
	At                time.Time
	Reason            string
	RefundAmount      money.Money
	RefundPercent     int
	HostPayout        money.Money
	PlatformFee       money.Money
	RefundProcessedAt time.Time
	PayoutTransferID  string
}

// PayoutRecord exists only on completed bookings.
type PayoutRecord struct {
	Status      PayoutStatus
	ScheduledAt time.Time
	ProcessedAt time.Time
	TransferID  string
	Amount      money.Money
	PlatformFee money.Money
}

// Booking is the central financial record. It is never deleted; once a
// terminal status is reached only payout bookkeeping may still change.
type Booking struct {
	ID              ID
	VehicleID       vehicle.ID
	GuestID         string
	HostID          string
	Range           daterange.DateRange
	Price           pricing.Quote
	PaymentIntentID string
	PaymentStatus   PaymentStatus
	Status          Status
	Cancellation    *CancellationRecord
	Payout          *PayoutRecord
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Booking, error)
	// Create persists a new booking and enforces the no-overlap guarantee
	// at write time, returning *ConflictError when the slot is taken.
	Create(ctx context.Context, b *Booking) error
	// Save applies an optimistic version check and returns
	// ErrConcurrentUpdate when another writer got there first.
	Save(ctx context.Context, b *Booking) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]*Booking, error)
	// FindOverlapping returns non-terminal bookings of the vehicle whose
	// interval intersects dr.
	FindOverlapping(ctx context.Context, vehicleID vehicle.ID, dr daterange.DateRange) ([]*Booking, error)
	// DuePayouts returns completed bookings with a pending payout whose
	// scheduled date has passed.
	DuePayouts(ctx context.Context, now time.Time) ([]*Booking, error)
}

type CreateParams struct {
	ID              ID
	VehicleID       vehicle.ID
	GuestID         string
	HostID          string
	Range           daterange.DateRange
	Price           pricing.Quote
	PaymentIntentID string
	CreatedAt       time.Time
}

// ValidatePickup rejects ranges that start before the given instant. Split
// from daterange.New because only creation cares; cancellations of running
// bookings legitimately reference past pickups.
func ValidatePickup(dr daterange.DateRange, now time.Time) error {
	if dr.Pickup.Before(now.UTC()) {
		return ErrPickupInPast
	}
	return nil
}

// NewBooking builds an in-progress booking after a successful capture.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.GuestID == "" {
		return nil, errors.New("booking: guest id required")
	}
	if params.HostID == "" {
		return nil, errors.New("booking: host id required")
	}
	if params.VehicleID == "" {
		return nil, errors.New("booking: vehicle id required")
	}
	if params.PaymentIntentID == "" {
		return nil, errors.New("booking: payment intent id required")
	}
	if !params.Price.TotalAmount.IsPositive() {
		return nil, errors.New("booking: total must be positive")
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:              params.ID,
		VehicleID:       params.VehicleID,
		GuestID:         params.GuestID,
		HostID:          params.HostID,
		Range:           params.Range,
		Price:           params.Price,
		PaymentIntentID: params.PaymentIntentID,
		PaymentStatus:   PaymentSucceeded,
		Status:          StatusInProgress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(Created{
		BookingID: b.ID,
		VehicleID: b.VehicleID,
		GuestID:   b.GuestID,
		HostID:    b.HostID,
		Range:     b.Range,
		Total:     b.Price.TotalAmount,
		At:        now,
	})
	return b, nil
}

// Complete confirms the booking and schedules the deferred host payout.
func (b *Booking) Complete(now time.Time, payoutDelay time.Duration) error {
	if b.Status != StatusInProgress {
		return &StateError{Op: "confirm", Current: b.Status}
	}
	if b.PaymentStatus != PaymentSucceeded {
		return ErrPaymentNotSettled
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Payout = &PayoutRecord{
		Status:      PayoutPending,
		ScheduledAt: now.UTC().Add(payoutDelay),
	}
	b.Record(Completed{BookingID: b.ID, PayoutScheduledAt: b.Payout.ScheduledAt, At: b.UpdatedAt})
	return nil
}

// Cancel applies a resolved cancellation outcome. The caller must have
// executed the refund already; this method only mutates state.
func (b *Booking) Cancel(outcome Outcome, by Initiator, reason string, now time.Time) error {
	if b.Status != StatusInProgress {
		return &StateError{Op: "cancel", Current: b.Status}
	}
	at := now.UTC()
	b.Status = StatusCanceled
	b.UpdatedAt = at
	b.Cancellation = &CancellationRecord{
		By:            by,
		At:            at,
		Reason:        reason,
		RefundAmount:  outcome.RefundAmount,
		RefundPercent: outcome.RefundPercent,
		HostPayout:    outcome.HostPayout,
		PlatformFee:   outcome.PlatformFee,
	}
	if reason == "" {
		b.Cancellation.Reason = outcome.Message
	}
	switch {
	case outcome.RefundAmount.Equal(b.Price.TotalAmount):
		b.PaymentStatus = PaymentRefunded
		b.Cancellation.RefundProcessedAt = at
	case outcome.RefundAmount.IsPositive():
		b.PaymentStatus = PaymentPartiallyRefunded
		b.Cancellation.RefundProcessedAt = at
	}
	b.Record(Canceled{
		BookingID:  b.ID,
		By:         by,
		Refund:     outcome.RefundAmount,
		HostPayout: outcome.HostPayout,
		At:         at,
	})
	return nil
}

// ClaimPayout moves the payout from pending to processing. Persisting the
// claim through the versioned Save is what makes the sweep race-free.
func (b *Booking) ClaimPayout(now time.Time) error {
	if b.Status != StatusCompleted || b.Payout == nil {
		return &StateError{Op: "pay out", Current: b.Status}
	}
	if b.Payout.Status != PayoutPending {
		return ErrPayoutNotPending
	}
	b.Payout.Status = PayoutProcessing
	b.UpdatedAt = now.UTC()
	return nil
}

// CompletePayout records a successful transfer.
func (b *Booking) CompletePayout(transferID string, amount, platformFee money.Money, now time.Time) error {
	if b.Payout == nil || b.Payout.Status != PayoutProcessing {
		return ErrPayoutNotClaimed
	}
	at := now.UTC()
	b.Payout.Status = PayoutCompleted
	b.Payout.ProcessedAt = at
	b.Payout.TransferID = transferID
	b.Payout.Amount = amount
	b.Payout.PlatformFee = platformFee
	b.UpdatedAt = at
	b.Record(PayoutSucceeded{BookingID: b.ID, HostID: b.HostID, TransferID: transferID, Amount: amount, At: at})
	return nil
}

// FailPayout marks the payout failed and leaves it for manual reconciliation.
func (b *Booking) FailPayout(reason string, now time.Time) error {
	if b.Payout == nil || b.Payout.Status != PayoutProcessing {
		return ErrPayoutNotClaimed
	}
	b.Payout.Status = PayoutFailed
	b.UpdatedAt = now.UTC()
	b.Record(PayoutAborted{BookingID: b.ID, HostID: b.HostID, Reason: reason, At: b.UpdatedAt})
	return nil
}
