package booking

import (
	"time"

	"motorent/internal/domain/shared/daterange"
	"motorent/internal/domain/shared/money"
	"motorent/internal/domain/vehicle"
)

type Created struct {
	BookingID ID
	VehicleID vehicle.ID
	GuestID   string
	HostID    string
	Range     daterange.DateRange
	Total     money.Money
	At        time.Time
}

func (e Created) EventName() string     { return "booking.created" }
func (e Created) AggregateID() string   { return string(e.BookingID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Completed struct {
	BookingID         ID
	PayoutScheduledAt time.Time
	At                time.Time
}

func (e Completed) EventName() string     { return "booking.completed" }
func (e Completed) AggregateID() string   { return string(e.BookingID) }
func (e Completed) OccurredAt() time.Time { return e.At }

type Canceled struct {
	BookingID  ID
	By         Initiator
	Refund     money.Money
	HostPayout money.Money
	At         time.Time
}

func (e Canceled) EventName() string     { return "booking.canceled" }
func (e Canceled) AggregateID() string   { return string(e.BookingID) }
func (e Canceled) OccurredAt() time.Time { return e.At }

type PayoutSucceeded struct {
	BookingID  ID
	HostID     string
	TransferID string
	Amount     money.Money
	At         time.Time
}

func (e PayoutSucceeded) EventName() string     { return "booking.payout_succeeded" }
func (e PayoutSucceeded) AggregateID() string   { return string(e.BookingID) }
func (e PayoutSucceeded) OccurredAt() time.Time { return e.At }

type PayoutAborted struct {
	BookingID ID
	HostID    string
	Reason    string
	At        time.Time
}

func (e PayoutAborted) EventName() string     { return "booking.payout_failed" }
func (e PayoutAborted) AggregateID() string   { return string(e.BookingID) }
func (e PayoutAborted) OccurredAt() time.Time { return e.At }
