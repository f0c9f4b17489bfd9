package booking

import (
	"time"

	"motorent/internal/domain/shared/money"
)

// Initiator identifies who asked for the cancellation. The guest role is
// stored as "user" on the wire for compatibility with existing clients.
type Initiator string

const (
	InitiatorGuest Initiator = "user"
	InitiatorHost  Initiator = "host"
	InitiatorAdmin Initiator = "admin"
)

func (i Initiator) Valid() bool {
	switch i {
	case InitiatorGuest, InitiatorHost, InitiatorAdmin:
		return true
	}
	return false
}

const (
	lateCancelHostPercent     = 90
	lateCancelPlatformPercent = 10
	splitCancelPercent        = 50
	hostCancelPenaltyPercent  = 10
)

// Outcome is the money split a cancellation produces. Penalty is nonzero only
// for host-initiated cancellations and is accrued against the host's future
// payouts rather than charged immediately.
type Outcome struct {
	RefundAmount  money.Money
	RefundPercent int
	HostPayout    money.Money
	PlatformFee   money.Money
	Penalty       money.Money
	Message       string
}

// ResolveCancellation is the pure policy function. Rules for guest-initiated
// cancellations are evaluated in order; boundary convention:
// rule 1 takes sinceBooking <= 24h and untilPickup > 48h,
// rule 2 takes 24h <= untilPickup <= 48h,
// rule 3 takes untilPickup < 24h.
func ResolveCancellation(by Initiator, sinceBooking, untilPickup time.Duration, total money.Money) Outcome {
	zero := money.Zero(total.Currency)
	out := Outcome{RefundAmount: zero, HostPayout: zero, PlatformFee: zero, Penalty: zero}

	switch by {
	case InitiatorHost:
		out.RefundAmount = total
		out.RefundPercent = 100
		out.Penalty = total.Percent(hostCancelPenaltyPercent)
		out.Message = "host canceled, full refund to guest"
		return out
	case InitiatorAdmin:
		out.RefundAmount = total
		out.RefundPercent = 100
		out.Message = "administrative cancellation, full refund"
		return out
	}

	sinceHours := sinceBooking.Hours()
	untilHours := untilPickup.Hours()
	switch {
	case sinceHours <= 24 && untilHours > 48:
		out.RefundAmount = total
		out.RefundPercent = 100
		out.Message = "free cancellation within 24 hours of booking"
	case untilHours >= 24 && untilHours <= 48:
		out.RefundAmount = total.Percent(splitCancelPercent)
		out.RefundPercent = splitCancelPercent
		out.HostPayout = total.Percent(splitCancelPercent)
		out.Message = "cancellation between 48 and 24 hours before pickup"
	case untilHours < 24:
		out.HostPayout = total.Percent(lateCancelHostPercent)
		out.PlatformFee = total.Percent(lateCancelPlatformPercent)
		out.Message = "cancellation within 24 hours of pickup"
	default:
		out.HostPayout = total
		out.Message = "late cancellation, payout released to host"
	}
	return out
}
