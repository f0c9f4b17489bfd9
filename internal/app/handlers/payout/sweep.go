package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"motorent/internal/app/outbox"
	"motorent/internal/app/policies"
	domainbooking "motorent/internal/domain/booking"
	"motorent/internal/domain/pricing"
	"motorent/internal/domain/shared/money"
	domainuser "motorent/internal/domain/user"
)

// SweepHandler transfers due host payouts exactly once. Each booking is
// claimed (pending -> processing) through the versioned Save before any
// gateway call, so overlapping sweep runs cannot double-pay. A booking left
// at processing by a crashed run is deliberately never picked up again; the
// transfer may have gone through and only manual reconciliation can tell.
type SweepHandler struct {
	Bookings domainbooking.Repository
	Users    domainuser.Repository
	Payments policies.PaymentsPort
	Pricing  pricing.Calculator
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
	Now      func() time.Time
}

type Stats struct {
	Due       int
	Completed int
	Failed    int
	Skipped   int
}

// Run adapts Sweep to the schedule.Job signature.
func (h *SweepHandler) Run(ctx context.Context) error {
	stats, err := h.Sweep(ctx)
	if err != nil {
		return err
	}
	if stats.Due > 0 && h.Logger != nil {
		h.Logger.Info("payout sweep finished",
			"due", stats.Due, "completed", stats.Completed, "failed", stats.Failed, "skipped", stats.Skipped)
	}
	return nil
}

func (h *SweepHandler) Sweep(ctx context.Context) (Stats, error) {
	now := h.now()
	due, err := h.Bookings.DuePayouts(ctx, now)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Due: len(due)}
	for _, b := range due {
		// Per-item failures are isolated; the sweep keeps going.
		switch h.process(ctx, b, now) {
		case outcomeCompleted:
			stats.Completed++
		case outcomeFailed:
			stats.Failed++
		case outcomeSkipped:
			stats.Skipped++
		}
	}
	return stats, nil
}

type sweepOutcome int

const (
	outcomeSkipped sweepOutcome = iota
	outcomeCompleted
	outcomeFailed
)

func (h *SweepHandler) process(ctx context.Context, b *domainbooking.Booking, now time.Time) sweepOutcome {
	if err := b.ClaimPayout(now); err != nil {
		return outcomeSkipped
	}
	if err := h.Bookings.Save(ctx, b); err != nil {
		if !errors.Is(err, domainbooking.ErrConcurrentUpdate) {
			h.logError("payout claim not persisted", b, err)
		}
		return outcomeSkipped
	}

	host, err := h.Users.ByID(ctx, domainuser.ID(b.HostID))
	if err != nil {
		return h.fail(ctx, b, fmt.Sprintf("host lookup failed: %v", err), now)
	}
	if !host.CanReceivePayouts() {
		return h.fail(ctx, b, "host has no usable payout destination", now)
	}

	total := b.Price.TotalAmount
	hostPayout := total.Percent(100 - h.Pricing.PlatformFeePercent())
	platformFee, err := total.Sub(hostPayout)
	if err != nil {
		return h.fail(ctx, b, err.Error(), now)
	}

	// Accrued host-cancellation penalties are deducted from this transfer.
	deducted := host.ConsumePenalty(hostPayout.Amount, now)
	transferAmount := money.Money{Amount: hostPayout.Amount - deducted, Currency: hostPayout.Currency}

	transfer, err := h.Payments.Transfer(ctx, policies.TransferParams{
		Amount:      transferAmount,
		Destination: host.ConnectedAccountID,
		Description: fmt.Sprintf("payout for completed booking %s", b.ID),
		Metadata: map[string]string{
			"booking_id":  string(b.ID),
			"host_id":     string(host.ID),
			"total":       total.String(),
			"platform":    platformFee.String(),
			"penalty_cut": fmt.Sprintf("%d", deducted),
		},
	})
	if err != nil {
		return h.fail(ctx, b, err.Error(), now)
	}

	if err := b.CompletePayout(transfer.ID, transferAmount, platformFee, now); err != nil {
		h.logError("payout bookkeeping failed after transfer, manual reconciliation required", b, err)
		return outcomeFailed
	}
	if err := h.Bookings.Save(ctx, b); err != nil {
		h.logError("payout completion not persisted, manual reconciliation required", b, err)
		return outcomeFailed
	}

	host.CreditRevenue(transferAmount.Amount, now)
	host.RecordCompletedTrip(now)
	if err := h.Users.Save(ctx, host); err != nil {
		h.logError("host totals not updated after payout", b, err)
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, &b.EventRecorder); err != nil {
		h.logError("payout events not recorded", b, err)
	}
	return outcomeCompleted
}

// fail marks the claimed payout failed; the booking stays eligible for
// manual reconciliation only, never for an automatic retry.
func (h *SweepHandler) fail(ctx context.Context, b *domainbooking.Booking, reason string, now time.Time) sweepOutcome {
	h.logError("payout failed", b, errors.New(reason))
	if err := b.FailPayout(reason, now); err != nil {
		h.logError("payout failure bookkeeping rejected", b, err)
		return outcomeFailed
	}
	if err := h.Bookings.Save(ctx, b); err != nil {
		h.logError("payout failure not persisted", b, err)
		return outcomeFailed
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, &b.EventRecorder); err != nil {
		h.logError("payout events not recorded", b, err)
	}
	return outcomeFailed
}

func (h *SweepHandler) logError(msg string, b *domainbooking.Booking, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, "booking_id", b.ID, "host_id", b.HostID, "error", err)
	}
}

func (h *SweepHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}
