package vehicle

import (
	"context"
	"log/slog"
	"time"

	domainvehicle "motorent/internal/domain/vehicle"
)

// ReactivateHandler flips deactivated vehicles back to active once their
// deactivation window has passed. Runs on a short-interval sweep.
type ReactivateHandler struct {
	Vehicles domainvehicle.Repository
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *ReactivateHandler) Run(ctx context.Context) error {
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now()
	}
	count, err := h.Vehicles.ReactivateDue(ctx, now)
	if err != nil {
		return err
	}
	if count > 0 && h.Logger != nil {
		h.Logger.Info("vehicles reactivated", "count", count)
	}
	return nil
}
