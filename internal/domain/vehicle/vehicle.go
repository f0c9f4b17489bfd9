package vehicle

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("vehicle: not found")
	ErrInactive = errors.New("vehicle: not available for booking")
)

type ID string

type Status string

const (
	StatusActive      Status = "active"
	StatusDeactivated Status = "de-activated"
)

// Vehicle carries only what the booking engine needs: the daily rate, the
// owning host and the activation state.
type Vehicle struct {
	ID             ID
	HostID         string
	Name           string
	Model          string
	Type           string
	DailyRateCents int64
	Status         Status
	// DeactivatedUntil, when set, lets the reactivation sweep flip the
	// vehicle back to active automatically.
	DeactivatedUntil *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
}

// Bookable reports whether new bookings may target this vehicle.
func (v *Vehicle) Bookable() bool {
	return v.Status == StatusActive
}

// Deactivate takes the vehicle off the market, optionally until a given time.
func (v *Vehicle) Deactivate(until *time.Time, now time.Time) {
	v.Status = StatusDeactivated
	v.DeactivatedUntil = until
	v.UpdatedAt = now.UTC()
}

// Reactivate puts the vehicle back on the market.
func (v *Vehicle) Reactivate(now time.Time) {
	v.Status = StatusActive
	v.DeactivatedUntil = nil
	v.UpdatedAt = now.UTC()
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Vehicle, error)
	Save(ctx context.Context, v *Vehicle) error
	// ReactivateDue activates every deactivated vehicle whose
	// DeactivatedUntil has passed and returns how many were flipped.
	ReactivateDue(ctx context.Context, now time.Time) (int64, error)
}
