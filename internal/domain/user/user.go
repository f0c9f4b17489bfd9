package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("user: not found")
	ErrEmailAlreadyUsed = errors.New("user: email already registered")
	ErrNotHost          = errors.New("user: host role required")
)

type ID string

type Role string

const (
	RoleCustomer Role = "customer"
	RoleHost     Role = "host"
	RoleAdmin    Role = "admin"
)

// User combines identity with the host payout profile. The payout fields are
// mutated only by the connected-account webhook flow and the payout/
// cancellation flows.
type User struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Role         Role

	ConnectedAccountID string
	ExternalAccountID  string
	PayoutsEnabled     bool

	TotalRevenueCents   int64
	PendingPenaltyCents int64
	TotalCancellations  int
	TotalCompletedTrips int

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// CanReceivePayouts gates transfers: the host needs a connected account with
// payouts enabled at the processor.
func (u *User) CanReceivePayouts() bool {
	return u.ConnectedAccountID != "" && u.PayoutsEnabled
}

// CreditRevenue adds a released payout to the host's running total.
func (u *User) CreditRevenue(cents int64, now time.Time) {
	u.TotalRevenueCents += cents
	u.UpdatedAt = now.UTC()
}

// RecordCompletedTrip bumps the completed-trips counter after a payout.
func (u *User) RecordCompletedTrip(now time.Time) {
	u.TotalCompletedTrips++
	u.UpdatedAt = now.UTC()
}

// AccruePenalty adds a host-cancellation penalty to be deducted from a
// future payout rather than charged immediately.
func (u *User) AccruePenalty(cents int64, now time.Time) {
	u.PendingPenaltyCents += cents
	u.UpdatedAt = now.UTC()
}

// ConsumePenalty deducts up to max cents of accrued penalty and returns the
// deducted amount.
func (u *User) ConsumePenalty(max int64, now time.Time) int64 {
	if max <= 0 || u.PendingPenaltyCents <= 0 {
		return 0
	}
	deducted := u.PendingPenaltyCents
	if deducted > max {
		deducted = max
	}
	u.PendingPenaltyCents -= deducted
	u.UpdatedAt = now.UTC()
	return deducted
}

// RecordCancellation bumps the host's cancellation counter.
func (u *User) RecordCancellation(now time.Time) {
	u.TotalCancellations++
	u.UpdatedAt = now.UTC()
}

// AttachConnectedAccount stores the processor account created for the host.
func (u *User) AttachConnectedAccount(accountID string, now time.Time) {
	u.ConnectedAccountID = accountID
	u.UpdatedAt = now.UTC()
}

// ApplyAccountStatus updates payout eligibility from a processor event.
func (u *User) ApplyAccountStatus(externalAccountID string, payoutsEnabled bool, now time.Time) {
	if externalAccountID != "" {
		u.ExternalAccountID = externalAccountID
	}
	u.PayoutsEnabled = payoutsEnabled
	u.UpdatedAt = now.UTC()
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByConnectedAccount(ctx context.Context, accountID string) (*User, error)
	Save(ctx context.Context, u *User) error
}
