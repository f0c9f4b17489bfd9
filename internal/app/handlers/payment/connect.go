package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"motorent/internal/app/policies"
	domainuser "motorent/internal/domain/user"
)

var ErrAlreadyConnected = errors.New("payment: host already has a fully configured payout account")

// ConnectHandler drives the connected-account onboarding flow for hosts.
type ConnectHandler struct {
	Users    domainuser.Repository
	Payments policies.PaymentsPort
	Logger   *slog.Logger
	Now      func() time.Time
}

type ConnectResult struct {
	AccountID     string
	OnboardingURL string
	// Resumed is true when an existing half-configured account got a fresh
	// onboarding link instead of a new account.
	Resumed bool
}

func (h *ConnectHandler) Connect(ctx context.Context, userID domainuser.ID) (ConnectResult, error) {
	u, err := h.Users.ByID(ctx, userID)
	if err != nil {
		return ConnectResult{}, err
	}
	if u.Role != domainuser.RoleHost {
		return ConnectResult{}, domainuser.ErrNotHost
	}
	if u.ConnectedAccountID != "" && u.ExternalAccountID != "" && u.PayoutsEnabled {
		return ConnectResult{}, ErrAlreadyConnected
	}

	if u.ConnectedAccountID != "" {
		url, err := h.Payments.AccountLink(ctx, u.ConnectedAccountID)
		if err != nil {
			return ConnectResult{}, err
		}
		return ConnectResult{AccountID: u.ConnectedAccountID, OnboardingURL: url, Resumed: true}, nil
	}

	account, err := h.Payments.CreateAccount(ctx, u.Email)
	if err != nil {
		return ConnectResult{}, err
	}
	u.AttachConnectedAccount(account.ID, h.now())
	if err := h.Users.Save(ctx, u); err != nil {
		return ConnectResult{}, err
	}
	return ConnectResult{AccountID: account.ID, OnboardingURL: account.OnboardingURL}, nil
}

type StatusResult struct {
	HasAccount        bool
	AccountID         string
	ExternalAccountID string
	PayoutsEnabled    bool
	ChargesEnabled    bool
	DetailsSubmitted  bool
	TotalRevenueCents int64
}

// AccountStatus combines the stored payout profile with the live account
// state at the processor.
func (h *ConnectHandler) AccountStatus(ctx context.Context, userID domainuser.ID) (StatusResult, error) {
	u, err := h.Users.ByID(ctx, userID)
	if err != nil {
		return StatusResult{}, err
	}
	if u.ConnectedAccountID == "" {
		return StatusResult{}, nil
	}
	status, err := h.Payments.RetrieveAccount(ctx, u.ConnectedAccountID)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{
		HasAccount:        true,
		AccountID:         u.ConnectedAccountID,
		ExternalAccountID: u.ExternalAccountID,
		PayoutsEnabled:    u.PayoutsEnabled,
		ChargesEnabled:    status.ChargesEnabled,
		DetailsSubmitted:  status.DetailsSubmitted,
		TotalRevenueCents: u.TotalRevenueCents,
	}, nil
}

func (h *ConnectHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}
