package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"motorent/internal/app/policies"
	domainuser "motorent/internal/domain/user"
)

// Connected-account lifecycle event types dispatched by the webhook.
const (
	EventAccountUpdated         = "account.updated"
	EventExternalAccountCreated = "account.external_account.created"
	EventExternalAccountUpdated = "account.external_account.updated"
	EventCapabilityUpdated      = "capability.updated"
)

// WebhookHandler verifies inbound processor webhooks and keeps the host
// payout-eligibility flags in sync. Signature failures surface as
// policies.ErrInvalidSignature; events for unknown accounts are logged and
// acknowledged so the processor stops redelivering them.
type WebhookHandler struct {
	Users    domainuser.Repository
	Payments policies.PaymentsPort
	Verifier policies.WebhookVerifier
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *WebhookHandler) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := h.Verifier.VerifyEvent(payload, signature)
	if err != nil {
		return err
	}

	switch event.Type {
	case EventAccountUpdated:
		enabled := event.TransfersActive && event.ChargesEnabled && event.PayoutsEnabled
		return h.apply(ctx, event.AccountID, event.ExternalAccountID, &enabled)
	case EventExternalAccountCreated, EventExternalAccountUpdated:
		return h.apply(ctx, event.AccountID, event.ExternalAccountID, nil)
	case EventCapabilityUpdated:
		// Capability events carry only a delta; re-read the full account.
		status, err := h.Payments.RetrieveAccount(ctx, event.AccountID)
		if err != nil {
			return err
		}
		enabled := status.PayoutsEnabled && status.ChargesEnabled
		return h.apply(ctx, event.AccountID, status.ExternalAccountID, &enabled)
	default:
		if h.Logger != nil {
			h.Logger.Debug("unhandled webhook event", "type", event.Type)
		}
		return nil
	}
}

func (h *WebhookHandler) apply(ctx context.Context, accountID, externalAccountID string, payoutsEnabled *bool) error {
	u, err := h.Users.ByConnectedAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			if h.Logger != nil {
				h.Logger.Warn("webhook for unknown connected account", "account_id", accountID)
			}
			return nil
		}
		return err
	}
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now()
	}
	enabled := u.PayoutsEnabled
	if payoutsEnabled != nil {
		enabled = *payoutsEnabled
	}
	u.ApplyAccountStatus(externalAccountID, enabled, now)
	return h.Users.Save(ctx, u)
}
