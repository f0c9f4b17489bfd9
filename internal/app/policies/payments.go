package policies

import (
	"context"
	"errors"

	"motorent/internal/domain/shared/money"
)

var (
	// ErrInvalidSignature is returned when an inbound webhook payload fails
	// verification; callers answer 400 and change nothing.
	ErrInvalidSignature = errors.New("payments: invalid webhook signature")
)

// GatewayError wraps a failure reported by the payment processor so use
// cases can distinguish it from validation and storage errors.
type GatewayError struct {
	Op      string
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return "payments: " + e.Op + " failed: " + e.Code + ": " + e.Message
	}
	return "payments: " + e.Op + " failed: " + e.Message
}

type CaptureParams struct {
	Amount        money.Money
	PaymentMethod string
	Description   string
	Metadata      map[string]string
}

type Capture struct {
	IntentID string
	Status   string
}

type Refund struct {
	ID     string
	Status string
}

type TransferParams struct {
	Amount      money.Money
	Destination string
	Description string
	Metadata    map[string]string
}

type Transfer struct {
	ID string
}

type Account struct {
	ID            string
	OnboardingURL string
}

type AccountStatus struct {
	ID                string
	PayoutsEnabled    bool
	ChargesEnabled    bool
	DetailsSubmitted  bool
	ExternalAccountID string
}

// PaymentsPort is the gateway adapter contract: authorize-and-capture,
// refunds, transfers to connected payee accounts and the account lifecycle.
// All calls are blocking; the engine performs no retries of its own.
type PaymentsPort interface {
	Capture(ctx context.Context, params CaptureParams) (Capture, error)
	Refund(ctx context.Context, intentID string, amount money.Money) (Refund, error)
	Transfer(ctx context.Context, params TransferParams) (Transfer, error)
	CreateAccount(ctx context.Context, email string) (Account, error)
	AccountLink(ctx context.Context, accountID string) (string, error)
	RetrieveAccount(ctx context.Context, accountID string) (AccountStatus, error)
}

// AccountEvent is a verified connected-account lifecycle notification.
type AccountEvent struct {
	Type              string
	AccountID         string
	ExternalAccountID string
	PayoutsEnabled    bool
	ChargesEnabled    bool
	TransfersActive   bool
}

// WebhookVerifier checks the signature of an inbound webhook payload and
// decodes it into an AccountEvent.
type WebhookVerifier interface {
	VerifyEvent(payload []byte, signature string) (AccountEvent, error)
}
