package memory

import (
	"context"
	"fmt"
	"sync"

	"motorent/internal/app/policies"
	"motorent/internal/domain/shared/money"
)

// CaptureRecord remembers a settled charge so refunds can be validated
// against it.
type CaptureRecord struct {
	IntentID string
	Amount   money.Money
	Refunded int64
}

// TransferRecord remembers a payout transfer.
type TransferRecord struct {
	ID          string
	Amount      money.Money
	Destination string
}

// Gateway is an in-memory policies.PaymentsPort used by tests and the
// storage-free dev mode. Failure flags make specific calls fail on demand.
type Gateway struct {
	mu        sync.Mutex
	seq       int
	captures  map[string]*CaptureRecord
	transfers []TransferRecord
	accounts  map[string]policies.AccountStatus

	FailCapture  bool
	FailRefund   bool
	FailTransfer bool
}

func NewGateway() *Gateway {
	return &Gateway{
		captures: make(map[string]*CaptureRecord),
		accounts: make(map[string]policies.AccountStatus),
	}
}

func (g *Gateway) Capture(ctx context.Context, params policies.CaptureParams) (policies.Capture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCapture {
		return policies.Capture{}, &policies.GatewayError{Op: "capture", Code: "card_declined", Message: "card declined"}
	}
	g.seq++
	id := fmt.Sprintf("pi_%06d", g.seq)
	g.captures[id] = &CaptureRecord{IntentID: id, Amount: params.Amount}
	return policies.Capture{IntentID: id, Status: "succeeded"}, nil
}

func (g *Gateway) Refund(ctx context.Context, intentID string, amount money.Money) (policies.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailRefund {
		return policies.Refund{}, &policies.GatewayError{Op: "refund", Message: "refund rejected"}
	}
	rec, ok := g.captures[intentID]
	if !ok {
		return policies.Refund{}, &policies.GatewayError{Op: "refund", Code: "resource_missing", Message: "no such payment intent: " + intentID}
	}
	if rec.Refunded+amount.Amount > rec.Amount.Amount {
		return policies.Refund{}, &policies.GatewayError{Op: "refund", Code: "amount_too_large", Message: "refund exceeds captured amount"}
	}
	rec.Refunded += amount.Amount
	g.seq++
	return policies.Refund{ID: fmt.Sprintf("re_%06d", g.seq), Status: "succeeded"}, nil
}

func (g *Gateway) Transfer(ctx context.Context, params policies.TransferParams) (policies.Transfer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailTransfer {
		return policies.Transfer{}, &policies.GatewayError{Op: "transfer", Message: "transfer rejected"}
	}
	g.seq++
	t := TransferRecord{
		ID:          fmt.Sprintf("tr_%06d", g.seq),
		Amount:      params.Amount,
		Destination: params.Destination,
	}
	g.transfers = append(g.transfers, t)
	return policies.Transfer{ID: t.ID}, nil
}

func (g *Gateway) CreateAccount(ctx context.Context, email string) (policies.Account, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("acct_%06d", g.seq)
	g.accounts[id] = policies.AccountStatus{ID: id}
	return policies.Account{ID: id, OnboardingURL: "https://connect.example.test/onboard/" + id}, nil
}

func (g *Gateway) AccountLink(ctx context.Context, accountID string) (string, error) {
	return "https://connect.example.test/onboard/" + accountID, nil
}

func (g *Gateway) RetrieveAccount(ctx context.Context, accountID string) (policies.AccountStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.accounts[accountID]
	if !ok {
		return policies.AccountStatus{}, &policies.GatewayError{Op: "retrieve account", Code: "resource_missing", Message: "no such account: " + accountID}
	}
	return status, nil
}

// SetAccountStatus seeds the stored account state for tests.
func (g *Gateway) SetAccountStatus(status policies.AccountStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accounts[status.ID] = status
}

// Captured returns the capture record for an intent, or nil.
func (g *Gateway) Captured(intentID string) *CaptureRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.captures[intentID]
	if !ok {
		return nil
	}
	clone := *rec
	return &clone
}

// Transfers returns a copy of all transfers made so far.
func (g *Gateway) Transfers() []TransferRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]TransferRecord, len(g.transfers))
	copy(out, g.transfers)
	return out
}
