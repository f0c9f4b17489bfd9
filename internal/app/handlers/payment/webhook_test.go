package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorent/internal/app/policies"
	domainuser "motorent/internal/domain/user"
	paymemory "motorent/internal/infra/payments/memory"
	"motorent/internal/infra/storage/memory"
)

var webhookNow = time.Date(2026, time.August, 20, 14, 0, 0, 0, time.UTC)

// stubVerifier hands back a pre-built event so handler tests bypass
// signature checks.
type stubVerifier struct {
	event policies.AccountEvent
	err   error
}

func (s stubVerifier) VerifyEvent(payload []byte, signature string) (policies.AccountEvent, error) {
	return s.event, s.err
}

type webhookFixture struct {
	users   *memory.UserRepository
	gateway *paymemory.Gateway
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		users:   memory.NewUserRepository(),
		gateway: paymemory.NewGateway(),
	}
	require.NoError(t, f.users.Save(context.Background(), &domainuser.User{
		ID:                 "host-1",
		Email:              "host@example.com",
		Name:               "Host",
		Role:               domainuser.RoleHost,
		ConnectedAccountID: "acct_123",
	}))
	return f
}

func (f *webhookFixture) handler(event policies.AccountEvent) *WebhookHandler {
	return &WebhookHandler{
		Users:    f.users,
		Payments: f.gateway,
		Verifier: stubVerifier{event: event},
		Now:      func() time.Time { return webhookNow },
	}
}

func TestWebhookAccountUpdatedEnablesPayouts(t *testing.T) {
	f := newWebhookFixture(t)
	h := f.handler(policies.AccountEvent{
		Type:              EventAccountUpdated,
		AccountID:         "acct_123",
		ExternalAccountID: "ba_456",
		PayoutsEnabled:    true,
		ChargesEnabled:    true,
		TransfersActive:   true,
	})

	require.NoError(t, h.Handle(context.Background(), []byte(`{}`), "sig"))

	u, err := f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	assert.True(t, u.PayoutsEnabled)
	assert.Equal(t, "ba_456", u.ExternalAccountID)
	assert.Equal(t, webhookNow, u.UpdatedAt)
}

func TestWebhookAccountUpdatedRequiresAllFlags(t *testing.T) {
	f := newWebhookFixture(t)
	h := f.handler(policies.AccountEvent{
		Type:            EventAccountUpdated,
		AccountID:       "acct_123",
		PayoutsEnabled:  true,
		ChargesEnabled:  true,
		TransfersActive: false,
	})

	require.NoError(t, h.Handle(context.Background(), nil, ""))

	u, err := f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	assert.False(t, u.PayoutsEnabled)
}

func TestWebhookExternalAccountKeepsEligibility(t *testing.T) {
	f := newWebhookFixture(t)

	u, err := f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	u.PayoutsEnabled = true
	require.NoError(t, f.users.Save(context.Background(), u))

	h := f.handler(policies.AccountEvent{
		Type:              EventExternalAccountCreated,
		AccountID:         "acct_123",
		ExternalAccountID: "ba_789",
	})
	require.NoError(t, h.Handle(context.Background(), nil, ""))

	u, err = f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	assert.True(t, u.PayoutsEnabled, "external account events must not flip eligibility")
	assert.Equal(t, "ba_789", u.ExternalAccountID)
}

func TestWebhookCapabilityUpdatedReReadsAccount(t *testing.T) {
	f := newWebhookFixture(t)
	f.gateway.SetAccountStatus(policies.AccountStatus{
		ID:                "acct_123",
		PayoutsEnabled:    true,
		ChargesEnabled:    true,
		ExternalAccountID: "ba_456",
	})

	h := f.handler(policies.AccountEvent{
		Type:      EventCapabilityUpdated,
		AccountID: "acct_123",
	})
	require.NoError(t, h.Handle(context.Background(), nil, ""))

	u, err := f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	assert.True(t, u.PayoutsEnabled)
	assert.Equal(t, "ba_456", u.ExternalAccountID)
}

func TestWebhookUnknownAccountIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	h := f.handler(policies.AccountEvent{
		Type:      EventAccountUpdated,
		AccountID: "acct_unknown",
	})

	assert.NoError(t, h.Handle(context.Background(), nil, ""))
}

func TestWebhookUnhandledEventTypeIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	h := f.handler(policies.AccountEvent{Type: "payout.paid", AccountID: "acct_123"})

	assert.NoError(t, h.Handle(context.Background(), nil, ""))

	u, err := f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	assert.False(t, u.PayoutsEnabled)
}

func TestWebhookPropagatesVerifierError(t *testing.T) {
	f := newWebhookFixture(t)
	h := &WebhookHandler{
		Users:    f.users,
		Payments: f.gateway,
		Verifier: stubVerifier{err: policies.ErrInvalidSignature},
	}

	err := h.Handle(context.Background(), []byte(`{}`), "bad")
	assert.ErrorIs(t, err, policies.ErrInvalidSignature)
}

func TestConnectCreatesAccountOnce(t *testing.T) {
	f := newWebhookFixture(t)

	require.NoError(t, f.users.Save(context.Background(), &domainuser.User{
		ID:    "host-2",
		Email: "host2@example.com",
		Name:  "Second Host",
		Role:  domainuser.RoleHost,
	}))

	h := &ConnectHandler{
		Users:    f.users,
		Payments: f.gateway,
		Now:      func() time.Time { return webhookNow },
	}

	result, err := h.Connect(context.Background(), "host-2")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccountID)
	assert.NotEmpty(t, result.OnboardingURL)
	assert.False(t, result.Resumed)

	// A second connect resumes onboarding for the same account.
	again, err := h.Connect(context.Background(), "host-2")
	require.NoError(t, err)
	assert.True(t, again.Resumed)
	assert.Equal(t, result.AccountID, again.AccountID)
}

func TestConnectRejectsNonHosts(t *testing.T) {
	f := newWebhookFixture(t)
	require.NoError(t, f.users.Save(context.Background(), &domainuser.User{
		ID:    "guest-1",
		Email: "guest@example.com",
		Name:  "Guest",
		Role:  domainuser.RoleCustomer,
	}))

	h := &ConnectHandler{Users: f.users, Payments: f.gateway}
	_, err := h.Connect(context.Background(), "guest-1")
	assert.ErrorIs(t, err, domainuser.ErrNotHost)
}

func TestConnectRejectsFullyConfiguredHost(t *testing.T) {
	f := newWebhookFixture(t)
	u, err := f.users.ByID(context.Background(), "host-1")
	require.NoError(t, err)
	u.ExternalAccountID = "ba_456"
	u.PayoutsEnabled = true
	require.NoError(t, f.users.Save(context.Background(), u))

	h := &ConnectHandler{Users: f.users, Payments: f.gateway}
	_, err = h.Connect(context.Background(), "host-1")
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}
