package stripegw

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorent/internal/app/policies"
)

const webhookSecret = "whsec_test"

var webhookNow = time.Date(2026, time.August, 15, 9, 0, 0, 0, time.UTC)

func newVerifier() *WebhookVerifier {
	return &WebhookVerifier{
		Secret: webhookSecret,
		Now:    func() time.Time { return webhookNow },
	}
}

func sign(t *testing.T, payload []byte, at time.Time) string {
	t.Helper()
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyEventAccountUpdated(t *testing.T) {
	payload := []byte(`{
		"type": "account.updated",
		"data": {
			"object": {
				"id": "acct_123",
				"payouts_enabled": true,
				"charges_enabled": true,
				"external_accounts": {"data": [{"id": "ba_456"}]},
				"capabilities": {"transfers": "active"}
			}
		}
	}`)

	event, err := newVerifier().VerifyEvent(payload, sign(t, payload, webhookNow))
	require.NoError(t, err)

	assert.Equal(t, "account.updated", event.Type)
	assert.Equal(t, "acct_123", event.AccountID)
	assert.Equal(t, "ba_456", event.ExternalAccountID)
	assert.True(t, event.PayoutsEnabled)
	assert.True(t, event.ChargesEnabled)
	assert.True(t, event.TransfersActive)
}

func TestVerifyEventExternalAccountCreated(t *testing.T) {
	payload := []byte(`{
		"type": "account.external_account.created",
		"account": "acct_123",
		"data": {"object": {"id": "ba_789", "account": "acct_123"}}
	}`)

	event, err := newVerifier().VerifyEvent(payload, sign(t, payload, webhookNow))
	require.NoError(t, err)

	assert.Equal(t, "acct_123", event.AccountID)
	assert.Equal(t, "ba_789", event.ExternalAccountID)
}

func TestVerifyEventCapabilityUpdated(t *testing.T) {
	payload := []byte(`{
		"type": "capability.updated",
		"account": "acct_123",
		"data": {"object": {"account": "acct_123", "status": "active"}}
	}`)

	event, err := newVerifier().VerifyEvent(payload, sign(t, payload, webhookNow))
	require.NoError(t, err)

	assert.Equal(t, "capability.updated", event.Type)
	assert.True(t, event.TransfersActive)
}

func TestVerifyEventRejectsTamperedPayload(t *testing.T) {
	payload := []byte(`{"type": "account.updated", "account": "acct_123"}`)
	signature := sign(t, payload, webhookNow)

	tampered := []byte(`{"type": "account.updated", "account": "acct_evil"}`)
	_, err := newVerifier().VerifyEvent(tampered, signature)
	assert.ErrorIs(t, err, policies.ErrInvalidSignature)
}

func TestVerifyEventRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{"type": "account.updated", "account": "acct_123"}`)
	v := newVerifier()
	v.Secret = "whsec_other"

	_, err := v.VerifyEvent(payload, sign(t, payload, webhookNow))
	assert.ErrorIs(t, err, policies.ErrInvalidSignature)
}

func TestVerifyEventRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"type": "account.updated", "account": "acct_123"}`)

	_, err := newVerifier().VerifyEvent(payload, sign(t, payload, webhookNow.Add(-10*time.Minute)))
	assert.ErrorIs(t, err, policies.ErrInvalidSignature)

	// Inside the tolerance window the same payload verifies.
	_, err = newVerifier().VerifyEvent(payload, sign(t, payload, webhookNow.Add(-time.Minute)))
	assert.NoError(t, err)
}

func TestVerifyEventRejectsMalformedHeader(t *testing.T) {
	payload := []byte(`{}`)
	v := newVerifier()

	_, err := v.VerifyEvent(payload, "")
	assert.ErrorIs(t, err, policies.ErrInvalidSignature)

	_, err = v.VerifyEvent(payload, "v1=deadbeef")
	assert.ErrorIs(t, err, policies.ErrInvalidSignature)

	_, err = v.VerifyEvent(payload, "t=notanumber,v1=deadbeef")
	assert.ErrorIs(t, err, policies.ErrInvalidSignature)
}
