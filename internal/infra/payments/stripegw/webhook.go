package stripegw

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"motorent/internal/app/policies"
)

const defaultTolerance = 5 * time.Minute

// WebhookVerifier checks Stripe-Signature headers and decodes verified
// payloads into account lifecycle events.
type WebhookVerifier struct {
	Secret    string
	Tolerance time.Duration
	Now       func() time.Time
}

func (v *WebhookVerifier) VerifyEvent(payload []byte, signature string) (policies.AccountEvent, error) {
	ts, sigs, err := parseSignatureHeader(signature)
	if err != nil {
		return policies.AccountEvent{}, policies.ErrInvalidSignature
	}

	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return policies.AccountEvent{}, policies.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, sig := range sigs {
		got, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return policies.AccountEvent{}, policies.ErrInvalidSignature
	}
	return decodeAccountEvent(payload)
}

// parseSignatureHeader splits "t=1700000000,v1=abc,v1=def" into the timestamp
// and the candidate v1 signatures.
func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		ts   int64
		sigs []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, err
			}
			ts = parsed
		case "v1":
			sigs = append(sigs, value)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, policies.ErrInvalidSignature
	}
	return ts, sigs, nil
}

func decodeAccountEvent(payload []byte) (policies.AccountEvent, error) {
	var envelope struct {
		Type    string `json:"type"`
		Account string `json:"account"`
		Data    struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return policies.AccountEvent{}, err
	}

	event := policies.AccountEvent{Type: envelope.Type, AccountID: envelope.Account}

	switch {
	case envelope.Type == "account.updated":
		var account struct {
			ID               string `json:"id"`
			PayoutsEnabled   bool   `json:"payouts_enabled"`
			ChargesEnabled   bool   `json:"charges_enabled"`
			ExternalAccounts struct {
				Data []struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"external_accounts"`
			Capabilities struct {
				Transfers string `json:"transfers"`
			} `json:"capabilities"`
		}
		if err := json.Unmarshal(envelope.Data.Object, &account); err != nil {
			return policies.AccountEvent{}, err
		}
		if event.AccountID == "" {
			event.AccountID = account.ID
		}
		event.PayoutsEnabled = account.PayoutsEnabled
		event.ChargesEnabled = account.ChargesEnabled
		event.TransfersActive = account.Capabilities.Transfers == "active"
		if len(account.ExternalAccounts.Data) > 0 {
			event.ExternalAccountID = account.ExternalAccounts.Data[0].ID
		}
	case strings.HasPrefix(envelope.Type, "account.external_account."):
		var external struct {
			ID      string `json:"id"`
			Account string `json:"account"`
		}
		if err := json.Unmarshal(envelope.Data.Object, &external); err != nil {
			return policies.AccountEvent{}, err
		}
		event.ExternalAccountID = external.ID
		if event.AccountID == "" {
			event.AccountID = external.Account
		}
	case envelope.Type == "capability.updated":
		var capability struct {
			Account string `json:"account"`
			Status  string `json:"status"`
		}
		if err := json.Unmarshal(envelope.Data.Object, &capability); err != nil {
			return policies.AccountEvent{}, err
		}
		if event.AccountID == "" {
			event.AccountID = capability.Account
		}
		event.TransfersActive = capability.Status == "active"
	}
	return event, nil
}
