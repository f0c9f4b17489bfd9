package stripegw

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"motorent/internal/app/policies"
	"motorent/internal/domain/shared/money"
)

const defaultBaseURL = "https://api.stripe.com/v1"

// Client implements policies.PaymentsPort against the Stripe REST API using
// form-encoded requests. Amounts cross the wire in minor units.
type Client struct {
	SecretKey string
	BaseURL   string
	// ReturnURL and RefreshURL terminate the hosted onboarding flow.
	ReturnURL  string
	RefreshURL string
	HTTPClient *http.Client
}

func (c *Client) Capture(ctx context.Context, params policies.CaptureParams) (policies.Capture, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.Amount.Amount, 10))
	form.Set("currency", strings.ToLower(params.Amount.Currency))
	form.Set("payment_method", params.PaymentMethod)
	form.Set("confirm", "true")
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("automatic_payment_methods[allow_redirects]", "never")
	if params.Description != "" {
		form.Set("description", params.Description)
	}
	encodeMetadata(form, params.Metadata)

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.post(ctx, "capture", "/payment_intents", form, &resp); err != nil {
		return policies.Capture{}, err
	}
	if resp.Status != "succeeded" {
		return policies.Capture{}, &policies.GatewayError{
			Op:      "capture",
			Code:    resp.Status,
			Message: fmt.Sprintf("payment intent %s not settled", resp.ID),
		}
	}
	return policies.Capture{IntentID: resp.ID, Status: resp.Status}, nil
}

func (c *Client) Refund(ctx context.Context, intentID string, amount money.Money) (policies.Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	form.Set("amount", strconv.FormatInt(amount.Amount, 10))

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.post(ctx, "refund", "/refunds", form, &resp); err != nil {
		return policies.Refund{}, err
	}
	return policies.Refund{ID: resp.ID, Status: resp.Status}, nil
}

func (c *Client) Transfer(ctx context.Context, params policies.TransferParams) (policies.Transfer, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.Amount.Amount, 10))
	form.Set("currency", strings.ToLower(params.Amount.Currency))
	form.Set("destination", params.Destination)
	if params.Description != "" {
		form.Set("description", params.Description)
	}
	encodeMetadata(form, params.Metadata)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "transfer", "/transfers", form, &resp); err != nil {
		return policies.Transfer{}, err
	}
	return policies.Transfer{ID: resp.ID}, nil
}

func (c *Client) CreateAccount(ctx context.Context, email string) (policies.Account, error) {
	form := url.Values{}
	form.Set("type", "express")
	form.Set("email", email)
	form.Set("capabilities[transfers][requested]", "true")

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "create account", "/accounts", form, &resp); err != nil {
		return policies.Account{}, err
	}
	link, err := c.AccountLink(ctx, resp.ID)
	if err != nil {
		return policies.Account{}, err
	}
	return policies.Account{ID: resp.ID, OnboardingURL: link}, nil
}

func (c *Client) AccountLink(ctx context.Context, accountID string) (string, error) {
	form := url.Values{}
	form.Set("account", accountID)
	form.Set("type", "account_onboarding")
	form.Set("return_url", c.ReturnURL)
	form.Set("refresh_url", c.RefreshURL)

	var resp struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, "account link", "/account_links", form, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) RetrieveAccount(ctx context.Context, accountID string) (policies.AccountStatus, error) {
	var resp struct {
		ID               string `json:"id"`
		PayoutsEnabled   bool   `json:"payouts_enabled"`
		ChargesEnabled   bool   `json:"charges_enabled"`
		DetailsSubmitted bool   `json:"details_submitted"`
		ExternalAccounts struct {
			Data []struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"external_accounts"`
	}
	if err := c.do(ctx, "retrieve account", http.MethodGet, "/accounts/"+accountID, nil, &resp); err != nil {
		return policies.AccountStatus{}, err
	}
	status := policies.AccountStatus{
		ID:               resp.ID,
		PayoutsEnabled:   resp.PayoutsEnabled,
		ChargesEnabled:   resp.ChargesEnabled,
		DetailsSubmitted: resp.DetailsSubmitted,
	}
	if len(resp.ExternalAccounts.Data) > 0 {
		status.ExternalAccountID = resp.ExternalAccounts.Data[0].ID
	}
	return status, nil
}

func (c *Client) post(ctx context.Context, op, path string, form url.Values, out any) error {
	return c.do(ctx, op, http.MethodPost, path, form, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, form url.Values, out any) error {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return &policies.GatewayError{Op: op, Message: err.Error()}
	}
	req.SetBasicAuth(c.SecretKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return &policies.GatewayError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &policies.GatewayError{Op: op, Message: err.Error()}
	}
	if resp.StatusCode >= 400 {
		return decodeError(op, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &policies.GatewayError{Op: op, Message: "malformed response: " + err.Error()}
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func decodeError(op string, status int, raw []byte) error {
	var wrapper struct {
		Error struct {
			Type    string `json:"type"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Error.Message == "" {
		return &policies.GatewayError{Op: op, Message: fmt.Sprintf("http %d", status)}
	}
	code := wrapper.Error.Code
	if code == "" {
		code = wrapper.Error.Type
	}
	return &policies.GatewayError{Op: op, Code: code, Message: wrapper.Error.Message}
}

func encodeMetadata(form url.Values, metadata map[string]string) {
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
}
