package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	paymentapp "motorent/internal/app/handlers/payment"
	"motorent/internal/app/policies"
	domainuser "motorent/internal/domain/user"
)

type PaymentHTTP interface {
	Connect(c *gin.Context)
	AccountStatus(c *gin.Context)
	Webhook(c *gin.Context)
}

type PaymentHandler struct {
	Connects *paymentapp.ConnectHandler
	Webhooks *paymentapp.WebhookHandler
	Logger   *slog.Logger
}

func (h PaymentHandler) Connect(c *gin.Context) {
	p, ok := requireRole(c, domainuser.RoleHost)
	if !ok {
		return
	}
	result, err := h.Connects.Connect(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		switch {
		case errors.Is(err, paymentapp.ErrAlreadyConnected):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domainuser.ErrNotHost):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			h.respondError(c, "connect failed", err)
		}
		return
	}
	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"account_id":     result.AccountID,
		"onboarding_url": result.OnboardingURL,
		"resumed":        result.Resumed,
	})
}

func (h PaymentHandler) AccountStatus(c *gin.Context) {
	p, ok := requireRole(c, domainuser.RoleHost)
	if !ok {
		return
	}
	status, err := h.Connects.AccountStatus(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		h.respondError(c, "account status lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"has_account":         status.HasAccount,
		"account_id":          status.AccountID,
		"external_account_id": status.ExternalAccountID,
		"payouts_enabled":     status.PayoutsEnabled,
		"charges_enabled":     status.ChargesEnabled,
		"details_submitted":   status.DetailsSubmitted,
		"total_revenue_cents": status.TotalRevenueCents,
	})
}

// Webhook is unauthenticated; the signature header is the authentication.
func (h PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}
	signature := c.GetHeader("Stripe-Signature")
	if err := h.Webhooks.Handle(c.Request.Context(), payload, signature); err != nil {
		if errors.Is(err, policies.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		h.respondError(c, "webhook processing failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h PaymentHandler) respondError(c *gin.Context, msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, "error", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

var _ PaymentHTTP = PaymentHandler{}
