package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"motorent/internal/app/services/auth"
	domainauth "motorent/internal/domain/auth"
	domainuser "motorent/internal/domain/user"
)

const principalContextKey = "motorent.principal"

type principal struct {
	ID        string
	Email     string
	Name      string
	Role      domainuser.Role
	Token     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p principal) HasRole(role domainuser.Role) bool {
	return role != "" && p.Role == role
}

type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

// Handle resolves the bearer token into a principal when present; routes
// enforce their own authentication requirements via requireAuth/requireRole.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	user := resolved.User
	setPrincipal(c, principal{
		ID:        string(user.ID),
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Token:     token,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireAuth(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}

func requireRole(c *gin.Context, role domainuser.Role) (principal, bool) {
	p, ok := requireAuth(c)
	if !ok {
		return principal{}, false
	}
	if !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
