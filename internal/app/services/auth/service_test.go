package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "motorent/internal/domain/auth"
	domainuser "motorent/internal/domain/user"
	"motorent/internal/infra/security"
	"motorent/internal/infra/storage/memory"
)

var authNow = time.Date(2026, time.August, 25, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Users:     memory.NewUserRepository(),
		Sessions:  memory.NewSessionStore(),
		Passwords: security.BcryptHasher{},
		Tokens:    security.RandomTokenGenerator{},
		Now:       func() time.Time { return authNow },
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{
		Email:    "  Rider@Example.com ",
		Name:     "Rider",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, "rider@example.com", result.User.Email)
	assert.Equal(t, domainuser.RoleCustomer, result.User.Role)
	assert.NotEqual(t, "correct horse", result.User.PasswordHash)

	login, err := svc.Login(ctx, LoginParams{Email: "rider@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)
	assert.NotEqual(t, result.Token, login.Token)
}

func TestRegisterHostRole(t *testing.T) {
	svc := newService(t)

	result, err := svc.Register(context.Background(), RegisterParams{
		Email:      "host@example.com",
		Name:       "Host",
		Password:   "long enough",
		WantToHost: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domainuser.RoleHost, result.User.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Name: "x", Password: "long enough"})
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = svc.Register(ctx, RegisterParams{Email: "a@b.c", Password: "long enough"})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "x", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "First", Password: "long enough"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterParams{Email: "A@B.C", Name: "Second", Password: "long enough"})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "x", Password: "long enough"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginParams{Email: "a@b.c", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginParams{Email: "nobody@b.c", Password: "long enough"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveToken(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "x", Password: "long enough"})
	require.NoError(t, err)

	resolved, err := svc.ResolveToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, resolved.User.ID)
	assert.Equal(t, result.User.ID, resolved.Session.UserID)

	_, err = svc.ResolveToken(ctx, "unknown-token")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	_, err = svc.ResolveToken(ctx, "")
	assert.ErrorIs(t, err, domainauth.ErrTokenRequired)
}

func TestResolveTokenExpiresSessions(t *testing.T) {
	svc := newService(t)
	svc.SessionTTL = time.Hour
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "x", Password: "long enough"})
	require.NoError(t, err)

	svc.Now = func() time.Time { return authNow.Add(2 * time.Hour) }
	_, err = svc.ResolveToken(ctx, result.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestLogoutRemovesSession(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterParams{Email: "a@b.c", Name: "x", Password: "long enough"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.Token))
	_, err = svc.ResolveToken(ctx, result.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	assert.NoError(t, svc.Logout(ctx, ""))
}
