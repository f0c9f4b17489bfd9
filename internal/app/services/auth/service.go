package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "motorent/internal/domain/auth"
	domainuser "motorent/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrEmailRequired      = errors.New("auth: email is required")
	ErrNameRequired       = errors.New("auth: name is required")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

type RegisterParams struct {
	Email      string
	Name       string
	Password   string
	WantToHost bool
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

type ResolveResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(params.Email))
	name := strings.TrimSpace(params.Name)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if utf8.RuneCountInString(params.Password) < 8 {
		return nil, ErrPasswordTooShort
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	role := domainuser.RoleCustomer
	if params.WantToHost {
		role = domainuser.RoleHost
	}
	now := s.now()
	u := &domainuser.User{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	token, err := s.issueSession(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	}
	return &AuthResult{User: u, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(u.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.issueSession(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", u.ID)
	}
	return &AuthResult{User: u, Token: token}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, domainauth.Token(token))
}

func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		_ = s.Sessions.Delete(ctx, session.Token)
		return nil, domainauth.ErrSessionNotFound
	}
	u, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		_ = s.Sessions.Delete(ctx, session.Token)
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return &ResolveResult{User: u, Session: session}, nil
}

func (s *Service) issueSession(ctx context.Context, u *domainuser.User) (string, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: u.ID,
		Role:   u.Role,
		TTL:    s.sessionTTL(),
		Now:    s.now(),
	})
	if err != nil {
		return "", err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
