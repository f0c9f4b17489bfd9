package memory

import (
	"context"
	"sync"

	domainauth "motorent/internal/domain/auth"
)

// SessionStore keeps bearer sessions in memory.
type SessionStore struct {
	mu     sync.RWMutex
	tokens map[domainauth.Token]*domainauth.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{tokens: make(map[domainauth.Token]*domainauth.Session)}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *session
	s.tokens[session.Token] = &clone
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.tokens[token]
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
