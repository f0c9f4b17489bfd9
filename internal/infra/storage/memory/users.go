package memory

import (
	"context"
	"strings"
	"sync"

	domainuser "motorent/internal/domain/user"
)

// UserRepository stores users in memory. Not suitable for production.
type UserRepository struct {
	mu        sync.RWMutex
	byID      map[domainuser.ID]*domainuser.User
	byEmail   map[string]domainuser.ID
	byAccount map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:      make(map[domainuser.ID]*domainuser.User),
		byEmail:   make(map[string]domainuser.ID),
		byAccount: make(map[string]domainuser.ID),
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	if u, ok := r.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) ByConnectedAccount(ctx context.Context, accountID string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byAccount[accountID]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	if u, ok := r.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) Save(ctx context.Context, u *domainuser.User) error {
	emailKey := strings.ToLower(strings.TrimSpace(u.Email))

	r.mu.Lock()
	defer r.mu.Unlock()
	if existingID, ok := r.byEmail[emailKey]; ok && existingID != u.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	if prev, ok := r.byID[u.ID]; ok && prev.ConnectedAccountID != "" && prev.ConnectedAccountID != u.ConnectedAccountID {
		delete(r.byAccount, prev.ConnectedAccountID)
	}
	r.byEmail[emailKey] = u.ID
	if u.ConnectedAccountID != "" {
		r.byAccount[u.ConnectedAccountID] = u.ID
	}
	r.byID[u.ID] = cloneUser(u)
	return nil
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

var _ domainuser.Repository = (*UserRepository)(nil)
