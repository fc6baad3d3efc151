// Package user persists accounts. Both implementations enforce email
// uniqueness atomically and return sentinel errors.
package user

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"donorhub/internal/auth/models"
	id "donorhub/pkg/domain"
	"donorhub/pkg/platform/sentinel"
)

// InMemoryUserStore keeps accounts in process. The email index and the record
// map change under one lock, so concurrent registrations of the same email
// cannot both succeed.
type InMemoryUserStore struct {
	mu          sync.RWMutex
	users       map[id.UserID]*models.User
	byEmail     map[string]id.UserID
	deleteGuard DeleteGuard
}

// DeleteGuard decides whether an account may go. It calls remove to perform
// the deletion and must keep dependent records from appearing until remove
// returns.
type DeleteGuard func(ctx context.Context, userID id.UserID, remove func() error) error

type Option func(*InMemoryUserStore)

// WithDeleteGuard routes every Delete through guard.
func WithDeleteGuard(guard DeleteGuard) Option {
	return func(s *InMemoryUserStore) {
		s.deleteGuard = guard
	}
}

func New(opts ...Option) *InMemoryUserStore {
	s := &InMemoryUserStore{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(user.Email)
	if _, taken := s.byEmail[key]; taken {
		return fmt.Errorf("create user: %w", sentinel.ErrConflict)
	}
	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("create user: %w", sentinel.ErrConflict)
	}
	stored := *user
	s.users[user.ID] = &stored
	s.byEmail[key] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *u
	return &found, nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *s.users[userID]
	return &found, nil
}

// List returns every account ordered by creation time, then ID.
func (s *InMemoryUserStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		copied := *u
		out = append(out, &copied)
	}
	slices.SortFunc(out, func(a, b *models.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

// Update replaces the stored account, re-indexing the email when it changed.
func (s *InMemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldKey, newKey := emailKey(current.Email), emailKey(user.Email)
	if oldKey != newKey {
		if owner, taken := s.byEmail[newKey]; taken && owner != user.ID {
			return fmt.Errorf("update user: %w", sentinel.ErrConflict)
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = user.ID
	}
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// Exists reports whether userID has an account.
func (s *InMemoryUserStore) Exists(_ context.Context, userID id.UserID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok
}

func (s *InMemoryUserStore) Delete(ctx context.Context, userID id.UserID) error {
	if s.deleteGuard != nil {
		return s.deleteGuard(ctx, userID, func() error { return s.remove(userID) })
	}
	return s.remove(userID)
}

func (s *InMemoryUserStore) remove(userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, emailKey(u.Email))
	delete(s.users, userID)
	return nil
}

// ExistsWithRole reports whether any account holds role.
func (s *InMemoryUserStore) ExistsWithRole(_ context.Context, role id.Role) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}
