// Package donor persists donor records. Both implementations enforce email
// uniqueness atomically, order listings by creation time then ID, and return
// sentinel errors.
package donor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"donorhub/internal/donor/models"
	id "donorhub/pkg/domain"
	"donorhub/pkg/platform/sentinel"
)

// ErrUnknownOwner is returned by Create when the owner check rejects the
// record's creator.
var ErrUnknownOwner = errors.New("donor owner does not exist")

type InMemoryDonorStore struct {
	mu         sync.RWMutex
	donors     map[id.DonorID]*models.Donor
	byEmail    map[string]id.DonorID
	ownerCheck func(ctx context.Context, owner id.UserID) bool
}

type Option func(*InMemoryDonorStore)

// WithOwnerCheck makes Create refuse records whose creator fails exists.
// The check runs under the store lock, so it is ordered against RemoveOwner.
func WithOwnerCheck(exists func(ctx context.Context, owner id.UserID) bool) Option {
	return func(s *InMemoryDonorStore) {
		s.ownerCheck = exists
	}
}

func New(opts ...Option) *InMemoryDonorStore {
	s := &InMemoryDonorStore{
		donors:  make(map[id.DonorID]*models.Donor),
		byEmail: make(map[string]id.DonorID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *InMemoryDonorStore) Create(ctx context.Context, d *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ownerCheck != nil && !s.ownerCheck(ctx, d.CreatedBy) {
		return fmt.Errorf("create donor: %w", ErrUnknownOwner)
	}

	key := emailKey(d.Email)
	if _, taken := s.byEmail[key]; taken {
		return fmt.Errorf("create donor: %w", sentinel.ErrConflict)
	}
	if _, exists := s.donors[d.ID]; exists {
		return fmt.Errorf("create donor: %w", sentinel.ErrConflict)
	}
	s.donors[d.ID] = d.Clone()
	s.byEmail[key] = d.ID
	return nil
}

func (s *InMemoryDonorStore) FindByID(_ context.Context, donorID id.DonorID) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donors[donorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *InMemoryDonorStore) FindByEmail(_ context.Context, email string) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	donorID, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.donors[donorID].Clone(), nil
}

// List returns the page selected by q and the number of records matching its
// filters before pagination.
func (s *InMemoryDonorStore) List(_ context.Context, q models.ListQuery) ([]*models.Donor, int, error) {
	s.mu.RLock()
	matched := make([]*models.Donor, 0, len(s.donors))
	for _, d := range s.donors {
		if q.Owner != nil && d.CreatedBy != *q.Owner {
			continue
		}
		if q.BloodType != nil && d.BloodType != *q.BloodType {
			continue
		}
		matched = append(matched, d.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, compareListing)
	total := len(matched)

	start := min(max(q.Offset, 0), total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	return matched[start:end], total, nil
}

func compareListing(a, b *models.Donor) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// Update replaces the stored record, re-indexing the email when it changes.
func (s *InMemoryDonorStore) Update(_ context.Context, d *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.donors[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldKey, newKey := emailKey(current.Email), emailKey(d.Email)
	if oldKey != newKey {
		if _, taken := s.byEmail[newKey]; taken {
			return fmt.Errorf("update donor: %w", sentinel.ErrConflict)
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = d.ID
	}
	s.donors[d.ID] = d.Clone()
	return nil
}

func (s *InMemoryDonorStore) Delete(_ context.Context, donorID id.DonorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[donorID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, emailKey(d.Email))
	delete(s.donors, donorID)
	return nil
}

func (s *InMemoryDonorStore) CountByOwner(_ context.Context, owner id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.donors {
		if d.CreatedBy == owner {
			n++
		}
	}
	return n, nil
}

// RemoveOwner runs remove only while owner holds no donor records, and
// returns sentinel.ErrConflict otherwise. The store stays locked until remove
// returns, so no record for owner can be created in between.
func (s *InMemoryDonorStore) RemoveOwner(_ context.Context, owner id.UserID, remove func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.donors {
		if d.CreatedBy == owner {
			return fmt.Errorf("remove owner %s: %w", owner, sentinel.ErrConflict)
		}
	}
	return remove()
}
