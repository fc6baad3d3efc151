package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL keeps revoked JTIs in process. Expired entries are pruned on
// write.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

type InMemoryTRLOption func(*InMemoryTRL)

func WithClock(clock Clock) InMemoryTRLOption {
	return func(trl *InMemoryTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

func NewInMemoryTRL(opts ...InMemoryTRLOption) *InMemoryTRL {
	trl := &InMemoryTRL{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, exp := range t.revoked {
		if !now.Before(exp) {
			delete(t.revoked, k)
		}
	}
	t.revoked[jti] = now.Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	exp, ok := t.revoked[jti]
	return ok && t.clock().Before(exp), nil
}
