package memory

import (
	"context"
	"sync"

	id "donorhub/pkg/domain"
	audit "donorhub/pkg/platform/audit"
)

// InMemoryStore keeps audit events in process. It doubles as an audit.Publisher
// so tests can assert on emitted events.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) Emit(ctx context.Context, event audit.Event) error {
	return s.Append(ctx, event)
}

func (s *InMemoryStore) ListByActor(_ context.Context, actorID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListAll returns every event in emission order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event(nil), s.events...), nil
}

// Actions returns the action of every event in emission order.
func (s *InMemoryStore) Actions() []audit.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.AuditEvent, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
