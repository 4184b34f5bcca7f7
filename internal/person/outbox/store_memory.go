package outbox

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	txcontext "personvault/pkg/platform/tx"
)

// InMemoryStore holds outbox events in process memory. Relay calls are
// serialised.
type InMemoryStore struct {
	mu      sync.Mutex
	relayMu sync.Mutex
	events  []Event
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

// Append stores event. Inside an in-memory transaction the event is held
// until that transaction commits and dropped if it rolls back.
func (s *InMemoryStore) Append(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.Payload = slices.Clone(event.Payload)

	if commit, ok := txcontext.OnCommitFrom(ctx); ok {
		commit.Add(func() { s.add(event) })
		return nil
	}
	s.add(event)
	return nil
}

func (s *InMemoryStore) add(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *InMemoryStore) Relay(ctx context.Context, limit int, publish func(ctx context.Context, events []Event) error) (int, error) {
	s.relayMu.Lock()
	defer s.relayMu.Unlock()

	batch := s.pending(limit)
	if len(batch) == 0 {
		return 0, nil
	}
	if err := publish(ctx, batch); err != nil {
		return 0, err
	}

	now := time.Now()
	claimed := make(map[uuid.UUID]struct{}, len(batch))
	for _, e := range batch {
		claimed[e.ID] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if _, ok := claimed[s.events[i].ID]; ok {
			s.events[i].PublishedAt = &now
		}
	}
	return len(batch), nil
}

func (s *InMemoryStore) Pending(_ context.Context) (int, error) {
	return len(s.pending(0)), nil
}

// All returns a copy of every stored event in append order.
func (s *InMemoryStore) All() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

func (s *InMemoryStore) pending(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.PublishedAt == nil {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b Event) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
