package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"veritas/pkg/platform/outbox"
)

type InMemoryStore struct {
	mu        sync.Mutex
	events    []outbox.Event
	published map[uuid.UUID]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{published: make(map[uuid.UUID]bool)}
}

func (s *InMemoryStore) Append(_ context.Context, event outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Claim holds the store lock while publishing, so claims are serialized.
func (s *InMemoryStore) Claim(ctx context.Context, limit int, publish func(ctx context.Context, events []outbox.Event) ([]uuid.UUID, error)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch []outbox.Event
	for _, e := range s.events {
		if len(batch) == limit {
			break
		}
		if !s.published[e.ID] {
			batch = append(batch, e)
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}

	ids, err := publish(ctx, batch)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.published[id] = true
	}
	return len(ids), nil
}

// Events returns every appended event, published or not.
func (s *InMemoryStore) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.events...)
}

// ByType returns appended events of one type.
func (s *InMemoryStore) ByType(eventType string) []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Pending counts unpublished events.
func (s *InMemoryStore) Pending(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if !s.published[e.ID] {
			n++
		}
	}
	return n, nil
}
