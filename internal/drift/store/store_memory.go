package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"veritas/internal/drift/models"
	"veritas/pkg/platform/sentinel"
)

type baselineKey struct {
	npi, pageURL string
	category     models.Category
}

// InMemoryBaselineStore keeps baselines keyed by (npi, page_url, category).
type InMemoryBaselineStore struct {
	mu        sync.RWMutex
	baselines map[baselineKey]models.Baseline
}

func NewInMemoryBaselineStore() *InMemoryBaselineStore {
	return &InMemoryBaselineStore{baselines: make(map[baselineKey]models.Baseline)}
}

func (s *InMemoryBaselineStore) Upsert(_ context.Context, b *models.Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselines[baselineKey{b.NPI, b.PageURL, b.Category}] = *b
	return nil
}

func (s *InMemoryBaselineStore) ListByPage(_ context.Context, npi, pageURL string) ([]*models.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Baseline
	for k, b := range s.baselines {
		if k.npi == npi && k.pageURL == pageURL {
			c := b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// InMemoryEventStore keeps drift events in insertion order.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []*models.Event
	byID   map[string]*models.Event
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{byID: make(map[string]*models.Event)}
}

// Insert stores e unless an identical report was created at or after since.
// Reports whether the event was stored.
func (s *InMemoryEventStore) Insert(_ context.Context, e *models.Event, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.events {
		if existing.Status != models.StatusNew || existing.DedupKey() != e.DedupKey() {
			continue
		}
		if !existing.CreatedAt.Before(since) {
			return false, nil
		}
	}
	c := *e
	s.events = append(s.events, &c)
	s.byID[c.ID] = &c
	return true, nil
}

func (s *InMemoryEventStore) FindByID(_ context.Context, id string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *e
	return &c, nil
}

// UpdateStatus persists a lifecycle change, guarded by the status the caller read.
func (s *InMemoryEventStore) UpdateStatus(_ context.Context, e *models.Event, from models.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[e.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != from {
		return sentinel.ErrInvalidState
	}
	stored.Status = e.Status
	stored.ResolvedAt = e.ResolvedAt
	stored.ResolvedBy = e.ResolvedBy
	return nil
}

func (s *InMemoryEventStore) List(_ context.Context, filter models.EventFilter) ([]*models.Event, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if filter.Matches(s.events[i]) {
			matched = append(matched, s.events[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if filter.Offset >= total {
		return []*models.Event{}, total, nil
	}
	end := min(filter.Offset+filter.Limit, total)
	out := make([]*models.Event, 0, end-filter.Offset)
	for _, e := range matched[filter.Offset:end] {
		c := *e
		out = append(out, &c)
	}
	return out, total, nil
}

func (s *InMemoryEventStore) BulkResolve(_ context.Context, npi, resolvedBy string, now time.Time) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var closed []*models.Event
	for _, e := range s.events {
		if e.NPI == npi && e.Status == models.StatusNew {
			at := now
			e.Status = models.StatusResolved
			e.ResolvedAt = &at
			e.ResolvedBy = resolvedBy
			c := *e
			closed = append(closed, &c)
		}
	}
	return closed, nil
}

func (s *InMemoryEventStore) OpenCount(_ context.Context, npi string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.events {
		if e.NPI == npi && e.Status.Open() {
			n++
		}
	}
	return n, nil
}

type heartbeatKey struct {
	npi, pageURL string
}

// InMemoryHeartbeatStore keeps one heartbeat per (npi, page_url).
type InMemoryHeartbeatStore struct {
	mu         sync.RWMutex
	heartbeats map[heartbeatKey]models.Heartbeat
}

func NewInMemoryHeartbeatStore() *InMemoryHeartbeatStore {
	return &InMemoryHeartbeatStore{heartbeats: make(map[heartbeatKey]models.Heartbeat)}
}

func (s *InMemoryHeartbeatStore) Touch(_ context.Context, npi, pageURL, widgetMode string, seen time.Time) (*models.Heartbeat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := heartbeatKey{npi, pageURL}
	h, ok := s.heartbeats[key]
	if !ok {
		h = models.Heartbeat{NPI: npi, PageURL: pageURL}
	}
	h.Touch(seen, widgetMode)
	s.heartbeats[key] = h
	c := h
	return &c, nil
}

func (s *InMemoryHeartbeatStore) ListByNPI(_ context.Context, npi string) ([]*models.Heartbeat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Heartbeat
	for k, h := range s.heartbeats {
		if k.npi == npi {
			c := h
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out, nil
}
