package store

import (
	"context"
	"sort"
	"sync"

	"veritas/internal/verification/models"
	"veritas/pkg/platform/sentinel"
)

// InMemorySessionStore keeps scan sessions, snapshots and results in maps.
type InMemorySessionStore struct {
	mu        sync.RWMutex
	sessions  map[string]*models.ScanSession
	snapshots map[string]*models.SiteSnapshot
	results   map[string][]models.ResultWithCheck
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions:  make(map[string]*models.ScanSession),
		snapshots: make(map[string]*models.SiteSnapshot),
		results:   make(map[string][]models.ResultWithCheck),
	}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.ScanSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *session
	cp.Results = nil
	s.sessions[session.ID] = &cp
	return nil
}

func (s *InMemorySessionStore) SaveSnapshot(_ context.Context, scanID string, snap *models.SiteSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.snapshots[scanID] = &cp
	return nil
}

// SaveResults replaces results per check id, so a retried write is harmless.
func (s *InMemorySessionStore) SaveResults(_ context.Context, scanID string, results []models.ResultWithCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.results[scanID]
	for _, r := range results {
		replaced := false
		for i := range existing {
			if existing[i].CheckID == r.CheckID {
				existing[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, r)
		}
	}
	s.results[scanID] = existing
	return nil
}

func (s *InMemorySessionStore) Finalize(_ context.Context, session *models.ScanSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *session
	cp.Results = nil
	s.sessions[session.ID] = &cp
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, id string) (*models.ScanSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *session
	cp.Results = append([]models.ResultWithCheck(nil), s.results[id]...)
	return &cp, nil
}

// Snapshot returns the snapshot stored with a scan, if any.
func (s *InMemorySessionStore) Snapshot(id string) (*models.SiteSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	return snap, ok
}

// InMemoryAlertStore keeps mismatch alerts keyed by id.
type InMemoryAlertStore struct {
	mu     sync.RWMutex
	alerts map[string]*models.MismatchAlert
}

func NewInMemoryAlertStore() *InMemoryAlertStore {
	return &InMemoryAlertStore{alerts: make(map[string]*models.MismatchAlert)}
}

func (s *InMemoryAlertStore) FindOpen(_ context.Context, npi, checkID string) (*models.MismatchAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.alerts {
		if a.NPI == npi && a.CheckID == checkID && a.IsOpen() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Create inserts a new alert. A second open alert for the same npi and check
// is rejected with ErrConflict, mirroring the partial unique index.
func (s *InMemoryAlertStore) Create(_ context.Context, alert *models.MismatchAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, a := range s.alerts {
		if a.NPI == alert.NPI && a.CheckID == alert.CheckID && a.IsOpen() {
			return sentinel.ErrConflict
		}
	}
	cp := *alert
	s.alerts[alert.ID] = &cp
	return nil
}

// Bump increments the stored occurrence count and refreshes the evidence
// while the alert is open. alert.OccurrenceCount is set to the stored value.
func (s *InMemoryAlertStore) Bump(_ context.Context, alert *models.MismatchAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.openLocked(alert.ID)
	if err != nil {
		return err
	}
	stored.OccurrenceCount++
	stored.NPIValue = alert.NPIValue
	stored.SiteValue = alert.SiteValue
	stored.DeltaDetail = alert.DeltaDetail
	stored.RiskScore = alert.RiskScore
	stored.LastSeen = alert.LastSeen
	alert.OccurrenceCount = stored.OccurrenceCount
	return nil
}

// Resolve closes the alert if it is still open.
func (s *InMemoryAlertStore) Resolve(_ context.Context, alert *models.MismatchAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.openLocked(alert.ID)
	if err != nil {
		return err
	}
	resolvedAt := *alert.ResolvedAt
	stored.Status = models.AlertResolved
	stored.ResolvedAt = &resolvedAt
	return nil
}

func (s *InMemoryAlertStore) openLocked(id string) (*models.MismatchAlert, error) {
	stored, ok := s.alerts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !stored.IsOpen() {
		return nil, sentinel.ErrInvalidState
	}
	return stored, nil
}

// ListByNPI returns alerts newest first; an empty status means all.
func (s *InMemoryAlertStore) ListByNPI(_ context.Context, npi string, status models.AlertStatus) ([]*models.MismatchAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.MismatchAlert
	for _, a := range s.alerts {
		if a.NPI != npi || (status != "" && a.Status != status) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out, nil
}

// InMemoryScoreStore keeps the latest score per NPI.
type InMemoryScoreStore struct {
	mu     sync.RWMutex
	scores map[string]*models.ProviderScore
}

func NewInMemoryScoreStore() *InMemoryScoreStore {
	return &InMemoryScoreStore{scores: make(map[string]*models.ProviderScore)}
}

// Upsert ignores a score older than the stored one, so a slow scan finishing
// late cannot overwrite a newer result.
func (s *InMemoryScoreStore) Upsert(_ context.Context, score *models.ProviderScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.scores[score.NPI]; ok && cur.LastScanAt.After(score.LastScanAt) {
		return nil
	}
	cp := *score
	s.scores[score.NPI] = &cp
	return nil
}

func (s *InMemoryScoreStore) FindByNPI(_ context.Context, npi string) (*models.ProviderScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[npi]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *score
	return &cp, nil
}
