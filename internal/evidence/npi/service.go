// Package npi fetches organization records and the geo roster from the
// national provider registry, merging a primary and an optional secondary
// source behind a record cache.
package npi

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"veritas/internal/evidence/npi/cache"
	"veritas/internal/evidence/npi/metrics"
	"veritas/internal/evidence/npi/providers"
	"veritas/internal/verification/models"
)

const (
	rosterPageSize = 200
	rosterMaxPages = 3
)

// Service is the registry evidence service.
type Service struct {
	primary   providers.Provider
	secondary providers.Provider
	cache     cache.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSecondary adds a fallback source queried alongside the primary.
func WithSecondary(p providers.Provider) Option {
	return func(s *Service) {
		s.secondary = p
	}
}

func WithCache(c cache.Store) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(primary providers.Provider, opts ...Option) *Service {
	s := &Service{
		primary: primary,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchRecord returns the organization record for npi, or nil when no source
// knows it. A failing source counts as absent unless every source failed.
func (s *Service) FetchRecord(ctx context.Context, npi string) (*models.RegistryRecord, error) {
	if s.cache != nil {
		rec, err := s.cache.Find(ctx, npi)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			s.logger.WarnContext(ctx, "registry cache read failed", "npi", npi, "error", err)
		}
	}

	var primaryRec, secondaryRec *models.RegistryRecord
	var primaryErr, secondaryErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		primaryRec, primaryErr = s.lookup(gctx, s.primary, npi)
		return nil
	})
	if s.secondary != nil {
		g.Go(func() error {
			secondaryRec, secondaryErr = s.lookup(gctx, s.secondary, npi)
			return nil
		})
	}
	_ = g.Wait()

	if primaryErr != nil && (s.secondary == nil || secondaryErr != nil) {
		return nil, primaryErr
	}

	chosen := merge(primaryRec, secondaryRec)
	if chosen == nil {
		return nil, nil
	}
	s.metrics.IncrementSelection(chosen.Source)

	if s.cache != nil {
		if err := s.cache.Save(ctx, chosen); err != nil {
			s.logger.WarnContext(ctx, "registry cache write failed", "npi", npi, "error", err)
		}
	}
	return chosen, nil
}

// lookup calls one source and folds not-found into a nil record.
func (s *Service) lookup(ctx context.Context, p providers.Provider, npi string) (*models.RegistryRecord, error) {
	start := time.Now()
	rec, err := p.Lookup(ctx, npi)
	switch {
	case err == nil:
		s.metrics.ObserveSource(p.ID(), "ok", start)
		return rec, nil
	case providers.IsNotFound(err):
		s.metrics.ObserveSource(p.ID(), string(providers.ErrorNotFound), start)
		return nil, nil
	default:
		s.metrics.ObserveSource(p.ID(), string(providers.GetCategory(err)), start)
		s.logger.WarnContext(ctx, "registry source lookup failed",
			"provider", p.ID(),
			"npi", npi,
			"category", providers.GetCategory(err),
			"error", err,
		)
		return nil, err
	}
}

// merge keeps the more complete record (ties go to primary) and folds in the
// other record's addresses as secondaries.
func merge(primary, secondary *models.RegistryRecord) *models.RegistryRecord {
	switch {
	case primary == nil && secondary == nil:
		return nil
	case secondary == nil:
		return primary
	case primary == nil:
		return secondary
	}

	chosen, other := primary, secondary
	if secondary.Completeness() > primary.Completeness() {
		chosen, other = secondary, primary
	}

	out := *chosen
	out.SecondaryAddresses = append([]models.Address(nil), chosen.SecondaryAddresses...)

	seen := map[string]struct{}{addressKey(out.Primary): {}}
	for _, a := range out.SecondaryAddresses {
		seen[addressKey(a)] = struct{}{}
	}
	candidates := append([]models.Address{other.Primary}, other.SecondaryAddresses...)
	for _, a := range candidates {
		if a.IsZero() {
			continue
		}
		key := addressKey(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.SecondaryAddresses = append(out.SecondaryAddresses, a)
	}
	return &out
}

func addressKey(a models.Address) string {
	return strings.ToLower(strings.Join(strings.Fields(a.Line1), " ")) + "|" + zip5(a.Zip)
}

func zip5(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) > 5 {
		return zip[:5]
	}
	return zip
}

// FetchRoster pages through the individual providers registered around a
// practice. Postal code wins over city and state; with neither the roster is
// empty. A failing page ends the walk with what was collected so far.
func (s *Service) FetchRoster(ctx context.Context, zip, city, state string) ([]models.RosterEntry, error) {
	q := providers.RosterQuery{Limit: rosterPageSize}
	switch {
	case strings.TrimSpace(zip) != "":
		q.PostalCode = zip5(zip)
	case strings.TrimSpace(city) != "" && strings.TrimSpace(state) != "":
		q.City = strings.TrimSpace(city)
		q.State = strings.ToUpper(strings.TrimSpace(state))
	default:
		return nil, nil
	}

	var roster []models.RosterEntry
	for page := 0; page < rosterMaxPages; page++ {
		q.Skip = page * rosterPageSize
		start := time.Now()
		entries, err := s.primary.SearchRoster(ctx, q)
		if err != nil {
			s.metrics.ObserveSource(s.primary.ID(), string(providers.GetCategory(err)), start)
			s.logger.WarnContext(ctx, "roster page failed",
				"provider", s.primary.ID(),
				"skip", q.Skip,
				"error", err,
			)
			break
		}
		s.metrics.ObserveSource(s.primary.ID(), "ok", start)
		s.metrics.IncrementRosterPage()
		roster = append(roster, entries...)
		if len(entries) < rosterPageSize {
			break
		}
	}
	return roster, nil
}
