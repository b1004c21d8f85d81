// Package httpjson is a registry source speaking the registry gateway JSON
// contract:
//
//	GET {base}/records/{npi}
//	GET {base}/roster?postal_code=&city=&state=&limit=&skip=
//	GET {base}/health
//
// Outbound calls are rate limited and guarded by a circuit breaker.
package httpjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"veritas/internal/evidence/npi/providers"
	"veritas/internal/verification/models"
	"veritas/pkg/platform/circuit"
)

const maxResponseBytes = 4 << 20

// Provider queries one registry gateway.
type Provider struct {
	id      string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithRateLimit caps outbound requests per second with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(p *Provider) {
		if perSecond > 0 {
			if burst <= 0 {
				burst = 1
			}
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Provider) {
		if b != nil {
			p.breaker = b
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a gateway provider.
func New(id, baseURL string, opts ...Option) *Provider {
	p := &Provider{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		breaker: circuit.New(id),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) ID() string { return p.id }

func (p *Provider) Lookup(ctx context.Context, npi string) (*models.RegistryRecord, error) {
	var rec models.RegistryRecord
	if err := p.get(ctx, "/records/"+url.PathEscape(npi), &rec); err != nil {
		return nil, err
	}
	if rec.NPI == "" {
		rec.NPI = npi
	}
	if rec.NPI != npi {
		return nil, providers.NewProviderError(providers.ErrorBadData, p.id,
			fmt.Sprintf("record npi %s does not match requested %s", rec.NPI, npi), nil)
	}
	rec.Source = p.id
	return &rec, nil
}

type rosterPage struct {
	Results []models.RosterEntry `json:"results"`
}

func (p *Provider) SearchRoster(ctx context.Context, q providers.RosterQuery) ([]models.RosterEntry, error) {
	params := url.Values{}
	switch {
	case q.PostalCode != "":
		params.Set("postal_code", q.PostalCode)
	case q.City != "" && q.State != "":
		params.Set("city", q.City)
		params.Set("state", q.State)
	default:
		return nil, providers.NewProviderError(providers.ErrorBadData, p.id, "roster query needs a postal code or city and state", nil)
	}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("skip", strconv.Itoa(q.Skip))

	var page rosterPage
	if err := p.get(ctx, "/roster?"+params.Encode(), &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (p *Provider) Health(ctx context.Context) error {
	return p.get(ctx, "/health", nil)
}

// get performs one guarded request and decodes a 200 body into out.
func (p *Provider) get(ctx context.Context, path string, out any) error {
	if !p.breaker.AllowProbe() {
		return providers.NewProviderError(providers.ErrorProviderOutage, p.id, "circuit open", nil)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return providers.NewProviderError(providers.ErrorRateLimited, p.id, "rate limit wait aborted", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return providers.NewProviderError(providers.ErrorInternal, p.id, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.recordFailure(ctx)
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return providers.NewProviderError(providers.ErrorTimeout, p.id, "request timed out", err)
		}
		return providers.NewProviderError(providers.ErrorProviderOutage, p.id, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		p.recordSuccess(ctx)
		return providers.NewProviderError(providers.ErrorNotFound, p.id, "record not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return providers.NewProviderError(providers.ErrorRateLimited, p.id, "upstream rate limited", nil)
	case resp.StatusCode >= 500:
		p.recordFailure(ctx)
		return providers.NewProviderError(providers.ErrorProviderOutage, p.id, "upstream status "+resp.Status, nil)
	case resp.StatusCode != http.StatusOK:
		p.recordSuccess(ctx)
		return providers.NewProviderError(providers.ErrorBadData, p.id, "unexpected status "+resp.Status, nil)
	}
	p.recordSuccess(ctx)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return providers.NewProviderError(providers.ErrorBadData, p.id, "decode response", err)
	}
	return nil
}

func (p *Provider) recordFailure(ctx context.Context) {
	if _, change := p.breaker.RecordFailure(); change.Opened {
		p.logger.WarnContext(ctx, "registry source circuit opened", "provider", p.id)
	}
}

func (p *Provider) recordSuccess(ctx context.Context) {
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "registry source circuit closed", "provider", p.id)
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
