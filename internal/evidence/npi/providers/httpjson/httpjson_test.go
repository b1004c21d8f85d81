package httpjson

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/evidence/npi/providers"
	"veritas/internal/verification/models"
	"veritas/pkg/platform/circuit"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup(t *testing.T) {
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/records/1234567893":
			_ = json.NewEncoder(w).Encode(models.RegistryRecord{
				NPI:   "1234567893",
				Name:  "Hill Country Family Clinic",
				Phone: "512-555-0100",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	p := New("primary", srv.URL+"/", WithRateLimit(1000, 10))

	t.Run("decodes and tags the source", func(t *testing.T) {
		rec, err := p.Lookup(context.Background(), "1234567893")
		require.NoError(t, err)
		assert.Equal(t, "Hill Country Family Clinic", rec.Name)
		assert.Equal(t, "primary", rec.Source)
	})

	t.Run("404 is not found", func(t *testing.T) {
		_, err := p.Lookup(context.Background(), "1999999999")
		require.Error(t, err)
		assert.True(t, providers.IsNotFound(err))
		assert.False(t, providers.IsRetryable(err))
	})
}

func TestSearchRosterQuery(t *testing.T) {
	var gotQuery atomic.Value
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"results":[{"npi":"1000000001","full_name":"JANE DOE"}]}`))
	})
	p := New("primary", srv.URL, WithRateLimit(1000, 10))

	entries, err := p.SearchRoster(context.Background(), providers.RosterQuery{PostalCode: "78701", City: "Austin", State: "TX", Limit: 200, Skip: 400})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "JANE DOE", entries[0].FullName)
	assert.Equal(t, "limit=200&postal_code=78701&skip=400", gotQuery.Load())

	_, err = p.SearchRoster(context.Background(), providers.RosterQuery{City: "Austin"})
	assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
}

func TestOutagesOpenTheCircuit(t *testing.T) {
	var calls atomic.Int32
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	p := New("primary", srv.URL,
		WithRateLimit(1000, 10),
		WithBreaker(circuit.New("primary", circuit.WithFailureThreshold(2))),
	)

	for i := 0; i < 2; i++ {
		_, err := p.Lookup(context.Background(), "1234567893")
		assert.Equal(t, providers.ErrorProviderOutage, providers.GetCategory(err))
	}

	_, err := p.Lookup(context.Background(), "1234567893")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
	assert.EqualValues(t, 2, calls.Load())
}

func TestClientErrorsDoNotOpenTheCircuit(t *testing.T) {
	var calls atomic.Int32
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/records/1999999999":
			w.WriteHeader(http.StatusNotFound)
		case "/records/1888888888":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	breaker := circuit.New("primary", circuit.WithFailureThreshold(2))
	p := New("primary", srv.URL, WithRateLimit(1000, 10), WithBreaker(breaker))

	for _, npi := range []string{"1999999999", "1888888888", "1777777777"} {
		for i := 0; i < 3; i++ {
			_, err := p.Lookup(context.Background(), npi)
			require.Error(t, err)
			assert.NotEqual(t, providers.ErrorProviderOutage, providers.GetCategory(err), npi)
		}
	}

	assert.False(t, breaker.IsOpen())
	assert.EqualValues(t, 9, calls.Load(), "every request reached the gateway")
}

func TestNotFoundBreaksAnOutageStreak(t *testing.T) {
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/records/1999999999" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	breaker := circuit.New("primary", circuit.WithFailureThreshold(2))
	p := New("primary", srv.URL, WithRateLimit(1000, 10), WithBreaker(breaker))

	_, _ = p.Lookup(context.Background(), "1234567893")
	_, err := p.Lookup(context.Background(), "1999999999")
	assert.True(t, providers.IsNotFound(err))
	_, _ = p.Lookup(context.Background(), "1234567893")

	assert.False(t, breaker.IsOpen(), "a 404 is a healthy answer")

	_, _ = p.Lookup(context.Background(), "1234567893")
	assert.True(t, breaker.IsOpen())
}

func TestCircuitClosesOnceTheGatewayRecovers(t *testing.T) {
	var healthy atomic.Bool
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(models.RegistryRecord{NPI: "1234567893", Name: "Hill Country Family Clinic"})
	})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	breaker := circuit.New("primary",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithProbeInterval(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	p := New("primary", srv.URL, WithRateLimit(1000, 10), WithBreaker(breaker))

	for i := 0; i < 2; i++ {
		_, _ = p.Lookup(context.Background(), "1234567893")
	}
	require.True(t, breaker.IsOpen())

	healthy.Store(true)
	_, err := p.Lookup(context.Background(), "1234567893")
	assert.Contains(t, err.Error(), "circuit open", "still inside the wait interval")

	now = now.Add(time.Minute)
	rec, err := p.Lookup(context.Background(), "1234567893")
	require.NoError(t, err)
	assert.Equal(t, "Hill Country Family Clinic", rec.Name)
	assert.False(t, breaker.IsOpen())
}
