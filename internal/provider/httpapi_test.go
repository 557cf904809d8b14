package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

func newTestHTTPProvider(t *testing.T, spec Spec) *HTTPProvider {
	t.Helper()
	p, err := NewHTTPProvider(spec)
	require.NoError(t, err)
	p.retry = resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	return p
}

func TestHTTPProvider_LookupFound(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"found": true,
			"website": "https://acme.example.com",
			"phone": "+15551234567",
			"confidence": 85,
			"fresh": true,
			"sources": [
				{"url": "https://registry.example.gov/acme", "official": true},
				{"url": "https://dir.example.com/acme"}
			]
		}`))
	}))
	defer srv.Close()

	p := newTestHTTPProvider(t, Spec{
		Name:       "chamber",
		BaseURL:    srv.URL,
		APIKey:     "sekrit",
		RatePerSec: 100,
	})

	f, err := p.Lookup(context.Background(), Subject{ID: "org-1", Name: "Acme Plumbing", Region: "northeast"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sekrit", gotAuth)
	assert.Contains(t, gotQuery, "id=org-1")
	assert.Contains(t, gotQuery, "region=northeast")

	assert.Equal(t, "chamber", f.Provider)
	assert.Equal(t, "https://acme.example.com", f.Values[model.FieldWebsite])
	assert.Equal(t, "+15551234567", f.Values[model.FieldPhone])
	assert.Equal(t, 85.0, f.Confidence)
	assert.True(t, f.Fresh)
	require.Len(t, f.Sources, 2)
	assert.True(t, f.Sources[0].Official)
	assert.False(t, f.Sources[1].Official)
}

func TestHTTPProvider_OfficialSpecMarksAllSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"found": true, "website": "https://acme.example.com", "confidence": 90,
			"sources": [{"url": "https://registry.example.gov/acme"}]}`))
	}))
	defer srv.Close()

	p := newTestHTTPProvider(t, Spec{Name: "state-registry", BaseURL: srv.URL, Official: true, RatePerSec: 100})

	f, err := p.Lookup(context.Background(), Subject{ID: "org-1"})
	require.NoError(t, err)
	require.Len(t, f.Sources, 1)
	assert.True(t, f.Sources[0].Official)
}

func TestHTTPProvider_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := newTestHTTPProvider(t, Spec{Name: "chamber", BaseURL: srv.URL, RatePerSec: 100})

	_, err := p.Lookup(context.Background(), Subject{ID: "org-missing"})
	assert.ErrorIs(t, err, ErrNoFinding)
}

func TestHTTPProvider_FoundFalseIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"found": false}`))
	}))
	defer srv.Close()

	p := newTestHTTPProvider(t, Spec{Name: "chamber", BaseURL: srv.URL, RatePerSec: 100})

	_, err := p.Lookup(context.Background(), Subject{ID: "org-1"})
	assert.ErrorIs(t, err, ErrNoFinding)
}

func TestHTTPProvider_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"found": true, "website": "https://acme.example.com", "confidence": 75, "sources": []}`))
	}))
	defer srv.Close()

	p := newTestHTTPProvider(t, Spec{Name: "chamber", BaseURL: srv.URL, RatePerSec: 100})

	f, err := p.Lookup(context.Background(), Subject{ID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example.com", f.Values[model.FieldWebsite])
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPProvider_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := newTestHTTPProvider(t, Spec{Name: "chamber", BaseURL: srv.URL, RatePerSec: 100})

	_, err := p.Lookup(context.Background(), Subject{ID: "org-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewHTTPProvider_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPProvider(Spec{Name: "chamber"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}
