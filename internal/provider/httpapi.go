package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

// HTTPProvider queries a JSON directory endpoint. It is deliberately
// generic: how the remote service assembles its answer (crawling, registry
// dumps, filings) is the service's concern, not ours.
type HTTPProvider struct {
	name     string
	baseURL  string
	apiKey   string
	official bool
	client   *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
}

// lookupResponse is the wire shape of a directory lookup answer.
type lookupResponse struct {
	Found       bool    `json:"found"`
	Website     string  `json:"website,omitempty"`
	ContactName string  `json:"contact_name,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Email       string  `json:"email,omitempty"`
	Region      string  `json:"region,omitempty"`
	Category    string  `json:"category,omitempty"`
	Confidence  float64 `json:"confidence"`
	Fresh       bool    `json:"fresh"`
	Notes       string  `json:"notes,omitempty"`
	Sources     []struct {
		URL      string `json:"url"`
		Official bool   `json:"official"`
	} `json:"sources"`
}

// NewHTTPProvider creates an HTTP directory provider from its spec.
func NewHTTPProvider(spec Spec) (*HTTPProvider, error) {
	if spec.BaseURL == "" {
		return nil, eris.Errorf("provider: %s has no base_url", spec.Name)
	}
	rps := spec.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	burst := spec.Burst
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &HTTPProvider{
		name:     spec.Name,
		baseURL:  spec.BaseURL,
		apiKey:   spec.APIKey,
		official: spec.Official,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		retry:    resilience.DefaultRetryConfig(),
	}, nil
}

func (p *HTTPProvider) Name() string { return p.name }

// Lookup queries the directory for one subject. Non-2xx server responses
// and network flakes are retried as transient; a 404 is the absent outcome.
func (p *HTTPProvider) Lookup(ctx context.Context, sub Subject) (*model.Finding, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrapf(err, "provider: %s rate wait", p.name)
	}

	return resilience.Retry(ctx, p.retry, func(ctx context.Context) (*model.Finding, error) {
		return p.lookupOnce(ctx, sub)
	})
}

func (p *HTTPProvider) lookupOnce(ctx context.Context, sub Subject) (*model.Finding, error) {
	q := url.Values{}
	q.Set("id", sub.ID)
	if sub.Name != "" {
		q.Set("name", sub.Name)
	}
	if sub.Region != "" {
		q.Set("region", sub.Region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/lookup?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: %s build request", p.name)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: %s request", p.name)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoFinding
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("provider: %s returned status %d", p.name, resp.StatusCode),
			resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("provider: %s returned status %d", p.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrapf(err, "provider: %s read body", p.name)
	}

	var lr lookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, eris.Wrapf(err, "provider: %s decode body", p.name)
	}
	if !lr.Found {
		return nil, ErrNoFinding
	}

	return p.toFinding(&lr), nil
}

func (p *HTTPProvider) toFinding(lr *lookupResponse) *model.Finding {
	values := make(map[model.Field]string)
	setIf := func(f model.Field, v string) {
		if v != "" {
			values[f] = v
		}
	}
	setIf(model.FieldWebsite, lr.Website)
	setIf(model.FieldContactName, lr.ContactName)
	setIf(model.FieldPhone, lr.Phone)
	setIf(model.FieldEmail, lr.Email)
	setIf(model.FieldRegion, lr.Region)
	setIf(model.FieldCategory, lr.Category)

	sources := make([]model.Source, 0, len(lr.Sources))
	for _, s := range lr.Sources {
		if s.URL == "" {
			continue
		}
		sources = append(sources, model.Source{
			URL:      s.URL,
			Official: s.Official || p.official,
		})
	}

	return &model.Finding{
		Provider:   p.name,
		Values:     values,
		Sources:    sources,
		Confidence: lr.Confidence,
		Fresh:      lr.Fresh,
		Notes:      lr.Notes,
	}
}
