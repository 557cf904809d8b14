// Package fanout executes provider lookups concurrently per subject under
// one batch-global in-flight ceiling, with per-call timeouts, result
// caching, and per-provider circuit breaking.
package fanout

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

// Config tunes the fan-out orchestrator.
type Config struct {
	// MaxInFlight caps concurrent provider calls across the whole batch,
	// not per subject. Default: 16.
	MaxInFlight int64
	// CallTimeout bounds each individual provider call. Default: 20s.
	CallTimeout time.Duration
	// CacheTTL is the lookup cache lifetime. Zero disables caching.
	CacheTTL time.Duration
	// Breaker configures the per-provider circuit breakers.
	Breaker resilience.BreakerConfig
}

// DefaultConfig returns the default fan-out settings.
func DefaultConfig() Config {
	return Config{
		MaxInFlight: 16,
		CallTimeout: 20 * time.Second,
		CacheTTL:    time.Hour,
		Breaker:     resilience.DefaultBreakerConfig(),
	}
}

// Orchestrator fans one subject's lookup out to every active provider.
// All shared state (cache, breakers, semaphore) is concurrency-safe, so a
// single Orchestrator serves all subjects of a batch.
type Orchestrator struct {
	providers   []provider.Provider
	sem         *semaphore.Weighted
	breakers    *resilience.ProviderBreakers
	cache       *Cache
	callTimeout time.Duration
}

// New creates an orchestrator over the active providers.
func New(providers []provider.Provider, cfg Config) *Orchestrator {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 16
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 20 * time.Second
	}
	return &Orchestrator{
		providers:   providers,
		sem:         semaphore.NewWeighted(cfg.MaxInFlight),
		breakers:    resilience.NewProviderBreakers(cfg.Breaker),
		cache:       NewCache(cfg.CacheTTL),
		callTimeout: cfg.CallTimeout,
	}
}

// Providers returns the active provider names in registration order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.providers))
	for _, p := range o.providers {
		names = append(names, p.Name())
	}
	return names
}

// BreakerStates returns a snapshot of every provider's circuit state.
func (o *Orchestrator) BreakerStates() map[string]resilience.CircuitState {
	return o.breakers.States()
}

// Lookup runs every active provider for one subject and waits for all of
// them to finish (success, absence, failure, or timeout) before returning.
// One provider's failure never blocks or fails the others; failed
// providers appear only in the result's failure summary. The returned
// error is non-nil only when the batch context was cancelled.
func (o *Orchestrator) Lookup(ctx context.Context, sub provider.Subject) (*Result, error) {
	result := &Result{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range o.providers {
		if ctx.Err() != nil {
			break // batch cancelled: stop launching new lookups
		}

		wg.Add(1)
		go func(p provider.Provider) {
			defer wg.Done()

			finding, hit, err := o.lookupOne(ctx, p, sub)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && finding != nil:
				result.Findings = append(result.Findings, *finding)
				if hit {
					result.CacheHits++
				}
			case err == nil || errors.Is(err, provider.ErrNoFinding):
				// absent: contributes nothing
			default:
				kind := resilience.Classify(err)
				result.Failures = append(result.Failures, LookupFailure{
					Provider: p.Name(),
					Kind:     kind,
					Error:    err.Error(),
				})
				zap.L().Debug("fanout: provider lookup failed",
					zap.String("subject", sub.ID),
					zap.String("provider", p.Name()),
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
			}
		}(p)
	}

	wg.Wait()
	return result, ctx.Err()
}

// lookupOne performs a single provider call behind the cache, the global
// ceiling, the per-call timeout, and the provider's circuit breaker.
func (o *Orchestrator) lookupOne(ctx context.Context, p provider.Provider, sub provider.Subject) (*model.Finding, bool, error) {
	if f, ok := o.cache.Get(sub.ID, sub.Region, p.Name()); ok {
		return f, true, nil
	}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, false, err
	}
	defer o.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	breaker := o.breakers.Get(p.Name())
	finding, err := resilience.Execute(callCtx, breaker, func(ctx context.Context) (*model.Finding, error) {
		f, lookupErr := p.Lookup(ctx, sub)
		if errors.Is(lookupErr, provider.ErrNoFinding) {
			// Absence is a valid answer, not a breaker-tripping failure.
			return nil, nil
		}
		return f, lookupErr
	})
	if err != nil {
		// A timed-out call surfaces as context.DeadlineExceeded from the
		// provider; report it against this call only.
		return nil, false, err
	}
	if finding == nil {
		return nil, false, provider.ErrNoFinding
	}

	o.cache.Put(sub.ID, sub.Region, p.Name(), finding)
	return finding, false, nil
}
