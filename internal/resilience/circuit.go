package resilience

import (
	"context"
	"sync"
	"time"
)

// CircuitState is the state of one provider's circuit breaker.
type CircuitState int

const (
	// CircuitClosed lets lookups flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects lookups immediately until the cool-down expires.
	CircuitOpen
	// CircuitHalfOpen admits one probe lookup to test recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls per-provider circuit breaking.
type BreakerConfig struct {
	// FailureThreshold is the run of consecutive failures that opens the
	// circuit. Default: 5.
	FailureThreshold int
	// CoolDown is how long the circuit stays open before a probe is
	// allowed. Default: 30s.
	CoolDown time.Duration
	// OnStateChange is called on each transition, with the provider name.
	OnStateChange func(provider string, from, to CircuitState)
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		CoolDown:         30 * time.Second,
	}
}

// Breaker is a circuit breaker guarding a single provider. An open circuit
// makes lookups fail fast with ErrCircuitOpen so one misbehaving provider
// never stalls the rest of the batch.
type Breaker struct {
	provider string
	cfg      BreakerConfig

	mu                  sync.Mutex
	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time

	nowFunc func() time.Time
}

// NewBreaker creates a circuit breaker for the named provider.
func NewBreaker(provider string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	return &Breaker{
		provider: provider,
		cfg:      cfg,
		state:    CircuitClosed,
		nowFunc:  time.Now,
	}
}

// WithNow sets the clock for testing.
func (b *Breaker) WithNow(now func() time.Time) *Breaker {
	b.nowFunc = now
	return b
}

// Execute runs fn through the breaker, preserving its return value. When
// the circuit is open it returns ErrCircuitOpen without invoking fn.
func Execute[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State returns the current state, accounting for cool-down expiry.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitOpen && b.nowFunc().Sub(b.openedAt) >= b.cfg.CoolDown {
		return CircuitHalfOpen
	}
	return b.state
}

// Reset forces the circuit closed. Used for manual recovery.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.state
	b.state = CircuitClosed
	b.consecutiveFailures = 0
	if old != CircuitClosed && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.provider, old, CircuitClosed)
	}
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if b.nowFunc().Sub(b.openedAt) >= b.cfg.CoolDown {
			b.transition(CircuitHalfOpen)
			return nil // probe
		}
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state == CircuitHalfOpen {
			b.transition(CircuitClosed)
		}
		b.consecutiveFailures = 0
		return
	}

	b.consecutiveFailures++
	b.openedAt = b.nowFunc()

	switch b.state {
	case CircuitClosed:
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		// A failed probe reopens the circuit for another cool-down.
		b.transition(CircuitOpen)
	}
}

func (b *Breaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.provider, from, to)
	}
}

// ProviderBreakers manages one breaker per provider. Safe for concurrent
// use from every in-flight lookup.
type ProviderBreakers struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	cfg      BreakerConfig
}

// NewProviderBreakers creates a per-provider breaker registry.
func NewProviderBreakers(cfg BreakerConfig) *ProviderBreakers {
	return &ProviderBreakers{
		breakers: make(map[string]*Breaker),
		cfg:      cfg,
	}
}

// Get returns the breaker for the named provider, creating it if needed.
func (pb *ProviderBreakers) Get(provider string) *Breaker {
	pb.mu.RLock()
	b, ok := pb.breakers[provider]
	pb.mu.RUnlock()
	if ok {
		return b
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()
	if b, ok = pb.breakers[provider]; ok {
		return b
	}
	b = NewBreaker(provider, pb.cfg)
	pb.breakers[provider] = b
	return b
}

// States returns a snapshot of every breaker's state.
func (pb *ProviderBreakers) States() map[string]CircuitState {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	states := make(map[string]CircuitState, len(pb.breakers))
	for name, b := range pb.breakers {
		states[name] = b.State()
	}
	return states
}
