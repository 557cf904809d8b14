package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(_ context.Context) (int, error) { return 0, eris.New("boom") }
func succeeding(_ context.Context) (int, error) { return 42, nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("dir", BreakerConfig{FailureThreshold: 3, CoolDown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := Execute(ctx, b, failing)
		require.Error(t, err)
	}
	assert.Equal(t, CircuitOpen, b.State())

	// Fast-fail without invoking fn.
	called := false
	_, err := Execute(ctx, b, func(_ context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	b := NewBreaker("dir", BreakerConfig{FailureThreshold: 3, CoolDown: time.Minute})
	ctx := context.Background()

	_, _ = Execute(ctx, b, failing)
	_, _ = Execute(ctx, b, failing)
	val, err := Execute(ctx, b, succeeding)
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	// Two more failures should not open it: the run was broken.
	_, _ = Execute(ctx, b, failing)
	_, _ = Execute(ctx, b, failing)
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreaker_CoolDownAllowsProbe(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("dir", BreakerConfig{FailureThreshold: 1, CoolDown: 30 * time.Second}).
		WithNow(func() time.Time { return now })
	ctx := context.Background()

	_, _ = Execute(ctx, b, failing)
	assert.Equal(t, CircuitOpen, b.State())

	// Still inside cool-down: rejected.
	_, err := Execute(ctx, b, succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	// After cool-down: one probe allowed, success closes the circuit.
	now = now.Add(31 * time.Second)
	assert.Equal(t, CircuitHalfOpen, b.State())
	val, err := Execute(ctx, b, succeeding)
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("dir", BreakerConfig{FailureThreshold: 1, CoolDown: 30 * time.Second}).
		WithNow(func() time.Time { return now })
	ctx := context.Background()

	_, _ = Execute(ctx, b, failing)
	now = now.Add(31 * time.Second)
	_, err := Execute(ctx, b, failing)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCircuitOpen)

	// Reopened: fail fast again.
	_, err = Execute(ctx, b, succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cfg := BreakerConfig{
		FailureThreshold: 1,
		CoolDown:         time.Minute,
		OnStateChange: func(provider string, from, to CircuitState) {
			transitions = append(transitions, provider+": "+from.String()+"->"+to.String())
		},
	}
	b := NewBreaker("dir", cfg)

	_, _ = Execute(context.Background(), b, failing)
	require.Len(t, transitions, 1)
	assert.Equal(t, "dir: closed->open", transitions[0])

	b.Reset()
	require.Len(t, transitions, 2)
	assert.Equal(t, "dir: open->closed", transitions[1])
}

func TestProviderBreakers_IsolatedPerProvider(t *testing.T) {
	pb := NewProviderBreakers(BreakerConfig{FailureThreshold: 1, CoolDown: time.Minute})
	ctx := context.Background()

	_, _ = Execute(ctx, pb.Get("bad"), failing)

	// The bad provider's circuit is open; the good one is untouched.
	val, err := Execute(ctx, pb.Get("good"), succeeding)
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	states := pb.States()
	assert.Equal(t, CircuitOpen, states["bad"])
	assert.Equal(t, CircuitClosed, states["good"])
}
