// Package provider defines the lookup contract for pluggable information
// sources and the registry that resolves the active set from configuration.
package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// ErrNoFinding is returned when a provider has nothing to claim about a
// subject. It is the "absent" outcome, not a failure.
var ErrNoFinding = eris.New("provider: no finding")

// Subject identifies the organisation being looked up.
type Subject struct {
	ID     string
	Name   string
	Region string
}

// Provider is the capability contract every information source implements.
// Lookup must not mutate shared state, must be safe to call concurrently,
// and must honor ctx cancellation and deadlines. Returning ErrNoFinding
// means the provider knows nothing about the subject.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, sub Subject) (*model.Finding, error)
}

// Spec is the declarative configuration for one provider instance.
type Spec struct {
	Name    string  `yaml:"name" mapstructure:"name"`
	Kind    string  `yaml:"kind" mapstructure:"kind"`
	Enabled bool    `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string  `yaml:"api_key" mapstructure:"api_key"`
	// Official marks every source this provider emits as regulatory/
	// authoritative (e.g. a companies-registry API).
	Official   bool    `yaml:"official" mapstructure:"official"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int     `yaml:"burst" mapstructure:"burst"`
}
