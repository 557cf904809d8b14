package provider

import (
	"context"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Noop is a provider that never has a finding. Used as the fallback when
// configuration enables no real providers.
type Noop struct {
	name string
}

// NewNoop creates a no-op provider with the given name.
func NewNoop(name string) *Noop {
	return &Noop{name: name}
}

func (n *Noop) Name() string { return n.name }

// Lookup always reports an absent finding.
func (n *Noop) Lookup(_ context.Context, _ Subject) (*model.Finding, error) {
	return nil, ErrNoFinding
}
