package provider

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Constructor builds a provider from its declarative spec.
type Constructor func(spec Spec) (Provider, error)

// Registry maps provider kinds to constructors. Registration order carries
// no precedence; the triangulator decides precedence by source authority.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates a registry with the built-in provider kinds.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register("httpapi", func(spec Spec) (Provider, error) { return NewHTTPProvider(spec) })
	r.Register("noop", func(spec Spec) (Provider, error) { return NewNoop(spec.Name), nil })
	return r
}

// Register adds a constructor for a provider kind.
func (r *Registry) Register(kind string, c Constructor) {
	r.constructors[kind] = c
}

// Resolve builds the ordered active provider list from specs. Disabled
// entries are skipped silently. An empty result falls back to a single
// no-op provider so the pipeline always has something to fan out to.
func (r *Registry) Resolve(specs []Spec) ([]Provider, error) {
	var active []Provider
	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}
		kind := spec.Kind
		if kind == "" {
			kind = "httpapi"
		}
		c, ok := r.constructors[kind]
		if !ok {
			return nil, eris.Errorf("provider: unknown kind %q for %q", kind, spec.Name)
		}
		p, err := c(spec)
		if err != nil {
			return nil, eris.Wrapf(err, "provider: build %s", spec.Name)
		}
		active = append(active, p)
	}

	if len(active) == 0 {
		zap.L().Warn("provider: no providers enabled, falling back to noop")
		active = append(active, NewNoop("noop"))
	}
	return active, nil
}
