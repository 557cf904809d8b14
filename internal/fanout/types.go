package fanout

import (
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

// LookupFailure summarizes one provider's failed contribution for a subject.
type LookupFailure struct {
	Provider string                 `json:"provider"`
	Kind     resilience.FailureKind `json:"kind"`
	Error    string                 `json:"error,omitempty"`
}

// Result is the outcome of fanning one subject out to all active providers.
// Absent and failed providers simply contribute no finding.
type Result struct {
	Findings  []model.Finding `json:"findings"`
	Failures  []LookupFailure `json:"failures,omitempty"`
	CacheHits int             `json:"cache_hits"`
}
