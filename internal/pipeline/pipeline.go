// Package pipeline drives a batch of records through fan-out,
// triangulation, the quality gate, rollback planning, and the evidence
// sink.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/evidence"
	"github.com/sells-group/enrich-cli/internal/fanout"
	"github.com/sells-group/enrich-cli/internal/gate"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/internal/rollback"
	"github.com/sells-group/enrich-cli/internal/triangulate"
)

// Outcome is the per-record result handed back to the caller, in input order.
type Outcome struct {
	Record   model.Record           `json:"record"`
	Decision gate.Decision          `json:"decision"`
	Rollback *model.RollbackAction  `json:"rollback,omitempty"`
	Failures []fanout.LookupFailure `json:"failures,omitempty"`
}

// Options configures a pipeline run.
type Options struct {
	// Concurrency caps how many subjects are in flight at once. The
	// provider-call ceiling is separate and lives in the fan-out config.
	Concurrency int
	// Force applies changes even when the gate rejects them. The rollback
	// planner still runs so an undo path exists for out-of-band writes.
	Force bool
}

// Pipeline coordinates one batch run. Safe to reuse across batches; all
// shared lookup state lives in the fan-out orchestrator.
type Pipeline struct {
	fanout *fanout.Orchestrator
	policy gate.Policy
	sink   evidence.Sink
	topts  triangulate.Options
	opts   Options
}

// New creates a pipeline.
func New(fo *fanout.Orchestrator, policy gate.Policy, sink evidence.Sink, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Pipeline{
		fanout: fo,
		policy: policy,
		sink:   sink,
		topts:  triangulate.Options{Categories: policy.Categories, Regions: policy.Regions},
		opts:   opts,
	}
}

// Run processes the batch. Subjects run concurrently and may complete in
// any order, but the returned slice matches input order. Provider issues
// never abort the batch; the only fatal condition is batch cancellation.
func (p *Pipeline) Run(ctx context.Context, records []model.Record) ([]Outcome, model.Metrics, error) {
	outcomes := make([]Outcome, len(records))
	var metrics model.Metrics

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i := range records {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			outcome, err := p.processOne(gCtx, records[i], &metrics)
			if err != nil {
				return err
			}
			outcomes[i] = *outcome
			return nil
		})
	}

	err := g.Wait()
	snap := metrics.Snapshot()
	zap.L().Info("pipeline: batch complete",
		zap.Int("processed", snap.Processed),
		zap.Int("admitted", snap.Admitted),
		zap.Int("rejected", snap.Rejected),
		zap.Int("provider_failures", snap.ProviderFailures),
		zap.Int("cache_hits", snap.CacheHits),
		zap.Int("sink_failures", snap.SinkFailures),
	)
	if snap.SinkFailures > 0 {
		zap.L().Warn("pipeline: evidence sink failures left an audit-trail gap, operator follow-up required",
			zap.Int("sink_failures", snap.SinkFailures),
		)
	}
	return outcomes, snap, eris.Wrap(err, "pipeline: batch")
}

// processOne runs the full decision path for one record. The lookups are
// concurrent, but everything from triangulation through apply is a single
// synchronous unit: the record is owned exclusively here.
func (p *Pipeline) processOne(ctx context.Context, rec model.Record, metrics *model.Metrics) (*Outcome, error) {
	log := zap.L().With(zap.String("org", rec.ID))

	result, err := p.fanout.Lookup(ctx, provider.Subject{
		ID:     rec.ID,
		Name:   rec.Name,
		Region: rec.Region,
	})
	if err != nil {
		// Only batch cancellation reaches here; provider failures are in
		// the result summary.
		return nil, err
	}
	metrics.AddProviderFailures(len(result.Failures))
	metrics.AddCacheHits(result.CacheHits)

	change := triangulate.Merge(&rec, result.Findings, p.topts)
	decision := gate.Evaluate(&change, &rec, p.policy)

	outcome := &Outcome{
		Record:   rec,
		Decision: decision,
		Failures: result.Failures,
	}

	apply := decision.Admitted()
	outcomeKind := decision.Outcome
	if !apply && p.opts.Force && change.HasChanges() {
		// Forced override: bypass the gate but keep the undo path.
		apply = true
		outcomeKind = model.OutcomeForced
		log.Warn("pipeline: forcing change past rejected gate",
			zap.Strings("reasons", reasonStrings(decision.Reasons)),
		)
	}

	if apply && change.HasChanges() {
		action := rollback.Plan(&outcome.Record, &change, rollbackReason(outcomeKind))
		for field, value := range change.Fields {
			outcome.Record.Set(field, value)
		}
		outcome.Record.Status = decision.NextStatus
		if outcomeKind == model.OutcomeForced {
			outcome.Record.Status = model.StatusNeedsReview
		}
		outcome.Rollback = action
		if action != nil {
			if err := p.sink.SaveRollback(ctx, *action); err != nil {
				metrics.AddSinkFailures(1)
				log.Error("pipeline: save rollback failed", zap.Error(err))
			}
		}
		metrics.AddAdmitted(1)
	} else {
		// A reject mutates nothing except the lifecycle status.
		if change.HasChanges() {
			outcome.Record.Status = decision.NextStatus
			metrics.AddRejected(1)
		}
	}

	p.appendEvidence(ctx, &rec, &change, decision, outcomeKind, metrics)
	metrics.AddProcessed(1)
	return outcome, nil
}

// appendEvidence writes exactly one record per processed subject. Sink
// failures are counted and logged but never fail the batch: the in-memory
// decision already happened.
func (p *Pipeline) appendEvidence(ctx context.Context, rec *model.Record, change *model.CandidateChange, decision gate.Decision, outcomeKind model.Outcome, metrics *model.Metrics) {
	ev := model.EvidenceRecord{
		ID:          uuid.New().String(),
		OrgID:       rec.ID,
		Confidence:  change.Confidence,
		Outcome:     outcomeKind,
		Reasons:     reasonStrings(decision.Reasons),
		Remediation: decision.Remediation,
		CreatedAt:   time.Now().UTC(),
	}
	for _, field := range model.AllFields {
		value, ok := change.Fields[field]
		if !ok {
			continue
		}
		ev.Diff = append(ev.Diff, model.FieldDiff{Field: field, Old: rec.Get(field), New: value})
	}
	for _, s := range change.Sources {
		ev.Sources = append(ev.Sources, s.URL)
	}

	if err := p.sink.Append(ctx, ev); err != nil {
		metrics.AddSinkFailures(1)
		zap.L().Error("pipeline: evidence append failed",
			zap.String("org", rec.ID),
			zap.Error(err),
		)
	}
}

func rollbackReason(outcome model.Outcome) string {
	if outcome == model.OutcomeForced {
		return "forced override applied outside the quality gate"
	}
	return "admitted enrichment change"
}

func reasonStrings(reasons []gate.ReasonCode) []string {
	if len(reasons) == 0 {
		return nil
	}
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
