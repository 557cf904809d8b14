// Package gate holds the pure admit/reject decision for candidate changes.
// It has no side effects: the pipeline owns applying the outcome.
package gate

import (
	"fmt"
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/normalize"
)

// ReasonCode identifies a failed gate rule in machine-readable form.
type ReasonCode string

const (
	ReasonInsufficientSources ReasonCode = "insufficient_sources"
	ReasonNoOfficialSource    ReasonCode = "no_official_source"
	ReasonNoIndependentSource ReasonCode = "no_independent_source"
	ReasonStaleEvidence       ReasonCode = "stale_evidence"
	ReasonLowConfidence       ReasonCode = "low_confidence"
	ReasonInvalidValue        ReasonCode = "invalid_value"
)

// Policy configures the evidentiary rules.
type Policy struct {
	// MinSources is the minimum count of canonically distinct sources.
	MinSources int `yaml:"min_sources" mapstructure:"min_sources"`
	// RequireOfficial demands at least one regulatory/authoritative source.
	RequireOfficial bool `yaml:"require_official" mapstructure:"require_official"`
	// AllowDualOfficial controls whether two official sources with no
	// independent secondary satisfy the source rules. The source material
	// is ambiguous here, so it stays configurable.
	AllowDualOfficial bool `yaml:"allow_dual_official" mapstructure:"allow_dual_official"`
	// ConfidenceThreshold applies to any contact-field change.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	// RequireFreshContact demands independently corroborated evidence for
	// contact-field changes; legacy corroboration alone is insufficient.
	RequireFreshContact bool `yaml:"require_fresh_contact" mapstructure:"require_fresh_contact"`
	// Categories and Regions are the closed value sets for the
	// categorical fields, supplied as configuration data.
	Categories []string `yaml:"categories" mapstructure:"categories"`
	Regions    []string `yaml:"regions" mapstructure:"regions"`
}

// DefaultPolicy returns the default gate rules.
func DefaultPolicy() Policy {
	return Policy{
		MinSources:          2,
		RequireOfficial:     true,
		AllowDualOfficial:   false,
		ConfidenceThreshold: 70,
		RequireFreshContact: true,
	}
}

// Decision is one of the gate's two terminal outcomes.
type Decision struct {
	Outcome        model.Outcome   `json:"outcome"`
	Reasons        []ReasonCode    `json:"reasons,omitempty"`
	Remediation    string          `json:"remediation,omitempty"`
	NextStatus     model.OrgStatus `json:"next_status"`
	IdentityChange bool            `json:"identity_change,omitempty"`
	Notes          []string        `json:"notes,omitempty"`
}

// Admitted reports whether the change cleared every rule.
func (d *Decision) Admitted() bool {
	return d.Outcome == model.OutcomeAdmitted
}

// Evaluate maps (candidate change, existing record) to Admit or
// Reject(reasons). It never mutates either argument; evaluating the same
// inputs twice yields the same decision.
func Evaluate(change *model.CandidateChange, record *model.Record, pol Policy) Decision {
	dec := Decision{
		IdentityChange: change.IdentityChange,
		Notes:          change.Notes,
	}

	if !change.HasChanges() {
		// Nothing to mutate: vacuous admit, status untouched.
		dec.Outcome = model.OutcomeAdmitted
		dec.NextStatus = record.Status
		return dec
	}

	var remediation []string
	rejectWith := func(code ReasonCode, note string) {
		dec.Reasons = append(dec.Reasons, code)
		remediation = append(remediation, note)
	}

	// Source cardinality, deduplicated by canonical source identity.
	unique, officials := dedupeSources(change.Sources)
	if len(unique) < pol.MinSources {
		missing := pol.MinSources - len(unique)
		if missing == 1 {
			rejectWith(ReasonInsufficientSources, "needs one additional independent source")
		} else {
			rejectWith(ReasonInsufficientSources, fmt.Sprintf("needs %d additional independent sources", missing))
		}
	}

	if pol.RequireOfficial && officials == 0 {
		rejectWith(ReasonNoOfficialSource, "needs at least one official/regulatory source")
	}

	// Two official sources alone may or may not count as independent
	// corroboration depending on policy.
	if !pol.AllowDualOfficial && len(unique) >= pol.MinSources && officials == len(unique) {
		rejectWith(ReasonNoIndependentSource, "needs a non-official corroborating source alongside the official record")
	}

	contact := change.TouchesContact()
	if contact && pol.RequireFreshContact && !change.Fresh {
		rejectWith(ReasonStaleEvidence, "needs corroboration independent of the record's existing evidence")
	}

	if contact && change.Confidence < pol.ConfidenceThreshold {
		rejectWith(ReasonLowConfidence,
			fmt.Sprintf("merged confidence %.0f below threshold %.0f", change.Confidence, pol.ConfidenceThreshold))
	}

	// Every changed field must independently pass its normalizer. An
	// invalid format rejects regardless of evidence strength.
	for _, field := range model.AllFields {
		value, ok := change.Fields[field]
		if !ok {
			continue
		}
		if err := validateField(field, value, pol); err != nil {
			rejectWith(ReasonInvalidValue, fmt.Sprintf("%s %q failed validation", field, value))
		}
	}

	if len(dec.Reasons) > 0 {
		dec.Outcome = model.OutcomeRejected
		dec.Remediation = strings.Join(remediation, "; ")
		// A rejected attempt always forces review, whatever the prior status.
		dec.NextStatus = model.StatusNeedsReview
		return dec
	}

	dec.Outcome = model.OutcomeAdmitted
	dec.NextStatus = nextStatusAfterAdmit(change, record, pol)
	return dec
}

// dedupeSources returns the canonically distinct sources and how many of
// them are official.
func dedupeSources(sources []model.Source) (unique []model.Source, officials int) {
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		id := normalize.CanonicalSource(s.URL)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, s)
		if s.Official {
			officials++
		}
	}
	return unique, officials
}

func validateField(field model.Field, value string, pol Policy) error {
	var err error
	switch field {
	case model.FieldWebsite:
		_, err = normalize.Website(value)
	case model.FieldPhone:
		_, err = normalize.Phone(value)
	case model.FieldEmail:
		_, err = normalize.Email(value)
	case model.FieldContactName:
		_, err = normalize.ContactName(value)
	case model.FieldCategory:
		_, err = normalize.Category(value, pol.Categories)
	case model.FieldRegion:
		_, err = normalize.Category(value, pol.Regions)
	}
	return err
}

// nextStatusAfterAdmit routes an admitted record to Verified when every
// field is populated post-change, otherwise Candidate.
func nextStatusAfterAdmit(change *model.CandidateChange, record *model.Record, pol Policy) model.OrgStatus {
	post := record.Clone()
	for field, value := range change.Fields {
		post.Set(field, value)
	}
	for _, field := range model.AllFields {
		value := post.Get(field)
		if value == "" {
			return model.StatusCandidate
		}
		if err := validateField(field, value, pol); err != nil {
			return model.StatusCandidate
		}
	}
	return model.StatusVerified
}
