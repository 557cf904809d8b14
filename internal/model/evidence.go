package model

import "time"

// Outcome is the terminal result of a mutation attempt.
type Outcome string

const (
	OutcomeAdmitted Outcome = "admitted"
	OutcomeRejected Outcome = "rejected"
	// OutcomeForced marks an out-of-band write that bypassed the gate.
	OutcomeForced Outcome = "forced"
)

// FieldDiff records one field-level change, old value first.
type FieldDiff struct {
	Field Field  `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// EvidenceRecord is the durable append-only audit entry for one mutation
// attempt. Exactly one is produced per processed subject, admitted or not.
type EvidenceRecord struct {
	ID          string      `json:"id"`
	OrgID       string      `json:"org_id"`
	Diff        []FieldDiff `json:"diff"`
	Sources     []string    `json:"sources"`
	Confidence  float64     `json:"confidence"`
	Outcome     Outcome     `json:"outcome"`
	Reasons     []string    `json:"reasons,omitempty"`
	Remediation string      `json:"remediation,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// FieldRevert is one (field, previous value) pair of a rollback plan.
type FieldRevert struct {
	Field Field  `json:"field"`
	Prev  string `json:"prev"`
}

// RollbackAction is the minimal reversible diff for an applied change.
// Created for every admitted or forced change, never for a reject.
type RollbackAction struct {
	ID        string        `json:"id"`
	OrgID     string        `json:"org_id"`
	Reverts   []FieldRevert `json:"reverts"`
	Reason    string        `json:"reason"`
	CreatedAt time.Time     `json:"created_at"`
}
