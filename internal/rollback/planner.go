// Package rollback computes the minimal reversible diff for an applied
// change so every mutation has an exact undo path.
package rollback

import (
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Plan snapshots the pre-change value of exactly the fields the change
// proposes to alter — never more, to keep reverts minimal and auditable.
// Must be called before the record is mutated. Returns nil when the change
// touches nothing (a reject never reaches the planner: nothing mutated).
func Plan(record *model.Record, change *model.CandidateChange, reason string) *model.RollbackAction {
	if !change.HasChanges() {
		return nil
	}

	action := &model.RollbackAction{
		ID:        uuid.New().String(),
		OrgID:     record.ID,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	for _, field := range model.AllFields {
		if _, ok := change.Fields[field]; !ok {
			continue
		}
		action.Reverts = append(action.Reverts, model.FieldRevert{
			Field: field,
			Prev:  record.Get(field),
		})
	}
	return action
}

// Apply restores the snapshotted values on the record, undoing the change
// the action was planned for. Applying the action to the post-change
// record reproduces the pre-change record exactly.
func Apply(record *model.Record, action *model.RollbackAction) {
	if action == nil {
		return
	}
	for _, revert := range action.Reverts {
		record.Set(revert.Field, revert.Prev)
	}
}
