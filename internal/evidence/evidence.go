// Package evidence persists the append-only audit trail of mutation
// attempts and the rollback actions planned for applied changes.
package evidence

import (
	"context"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Sink is the append-only contract the pipeline writes to. Records are
// never updated or deleted once appended.
type Sink interface {
	Append(ctx context.Context, rec model.EvidenceRecord) error
	SaveRollback(ctx context.Context, action model.RollbackAction) error
}

// Store extends Sink with the read side used by the CLI commands.
type Store interface {
	Sink
	ListEvidence(ctx context.Context, orgID string, limit int) ([]model.EvidenceRecord, error)
	GetRollback(ctx context.Context, id string) (*model.RollbackAction, error)
	Migrate(ctx context.Context) error
	Close() error
}
