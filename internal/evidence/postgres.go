package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS evidence (
	id          TEXT PRIMARY KEY,
	org_id      TEXT NOT NULL,
	diff        JSONB NOT NULL,
	sources     JSONB NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	outcome     TEXT NOT NULL,
	reasons     JSONB,
	remediation TEXT,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS rollbacks (
	id         TEXT PRIMARY KEY,
	org_id     TEXT NOT NULL,
	reverts    JSONB NOT NULL,
	reason     TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_org_id ON evidence(org_id);
CREATE INDEX IF NOT EXISTS idx_rollbacks_org_id ON rollbacks(org_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, rec model.EvidenceRecord) error {
	diffJSON, err := json.Marshal(rec.Diff)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal diff")
	}
	sourcesJSON, err := json.Marshal(rec.Sources)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal sources")
	}
	reasonsJSON, err := json.Marshal(rec.Reasons)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal reasons")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO evidence (id, org_id, diff, sources, confidence, outcome, reasons, remediation, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.OrgID, diffJSON, sourcesJSON, rec.Confidence,
		string(rec.Outcome), reasonsJSON, rec.Remediation, rec.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: append evidence")
}

func (s *PostgresStore) SaveRollback(ctx context.Context, action model.RollbackAction) error {
	revertsJSON, err := json.Marshal(action.Reverts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal reverts")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO rollbacks (id, org_id, reverts, reason, created_at) VALUES ($1, $2, $3, $4, $5)`,
		action.ID, action.OrgID, revertsJSON, action.Reason, action.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: save rollback")
}

func (s *PostgresStore) ListEvidence(ctx context.Context, orgID string, limit int) ([]model.EvidenceRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, org_id, diff, sources, confidence, outcome, reasons, remediation, created_at
		 FROM evidence WHERE org_id = $1 ORDER BY created_at DESC LIMIT $2`,
		orgID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evidence")
	}
	defer rows.Close()

	var records []model.EvidenceRecord
	for rows.Next() {
		rec, err := scanPgEvidence(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list evidence rows")
}

func (s *PostgresStore) GetRollback(ctx context.Context, id string) (*model.RollbackAction, error) {
	var action model.RollbackAction
	var revertsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, org_id, reverts, reason, created_at FROM rollbacks WHERE id = $1`, id,
	).Scan(&action.ID, &action.OrgID, &revertsJSON, &action.Reason, &action.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: rollback %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get rollback")
	}
	if err := json.Unmarshal(revertsJSON, &action.Reverts); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal reverts")
	}
	return &action, nil
}

func scanPgEvidence(rows pgx.Rows) (*model.EvidenceRecord, error) {
	var rec model.EvidenceRecord
	var diffJSON, sourcesJSON []byte
	var reasonsJSON []byte
	var remediation *string
	var outcome string

	if err := rows.Scan(&rec.ID, &rec.OrgID, &diffJSON, &sourcesJSON, &rec.Confidence,
		&outcome, &reasonsJSON, &remediation, &rec.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: scan evidence row")
	}
	if err := json.Unmarshal(diffJSON, &rec.Diff); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal diff")
	}
	if err := json.Unmarshal(sourcesJSON, &rec.Sources); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal sources")
	}
	if len(reasonsJSON) > 0 && string(reasonsJSON) != "null" {
		if err := json.Unmarshal(reasonsJSON, &rec.Reasons); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal reasons")
		}
	}
	rec.Outcome = model.Outcome(outcome)
	if remediation != nil {
		rec.Remediation = *remediation
	}
	return &rec, nil
}
