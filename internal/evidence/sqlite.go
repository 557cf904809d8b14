package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/enrich-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS evidence (
	id          TEXT PRIMARY KEY,
	org_id      TEXT NOT NULL,
	diff        TEXT NOT NULL,
	sources     TEXT NOT NULL,
	confidence  REAL NOT NULL,
	outcome     TEXT NOT NULL,
	reasons     TEXT,
	remediation TEXT,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS rollbacks (
	id         TEXT PRIMARY KEY,
	org_id     TEXT NOT NULL,
	reverts    TEXT NOT NULL,
	reason     TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_org_id ON evidence(org_id);
CREATE INDEX IF NOT EXISTS idx_rollbacks_org_id ON rollbacks(org_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts one evidence record. The evidence table is append-only:
// no code path updates or deletes rows.
func (s *SQLiteStore) Append(ctx context.Context, rec model.EvidenceRecord) error {
	diffJSON, err := json.Marshal(rec.Diff)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal diff")
	}
	sourcesJSON, err := json.Marshal(rec.Sources)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sources")
	}
	reasonsJSON, err := json.Marshal(rec.Reasons)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal reasons")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evidence (id, org_id, diff, sources, confidence, outcome, reasons, remediation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OrgID, string(diffJSON), string(sourcesJSON), rec.Confidence,
		string(rec.Outcome), string(reasonsJSON), rec.Remediation, rec.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: append evidence")
}

func (s *SQLiteStore) SaveRollback(ctx context.Context, action model.RollbackAction) error {
	revertsJSON, err := json.Marshal(action.Reverts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal reverts")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rollbacks (id, org_id, reverts, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		action.ID, action.OrgID, string(revertsJSON), action.Reason, action.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: save rollback")
}

func (s *SQLiteStore) ListEvidence(ctx context.Context, orgID string, limit int) ([]model.EvidenceRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, diff, sources, confidence, outcome, reasons, remediation, created_at
		 FROM evidence WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`,
		orgID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evidence")
	}
	defer rows.Close()

	var records []model.EvidenceRecord
	for rows.Next() {
		rec, err := scanEvidence(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list evidence rows")
}

func (s *SQLiteStore) GetRollback(ctx context.Context, id string) (*model.RollbackAction, error) {
	var action model.RollbackAction
	var revertsJSON string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT id, org_id, reverts, reason, created_at FROM rollbacks WHERE id = ?`, id,
	).Scan(&action.ID, &action.OrgID, &revertsJSON, &action.Reason, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: rollback %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get rollback")
	}
	if err := json.Unmarshal([]byte(revertsJSON), &action.Reverts); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal reverts")
	}
	action.CreatedAt = createdAt
	return &action, nil
}

// scanEvidence decodes one evidence row regardless of driver.
func scanEvidence(scan func(dest ...any) error) (*model.EvidenceRecord, error) {
	var rec model.EvidenceRecord
	var diffJSON, sourcesJSON string
	var reasonsJSON, remediation sql.NullString
	var outcome string
	var createdAt time.Time

	if err := scan(&rec.ID, &rec.OrgID, &diffJSON, &sourcesJSON, &rec.Confidence,
		&outcome, &reasonsJSON, &remediation, &createdAt); err != nil {
		return nil, eris.Wrap(err, "evidence: scan row")
	}
	if err := json.Unmarshal([]byte(diffJSON), &rec.Diff); err != nil {
		return nil, eris.Wrap(err, "evidence: unmarshal diff")
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &rec.Sources); err != nil {
		return nil, eris.Wrap(err, "evidence: unmarshal sources")
	}
	if reasonsJSON.Valid && reasonsJSON.String != "" && reasonsJSON.String != "null" {
		if err := json.Unmarshal([]byte(reasonsJSON.String), &rec.Reasons); err != nil {
			return nil, eris.Wrap(err, "evidence: unmarshal reasons")
		}
	}
	rec.Outcome = model.Outcome(outcome)
	rec.Remediation = remediation.String
	rec.CreatedAt = createdAt
	return &rec, nil
}
