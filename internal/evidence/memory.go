package evidence

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// MemoryStore is an in-memory Store for tests and dry runs.
type MemoryStore struct {
	mu        sync.Mutex
	records   []model.EvidenceRecord
	rollbacks map[string]model.RollbackAction

	// AppendErr, when set, is returned by Append to simulate sink failures.
	AppendErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{rollbacks: make(map[string]model.RollbackAction)}
}

func (s *MemoryStore) Append(_ context.Context, rec model.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) SaveRollback(_ context.Context, action model.RollbackAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollbacks[action.ID] = action
	return nil
}

func (s *MemoryStore) ListEvidence(_ context.Context, orgID string, limit int) ([]model.EvidenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EvidenceRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].OrgID == orgID {
			out = append(out, s.records[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) GetRollback(_ context.Context, id string) (*model.RollbackAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	action, ok := s.rollbacks[id]
	if !ok {
		return nil, eris.Errorf("memory: rollback %s not found", id)
	}
	return &action, nil
}

func (s *MemoryStore) Migrate(_ context.Context) error { return nil }
func (s *MemoryStore) Close() error                    { return nil }

// Records returns a copy of all appended evidence.
func (s *MemoryStore) Records() []model.EvidenceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EvidenceRecord, len(s.records))
	copy(out, s.records)
	return out
}
