package store

import (
	"context"
	"sort"
	"sync"

	"github.com/harunnryd/vidya/pkg/errorsx"
)

// MemoryStore keeps everything in process memory. It backs tests and the
// simulation harness; production runs use the Mongo store.
type MemoryStore struct {
	mu        sync.RWMutex
	borrowers map[string]map[string]Borrower   // ownerID -> borrowerID
	calls     map[string]map[string]CallRecord // ownerID -> callID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		borrowers: make(map[string]map[string]Borrower),
		calls:     make(map[string]map[string]CallRecord),
	}
}

func (m *MemoryStore) SaveCallRecord(_ context.Context, ownerID string, rec CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls[ownerID] == nil {
		m.calls[ownerID] = make(map[string]CallRecord)
	}
	m.calls[ownerID][rec.CallID] = rec
	return nil
}

func (m *MemoryStore) GetBorrower(_ context.Context, ownerID, borrowerID string) (Borrower, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.borrowers[ownerID][borrowerID]
	if !ok {
		return Borrower{}, errorsx.New(errorsx.ReasonStoreNotFound, "borrower %s not found for owner %s", borrowerID, ownerID)
	}
	return b, nil
}

func (m *MemoryStore) UpdateBorrower(_ context.Context, ownerID string, b Borrower) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.borrowers[ownerID] == nil {
		m.borrowers[ownerID] = make(map[string]Borrower)
	}
	m.borrowers[ownerID][b.ID] = b
	return nil
}

func (m *MemoryStore) ListBorrowers(_ context.Context, ownerID string) ([]Borrower, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Borrower, 0, len(m.borrowers[ownerID]))
	for _, b := range m.borrowers[ownerID] {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetCallRecord is a test helper; the engine never reads records back.
func (m *MemoryStore) GetCallRecord(ownerID, callID string) (CallRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.calls[ownerID][callID]
	return rec, ok
}

// CallRecordIDs is a test helper listing stored call identifiers.
func (m *MemoryStore) CallRecordIDs(ownerID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.calls[ownerID]))
	for id := range m.calls[ownerID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var _ Store = (*MemoryStore)(nil)
