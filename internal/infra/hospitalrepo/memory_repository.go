package hospitalrepo

import (
	"context"
	"sync"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

// MemoryRepository is an in-memory hospital.Repository used for tests/dev.
type MemoryRepository struct {
	mu       sync.RWMutex
	snapshot hospital.Snapshot
	ok       bool
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Latest implements hospital.Repository.
func (r *MemoryRepository) Latest(_ context.Context) (hospital.Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.ok {
		return hospital.Snapshot{}, false, nil
	}
	out := r.snapshot
	out.Table = r.snapshot.Table.Clone()
	return out, true, nil
}

// Replace implements hospital.Repository.
func (r *MemoryRepository) Replace(_ context.Context, snapshot hospital.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot.Table = snapshot.Table.Clone()
	r.snapshot = snapshot
	r.ok = true
	return nil
}

var _ hospital.Repository = (*MemoryRepository)(nil)
