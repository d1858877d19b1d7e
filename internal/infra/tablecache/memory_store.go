package tablecache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/pkg/util"
)

// MemoryStore is an in-process hospital.Store for tests/dev.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshot  hospital.Snapshot
	ok        bool
	expiresAt time.Time
	now       util.Clock
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: util.NowUTC}
}

// Load implements hospital.Store.
func (s *MemoryStore) Load(_ context.Context) (hospital.Snapshot, bool, error) {
	s.mu.RLock()
	snap, ok, exp := s.snapshot, s.ok, s.expiresAt
	s.mu.RUnlock()
	if !ok {
		return hospital.Snapshot{}, false, nil
	}
	if !exp.IsZero() && !s.now().Before(exp) {
		s.mu.Lock()
		if s.expiresAt.Equal(exp) {
			s.snapshot, s.ok = hospital.Snapshot{}, false
		}
		s.mu.Unlock()
		return hospital.Snapshot{}, false, nil
	}
	snap.Table = snap.Table.Clone()
	return snap, true, nil
}

// Save caches the snapshot with optional TTL.
func (s *MemoryStore) Save(_ context.Context, snapshot hospital.Snapshot, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	snapshot.Table = snapshot.Table.Clone()
	s.snapshot = snapshot
	s.ok = true
	s.expiresAt = exp
	return nil
}

var _ hospital.Store = (*MemoryStore)(nil)
