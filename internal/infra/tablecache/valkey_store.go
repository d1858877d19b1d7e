package tablecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

// ValkeyStore keeps the hospital snapshot in a Valkey-compatible database so
// every API replica shares one cached table.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "carefinder"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Load(ctx context.Context) (hospital.Snapshot, bool, error) {
	result := s.client.Do(ctx, s.client.B().Get().Key(s.snapshotKey()).Build())
	payload, err := result.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return hospital.Snapshot{}, false, nil
		}
		return hospital.Snapshot{}, false, err
	}
	var snap hospital.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return hospital.Snapshot{}, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *ValkeyStore) Save(ctx context.Context, snapshot hospital.Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.snapshotKey()).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) snapshotKey() string {
	return fmt.Sprintf("%s:hospitals:snapshot", s.prefix)
}

var _ hospital.Store = (*ValkeyStore)(nil)
