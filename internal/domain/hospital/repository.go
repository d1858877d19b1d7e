package hospital

import (
	"context"
	"time"
)

// Source produces a fresh hospital table, typically by downloading the CMS exports.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Table, error)
}

// Store is the short-lived snapshot cache in front of the Source.
type Store interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snapshot Snapshot, ttl time.Duration) error
}

// Repository keeps the last good snapshot durably so the catalog can serve
// hospitals when the Source is unavailable.
type Repository interface {
	Latest(ctx context.Context) (Snapshot, bool, error)
	Replace(ctx context.Context, snapshot Snapshot) error
}
