package tablecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

func TestMemoryStoreExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	snap := hospital.Snapshot{Table: hospital.Table{{FacilityID: "1", State: "CA", OverallRating: 3}}, FetchedAt: now, Source: "stub"}
	require.NoError(t, store.Save(ctx, snap, time.Hour))

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap, got)

	now = now.Add(time.Hour)
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreWithoutTTLKeepsSnapshot(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, hospital.Snapshot{Table: hospital.Table{{FacilityID: "1"}}}, 0))
	now = now.Add(1000 * time.Hour)
	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	got.Table[0].FacilityID = "mutated"
	again, _, _ := store.Load(ctx)
	require.Equal(t, "1", again.Table[0].FacilityID)
}
