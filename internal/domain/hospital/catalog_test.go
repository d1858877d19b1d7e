package hospital

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/carefinder/pkg/errors"
)

func TestCatalogServesFromCacheUntilExpiry(t *testing.T) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	source := &stubSource{table: sampleTable()}
	store := &stubStore{}
	repo := &stubRepository{}
	c := newTestCatalog(source, store, repo, 3*time.Hour, &now)

	tb, err := c.Hospitals(context.Background())
	require.NoError(t, err)
	require.Len(t, tb, 5)
	require.Equal(t, 1, source.calls)
	require.Equal(t, 1, store.saves)
	require.Equal(t, 3*time.Hour, store.lastTTL)
	require.Equal(t, 1, repo.replaces)

	now = now.Add(2 * time.Hour)
	_, err = c.Hospitals(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, source.calls, "fresh cache must not hit the source")

	now = now.Add(2 * time.Hour)
	_, err = c.Hospitals(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
}

func TestCatalogFallsBackToRepository(t *testing.T) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	source := &stubSource{err: errors.New("cms unavailable")}
	repo := &stubRepository{snap: Snapshot{Table: sampleTable()[:2], FetchedAt: now.Add(-48 * time.Hour)}, ok: true}
	c := newTestCatalog(source, &stubStore{}, repo, time.Hour, &now)

	tb, err := c.Hospitals(context.Background())
	require.NoError(t, err)
	require.Len(t, tb, 2)
}

func TestCatalogUnavailable(t *testing.T) {
	now := time.Now()
	c := newTestCatalog(&stubSource{err: errors.New("boom")}, &stubStore{}, &stubRepository{}, time.Hour, &now)

	_, err := c.Hospitals(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeCatalog))
}

func TestCatalogRejectsMalformedTable(t *testing.T) {
	now := time.Now()
	bad := sampleTable()
	bad[1].FacilityID = bad[0].FacilityID
	repo := &stubRepository{snap: Snapshot{Table: sampleTable()}, ok: true}
	c := newTestCatalog(&stubSource{table: bad}, &stubStore{}, repo, time.Hour, &now)

	_, err := c.Hospitals(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTable))
	require.Zero(t, repo.replaces)
}

func TestCatalogRefreshBypassesCache(t *testing.T) {
	now := time.Now()
	source := &stubSource{table: sampleTable()}
	store := &stubStore{snap: Snapshot{Table: sampleTable(), FetchedAt: now}, ok: true}
	c := newTestCatalog(source, store, &stubRepository{}, time.Hour, &now)

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "stub", snap.Source)
	require.Equal(t, 1, source.calls)
}

func newTestCatalog(source Source, store Store, repo Repository, ttl time.Duration, now *time.Time) *catalog {
	return &catalog{
		cfg:    CatalogConfig{TTL: ttl},
		source: source,
		store:  store,
		repo:   repo,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return *now },
	}
}

type stubSource struct {
	table Table
	err   error
	calls int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context) (Table, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.table.Clone(), nil
}

type stubStore struct {
	snap    Snapshot
	ok      bool
	saves   int
	lastTTL time.Duration
}

func (s *stubStore) Load(ctx context.Context) (Snapshot, bool, error) {
	return s.snap, s.ok, nil
}

func (s *stubStore) Save(ctx context.Context, snap Snapshot, ttl time.Duration) error {
	s.snap, s.ok = snap, true
	s.saves++
	s.lastTTL = ttl
	return nil
}

type stubRepository struct {
	snap     Snapshot
	ok       bool
	replaces int
}

func (r *stubRepository) Latest(ctx context.Context) (Snapshot, bool, error) {
	return r.snap, r.ok, nil
}

func (r *stubRepository) Replace(ctx context.Context, snap Snapshot) error {
	r.snap, r.ok = snap, true
	r.replaces++
	return nil
}
