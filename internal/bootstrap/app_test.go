package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/infra/config"
)

type stubCatalog struct {
	calls int
	err   error
}

func (s *stubCatalog) Hospitals(context.Context) (hospital.Table, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return hospital.Table{{FacilityID: "1", State: "CA"}}, nil
}

func (s *stubCatalog) Refresh(context.Context) (hospital.Snapshot, error) {
	return hospital.Snapshot{}, nil
}

func TestRunWarmsCatalogAndShutsDown(t *testing.T) {
	cfg := &config.Config{
		HTTP:    config.HTTPConfig{Address: "127.0.0.1:0"},
		Catalog: config.CatalogConfig{FetchTimeout: time.Second},
	}
	catalog := &stubCatalog{err: errors.New("source down")}
	server := &http.Server{Addr: cfg.HTTP.Address, Handler: http.NotFoundHandler()}
	app := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), server, catalog)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not shut down")
	}
	require.Equal(t, 1, catalog.calls)
}
