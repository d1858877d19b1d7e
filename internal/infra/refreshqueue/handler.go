package refreshqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

// DefaultJobTimeout bounds one background catalog refresh.
const DefaultJobTimeout = 5 * time.Minute

// NewCatalogHandler returns a Handler that runs catalog refresh jobs and
// ignores everything else.
func NewCatalogHandler(catalog hospital.Catalog, timeout time.Duration, logger *slog.Logger) Handler {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	logger = logger.With("component", "refreshqueue.handler")
	return func(ctx context.Context, name string, payload map[string]any) {
		if name != hospital.JobRefresh {
			logger.Warn("dropping unknown job", "job", name)
			return
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		snap, err := catalog.Refresh(ctx)
		if err != nil {
			logger.Error("catalog refresh job failed", "requested_by", payload["requestedBy"], "error", err)
			return
		}
		logger.Info("catalog refresh job completed", "source", snap.Source, "rows", len(snap.Table))
	}
}
