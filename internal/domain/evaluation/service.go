package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yanqian/carefinder/internal/domain/recommender"
	apperrors "github.com/yanqian/carefinder/pkg/errors"
)

// Service runs batch evaluations against the live catalog.
type Service interface {
	Evaluate(ctx context.Context, req Request) (Report, error)
}

// Observer receives run-level measurements.
type Observer interface {
	ObserveEvaluation(evaluated, failed int, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveEvaluation(int, int, time.Duration) {}

type service struct {
	cfg      Config
	catalog  recommender.HospitalSource
	observer Observer
	logger   *slog.Logger
}

// NewService wires up the evaluation domain.
func NewService(cfg Config, catalog recommender.HospitalSource, observer Observer, logger *slog.Logger) Service {
	if observer == nil {
		observer = noopObserver{}
	}
	return &service{
		cfg:      cfg.withDefaults(),
		catalog:  catalog,
		observer: observer,
		logger:   logger.With("component", "evaluation.service"),
	}
}

func (s *service) Evaluate(ctx context.Context, req Request) (Report, error) {
	params, err := ResolveParams(req.Params, s.cfg)
	if err != nil {
		return Report{}, err
	}

	table, err := s.catalog.Hospitals(ctx)
	if err != nil {
		return Report{}, err
	}

	queries := req.Queries
	var seed *int64
	if len(queries) > 0 {
		if len(queries) > s.cfg.MaxQueries {
			return Report{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("at most %d queries per evaluation", s.cfg.MaxQueries), nil)
		}
		normalized := make([]recommender.Query, len(queries))
		for i, q := range queries {
			q.State = recommender.NormalizeState(q.State)
			normalized[i] = q
		}
		queries = normalized
	} else {
		count := req.Count
		switch {
		case count == 0:
			count = s.cfg.QueryCount
		case count < 0:
			return Report{}, apperrors.Wrap(apperrors.CodeInvalidInput, "count must be positive", nil)
		case count > s.cfg.MaxQueries:
			return Report{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("count cannot exceed %d", s.cfg.MaxQueries), nil)
		}
		value := s.cfg.Seed
		if req.Seed != nil {
			value = *req.Seed
		}
		seed = &value
		queries, err = GenerateQueries(table, count, GeneratorConfig{Seed: value, LowerFromData: s.cfg.LowerFromData})
		if err != nil {
			return Report{}, err
		}
	}

	attrs := []any{"queries", len(queries), "metrics", params.Metrics, "workers", params.Workers}
	if seed != nil {
		attrs = append(attrs, "seed", *seed)
	}
	s.logger.Info("evaluation started", attrs...)
	report, err := evaluate(ctx, table, queries, params, s.cfg.HistogramBins, s.logger)
	if err != nil {
		s.logger.Error("evaluation failed", "queries", len(queries), "error", err)
		return Report{}, err
	}
	report.Seed = seed
	s.observer.ObserveEvaluation(report.Evaluated, len(report.Failures), time.Duration(report.DurationMs)*time.Millisecond)
	s.logger.Info("evaluation completed",
		"runId", report.RunID,
		"queries", report.QueryCount,
		"evaluated", report.Evaluated,
		"failed", len(report.Failures),
		"durationMs", report.DurationMs,
	)
	return report, nil
}
