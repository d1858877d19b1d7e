package recommender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yanqian/carefinder/internal/domain/hospital"
	apperrors "github.com/yanqian/carefinder/pkg/errors"
)

// Service exposes interactive hospital recommendations.
type Service interface {
	Recommend(ctx context.Context, req Request) (Response, error)
	States(ctx context.Context) ([]string, error)
}

// HospitalSource supplies the current hospital table.
type HospitalSource interface {
	Hospitals(ctx context.Context) (hospital.Table, error)
}

type service struct {
	cfg     Config
	catalog HospitalSource
	logger  *slog.Logger
}

// NewService wires up the recommender domain.
func NewService(cfg Config, catalog HospitalSource, logger *slog.Logger) Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	return &service{
		cfg:     cfg,
		catalog: catalog,
		logger:  logger.With("component", "recommender.service"),
	}
}

func (s *service) Recommend(ctx context.Context, req Request) (Response, error) {
	query := req.Query
	query.State = NormalizeState(query.State)
	if err := ValidateQuery(query); err != nil {
		return Response{}, err
	}

	limit := req.Limit
	switch {
	case limit == 0:
		limit = s.cfg.DefaultLimit
	case limit < 0:
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "limit must be positive", nil)
	case limit > s.cfg.MaxLimit:
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("limit cannot exceed %d", s.cfg.MaxLimit), nil)
	}

	table, err := s.catalog.Hospitals(ctx)
	if err != nil {
		return Response{}, err
	}

	recs := Recommend(table, query, limit)
	if len(recs) == 0 {
		s.logger.Info("no hospitals in requested state", "state", query.State)
	}
	return Response{Query: query, Recommendations: recs}, nil
}

func (s *service) States(ctx context.Context) ([]string, error) {
	table, err := s.catalog.Hospitals(ctx)
	if err != nil {
		return nil, err
	}
	return table.States(), nil
}
