package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/domain/recommender"
	apperrors "github.com/yanqian/carefinder/pkg/errors"
	"github.com/yanqian/carefinder/pkg/metrics"
)

// DefaultConfig returns the defaults used when a Config field is left zero.
func DefaultConfig() Config {
	return Config{
		Seed:                   42,
		QueryCount:             5000,
		MaxQueries:             20000,
		RetrievalDepth:         DefaultRetrievalDepth,
		PrecisionAt:            10,
		AveragePrecisionCutoff: 10,
		NDCGAt:                 FullList,
		NDCGBase:               DefaultNDCGBase,
		LowerFromData:          true,
		HistogramBins:          metrics.DefaultBins,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if c.QueryCount <= 0 {
		c.QueryCount = d.QueryCount
	}
	if c.MaxQueries <= 0 {
		c.MaxQueries = d.MaxQueries
	}
	if c.MaxQueries < c.QueryCount {
		c.MaxQueries = c.QueryCount
	}
	if c.RetrievalDepth <= 0 {
		c.RetrievalDepth = d.RetrievalDepth
	}
	if c.PrecisionAt == 0 {
		c.PrecisionAt = d.PrecisionAt
	}
	if c.AveragePrecisionCutoff == 0 {
		c.AveragePrecisionCutoff = d.AveragePrecisionCutoff
	}
	if c.NDCGAt == 0 {
		c.NDCGAt = d.NDCGAt
	}
	if c.NDCGBase <= 1 {
		c.NDCGBase = d.NDCGBase
	}
	if c.HistogramBins <= 0 {
		c.HistogramBins = d.HistogramBins
	}
	return c
}

// resolveCutoff maps 0 to the default and any negative value to FullList.
func resolveCutoff(v, def int) int {
	switch {
	case v == 0:
		return def
	case v < 0:
		return FullList
	default:
		return v
	}
}

// ResolveParams fills zero fields from cfg and rejects values no metric can use.
func ResolveParams(p Params, cfg Config) (Params, error) {
	cfg = cfg.withDefaults()

	requested := p.Metrics
	if len(requested) == 0 {
		requested = AllMetrics
	}
	seen := make(map[Metric]struct{}, len(requested))
	ordered := make([]Metric, 0, len(requested))
	for _, m := range AllMetrics {
		for _, r := range requested {
			if r == m {
				if _, ok := seen[m]; !ok {
					seen[m] = struct{}{}
					ordered = append(ordered, m)
				}
			}
		}
	}
	for _, r := range requested {
		if _, ok := seen[r]; !ok {
			return Params{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("unknown metric %q", r), nil)
		}
	}
	p.Metrics = ordered

	if p.RetrievalDepth < 0 {
		return Params{}, apperrors.Wrap(apperrors.CodeInvalidInput, "retrieval depth must be positive", nil)
	}
	if p.RetrievalDepth == 0 {
		p.RetrievalDepth = cfg.RetrievalDepth
	}
	if p.Workers < 0 {
		return Params{}, apperrors.Wrap(apperrors.CodeInvalidInput, "workers must be positive", nil)
	}
	if p.Workers == 0 {
		p.Workers = cfg.Workers
	}
	p.PrecisionAt = resolveCutoff(p.PrecisionAt, cfg.PrecisionAt)
	p.AveragePrecisionCutoff = resolveCutoff(p.AveragePrecisionCutoff, cfg.AveragePrecisionCutoff)
	p.NDCGAt = resolveCutoff(p.NDCGAt, cfg.NDCGAt)
	switch {
	case p.NDCGBase == 0:
		p.NDCGBase = cfg.NDCGBase
	case p.NDCGBase <= 1:
		return Params{}, apperrors.Wrap(apperrors.CodeInvalidInput, "ndcg base must be greater than 1", nil)
	}
	return p, nil
}

// Evaluate scores queries against table. Zero params take DefaultConfig
// values. Each query is retrieved once and every requested metric reads the
// same cached entry.
func Evaluate(ctx context.Context, table hospital.Table, queries []recommender.Query, params Params, logger *slog.Logger) (Report, error) {
	resolved, err := ResolveParams(params, DefaultConfig())
	if err != nil {
		return Report{}, err
	}
	return evaluate(ctx, table, queries, resolved, metrics.DefaultBins, logger)
}

// evaluate expects params already passed through ResolveParams.
func evaluate(ctx context.Context, table hospital.Table, queries []recommender.Query, params Params, bins int, logger *slog.Logger) (Report, error) {
	started := time.Now()

	corpus, err := BuildCorpus(ctx, table, queries, CorpusOptions{
		Depth:   params.RetrievalDepth,
		Workers: params.Workers,
		Logger:  logger,
	})
	if err != nil {
		return Report{}, err
	}

	values := make(map[Metric][]float64, len(params.Metrics))
	for _, m := range params.Metrics {
		switch m {
		case MetricPrecision, MetricRecall:
			if _, done := values[m]; done {
				continue
			}
			precision, recall := PrecisionRecallAt(corpus.Entries, params.PrecisionAt)
			values[MetricPrecision], values[MetricRecall] = precision, recall
		case MetricAveragePrecision:
			values[m] = AveragePrecisionAt(corpus.Entries, params.AveragePrecisionCutoff)
		case MetricNDCG:
			values[m] = NDCGAt(corpus.Entries, params.NDCGAt, params.NDCGBase)
		}
	}

	rows := make([]Row, len(corpus.Entries))
	for i, e := range corpus.Entries {
		row := Row{Index: e.Index, Query: e.Query, Metrics: make(map[Metric]float64, len(params.Metrics))}
		for _, m := range params.Metrics {
			row.Metrics[m] = values[m][i]
		}
		rows[i] = row
	}

	report := Report{
		RunID:      uuid.NewString(),
		Params:     params,
		QueryCount: len(queries),
		Evaluated:  len(corpus.Entries),
		Summary:    make(map[Metric]metrics.Summary, len(params.Metrics)),
		Rows:       rows,
		Failures:   corpus.Failures,
	}
	for _, m := range params.Metrics {
		report.Summary[m] = metrics.Summarize(values[m], bins)
		if m == MetricAveragePrecision {
			mean := metrics.Mean(values[m])
			report.MeanAveragePrecision = &mean
		}
	}
	report.DurationMs = time.Since(started).Milliseconds()
	return report, nil
}
