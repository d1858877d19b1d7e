package evaluation

import (
	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/domain/recommender"
	"github.com/yanqian/carefinder/pkg/metrics"
)

// Metric names a ranking-quality measure.
type Metric string

const (
	// MetricPrecision is Precision@N.
	MetricPrecision Metric = "precision"
	// MetricRecall is Recall@N.
	MetricRecall Metric = "recall"
	// MetricAveragePrecision is per-query average precision; its mean is MAP.
	MetricAveragePrecision Metric = "average_precision"
	// MetricNDCG is normalized discounted cumulative gain.
	MetricNDCG Metric = "ndcg"
)

// AllMetrics lists every metric in report order.
var AllMetrics = []Metric{MetricPrecision, MetricRecall, MetricAveragePrecision, MetricNDCG}

// FullList is the cutoff value meaning "score the whole retrieved list".
const FullList = -1

// Params tunes one evaluation run. Zero values are replaced by Config defaults.
type Params struct {
	Metrics                []Metric `json:"metrics,omitempty"`
	RetrievalDepth         int      `json:"retrievalDepth,omitempty"`
	PrecisionAt            int      `json:"precisionAt,omitempty"`
	AveragePrecisionCutoff int      `json:"averagePrecisionCutoff,omitempty"`
	NDCGAt                 int      `json:"ndcgAt,omitempty"`
	NDCGBase               float64  `json:"ndcgBase,omitempty"`
	Workers                int      `json:"workers,omitempty"`
}

// Request describes a batch evaluation. When Queries is empty, Count
// synthetic queries are generated from Seed. A nil Seed uses Config.Seed;
// any explicit value, zero included, is used as given.
type Request struct {
	Queries []recommender.Query `json:"queries,omitempty"`
	Count   int                 `json:"count,omitempty"`
	Seed    *int64              `json:"seed,omitempty"`
	Params
}

// Entry is the cached retrieval result for one query.
type Entry struct {
	Index       int
	Query       recommender.Query
	Recommended []recommender.Recommendation
	Relevant    hospital.Table
}

// Corpus is the ordered set of evaluable entries plus the queries that were dropped.
type Corpus struct {
	Entries  []Entry
	Failures []Failure
}

// Failure records a query excluded from scoring.
type Failure struct {
	Index  int               `json:"index"`
	Query  recommender.Query `json:"query"`
	Code   string            `json:"code"`
	Reason string            `json:"reason"`
}

// Row joins a query with its metric values.
type Row struct {
	Index   int                `json:"index"`
	Query   recommender.Query  `json:"query"`
	Metrics map[Metric]float64 `json:"metrics"`
}

// Report is the outcome of an evaluation run.
type Report struct {
	RunID                string                     `json:"runId"`
	Seed                 *int64                     `json:"seed,omitempty"`
	Params               Params                     `json:"params"`
	QueryCount           int                        `json:"queryCount"`
	Evaluated            int                        `json:"evaluated"`
	MeanAveragePrecision *float64                   `json:"meanAveragePrecision,omitempty"`
	Summary              map[Metric]metrics.Summary `json:"summary"`
	Rows                 []Row                      `json:"rows"`
	Failures             []Failure                  `json:"failures"`
	DurationMs           int64                      `json:"durationMs"`
}

// Config holds evaluation defaults.
type Config struct {
	// Seed is the generator seed for requests that carry none. Zero means 42.
	Seed                   int64
	QueryCount             int
	MaxQueries             int
	RetrievalDepth         int
	Workers                int
	PrecisionAt            int
	AveragePrecisionCutoff int
	NDCGAt                 int
	NDCGBase               float64
	LowerFromData          bool
	HistogramBins          int
}
