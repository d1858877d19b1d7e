package evaluation

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/domain/recommender"
	apperrors "github.com/yanqian/carefinder/pkg/errors"
)

// DefaultRetrievalDepth is deep enough to cover every cutoff the metrics use.
const DefaultRetrievalDepth = 100

// CorpusOptions tunes the retrieval pass.
type CorpusOptions struct {
	Depth   int
	Workers int
	Logger  *slog.Logger
}

type slot struct {
	entry   Entry
	failure *Failure
}

// BuildCorpus runs the recommender and builds the relevance set once per
// query. Queries run on a bounded worker pool and come back in query order.
// A malformed query, or one whose state has no relevant hospitals, is
// recorded as a Failure and skipped; it never aborts the batch.
func BuildCorpus(ctx context.Context, table hospital.Table, queries []recommender.Query, opts CorpusOptions) (Corpus, error) {
	depth := opts.Depth
	if depth <= 0 {
		depth = DefaultRetrievalDepth
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	slots := make([]slot, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		if gctx.Err() != nil {
			break
		}
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = retrieve(table, i, q, depth)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Corpus{}, apperrors.Wrap(apperrors.CodeEvaluation, "retrieval pass interrupted", err)
	}
	if err := ctx.Err(); err != nil {
		return Corpus{}, apperrors.Wrap(apperrors.CodeEvaluation, "retrieval pass interrupted", err)
	}

	corpus := Corpus{Entries: make([]Entry, 0, len(queries)), Failures: make([]Failure, 0)}
	for _, s := range slots {
		if s.failure != nil {
			logger.Warn("query excluded from evaluation", "index", s.failure.Index, "state", s.failure.Query.State, "code", s.failure.Code, "reason", s.failure.Reason)
			corpus.Failures = append(corpus.Failures, *s.failure)
			continue
		}
		corpus.Entries = append(corpus.Entries, s.entry)
	}
	return corpus, nil
}

func retrieve(table hospital.Table, index int, q recommender.Query, depth int) slot {
	if err := recommender.ValidateQuery(q); err != nil {
		return slot{failure: &Failure{Index: index, Query: q, Code: apperrors.CodeOf(err), Reason: err.Error()}}
	}
	relevant := hospital.RelevanceSet(table, q.State)
	if len(relevant) == 0 {
		return slot{failure: &Failure{
			Index:  index,
			Query:  q,
			Code:   apperrors.CodeNoRelevantItems,
			Reason: "state " + q.State + " has no rated hospitals",
		}}
	}
	return slot{entry: Entry{
		Index:       index,
		Query:       q,
		Recommended: recommender.Recommend(table, q, depth),
		Relevant:    relevant,
	}}
}
