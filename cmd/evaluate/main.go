// Command evaluate runs one offline batch evaluation of the recommender and
// prints the JSON report to stdout. Logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/yanqian/carefinder/internal/domain/evaluation"
	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/domain/recommender"
	"github.com/yanqian/carefinder/internal/infra/cms"
	"github.com/yanqian/carefinder/internal/infra/config"
	"github.com/yanqian/carefinder/internal/infra/hospitalrepo"
	"github.com/yanqian/carefinder/internal/infra/tablecache"
	"github.com/yanqian/carefinder/pkg/logger"
)

type options struct {
	configPath  string
	ratingsPath string
	surveyPath  string
	queriesPath string
	metrics     string
	count       int
	seed        *int64
	depth       int
	precisionAt int
	apCutoff    int
	ndcgAt      int
	ndcgBase    float64
	workers     int
	rows        bool
}

func main() {
	opts := parseFlags(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "evaluate: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) options {
	var o options
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	fs.StringVar(&o.configPath, "config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	fs.StringVar(&o.ratingsPath, "ratings", "", "local hospital general information CSV (implies file source)")
	fs.StringVar(&o.surveyPath, "survey", "", "local HCAHPS survey CSV (implies file source)")
	fs.StringVar(&o.queriesPath, "queries", "", "JSON file with an explicit query list; overrides -count and -seed")
	fs.StringVar(&o.metrics, "metrics", "", "comma separated metrics (precision,recall,average_precision,ndcg)")
	fs.IntVar(&o.count, "count", 0, "number of generated queries (0 uses the configured default)")
	seed := fs.Int64("seed", 0, "query generator seed (defaults to the configured seed when unset)")
	fs.IntVar(&o.depth, "depth", 0, "recommendations retrieved per query")
	fs.IntVar(&o.precisionAt, "precision-at", 0, "precision/recall cutoff, negative for the full list")
	fs.IntVar(&o.apCutoff, "ap-cutoff", 0, "average precision cutoff, negative for the full list")
	fs.IntVar(&o.ndcgAt, "ndcg-at", 0, "nDCG cutoff, negative for the full list")
	fs.Float64Var(&o.ndcgBase, "ndcg-base", 0, "nDCG logarithm base")
	fs.IntVar(&o.workers, "workers", 0, "parallel retrieval workers")
	fs.BoolVar(&o.rows, "rows", true, "include per-query rows in the report")
	_ = fs.Parse(args)
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			o.seed = seed
		}
	})
	return o
}

func run(ctx context.Context, o options, stdout, stderr io.Writer) error {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.ratingsPath != "" || o.surveyPath != "" {
		cfg.Catalog.Source = config.SourceFile
		cfg.Catalog.RatingsPath = o.ratingsPath
		cfg.Catalog.SurveyPath = o.surveyPath
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	log := logger.NewWithWriter(stderr, cfg.Logging.Level)

	catalog := hospital.NewCatalog(
		hospital.CatalogConfig{TTL: cfg.Catalog.TTL},
		cms.NewSource(cfg.Catalog),
		tablecache.NewMemoryStore(),
		hospitalrepo.NewMemoryRepository(),
		log,
	)
	svc := evaluation.NewService(cfg.Evaluation.ServiceConfig(), catalog, nil, log)

	req, err := buildRequest(o)
	if err != nil {
		return err
	}
	report, err := svc.Evaluate(ctx, req)
	if err != nil {
		return err
	}
	if !o.rows {
		report.Rows = nil
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func buildRequest(o options) (evaluation.Request, error) {
	req := evaluation.Request{
		Count: o.count,
		Seed:  o.seed,
		Params: evaluation.Params{
			RetrievalDepth:         o.depth,
			PrecisionAt:            o.precisionAt,
			AveragePrecisionCutoff: o.apCutoff,
			NDCGAt:                 o.ndcgAt,
			NDCGBase:               o.ndcgBase,
			Workers:                o.workers,
		},
	}
	for _, name := range strings.Split(o.metrics, ",") {
		if name = strings.TrimSpace(name); name != "" {
			req.Metrics = append(req.Metrics, evaluation.Metric(name))
		}
	}
	if o.queriesPath != "" {
		raw, err := os.ReadFile(o.queriesPath)
		if err != nil {
			return evaluation.Request{}, fmt.Errorf("read queries: %w", err)
		}
		var queries []recommender.Query
		if err := json.Unmarshal(raw, &queries); err != nil {
			return evaluation.Request{}, fmt.Errorf("decode queries: %w", err)
		}
		req.Queries = queries
	}
	return req, nil
}
