package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yanqian/carefinder/internal/domain/evaluation"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Recommend  RecommendConfig  `yaml:"recommend"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Cache      CacheConfig      `yaml:"cache"`
	Postgres   PostgresConfig   `yaml:"postgres"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
	CORSOrigins  []string        `yaml:"corsOrigins"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RecommendConfig bounds interactive recommendation requests.
type RecommendConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxLimit     int `yaml:"maxLimit"`
}

// EvaluationConfig holds batch evaluation defaults.
type EvaluationConfig struct {
	Seed                   int64   `yaml:"seed"`
	QueryCount             int     `yaml:"queryCount"`
	MaxQueries             int     `yaml:"maxQueries"`
	RetrievalDepth         int     `yaml:"retrievalDepth"`
	Workers                int     `yaml:"workers"`
	PrecisionAt            int     `yaml:"precisionAt"`
	AveragePrecisionCutoff int     `yaml:"averagePrecisionCutoff"`
	NDCGAt                 int     `yaml:"ndcgAt"`
	NDCGBase               float64 `yaml:"ndcgBase"`
	LowerFromData          bool    `yaml:"lowerFromData"`
	HistogramBins          int     `yaml:"histogramBins"`
}

// ServiceConfig maps the evaluation section onto the evaluation service defaults.
func (e EvaluationConfig) ServiceConfig() evaluation.Config {
	return evaluation.Config{
		Seed:                   e.Seed,
		QueryCount:             e.QueryCount,
		MaxQueries:             e.MaxQueries,
		RetrievalDepth:         e.RetrievalDepth,
		Workers:                e.Workers,
		PrecisionAt:            e.PrecisionAt,
		AveragePrecisionCutoff: e.AveragePrecisionCutoff,
		NDCGAt:                 e.NDCGAt,
		NDCGBase:               e.NDCGBase,
		LowerFromData:          e.LowerFromData,
		HistogramBins:          e.HistogramBins,
	}
}

// CatalogConfig controls where hospital data comes from and how long it is trusted.
type CatalogConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	Source          string        `yaml:"source"`
	RatingsURL      string        `yaml:"ratingsUrl"`
	SurveyURL       string        `yaml:"surveyUrl"`
	RatingsPath     string        `yaml:"ratingsPath"`
	SurveyPath      string        `yaml:"surveyPath"`
	RequiredAnswers int           `yaml:"requiredAnswers"`
	EmergencyOnly   bool          `yaml:"emergencyOnly"`
	FetchTimeout    time.Duration `yaml:"fetchTimeout"`
}

// Catalog source kinds.
const (
	SourceHTTP = "http"
	SourceFile = "file"
)

// CacheConfig groups cache backends.
type CacheConfig struct {
	Valkey ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig contains connection information for cache and queue storage.
type ValkeyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile is Load with an explicit path. An empty path falls back to
// configs/config.yaml when it exists.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func envBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		origins := make([]string, 0)
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.HTTP.CORSOrigins = origins
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = envBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = envBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RECOMMEND_DEFAULT_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Recommend.DefaultLimit = parsed
		}
	}
	if v := os.Getenv("RECOMMEND_MAX_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Recommend.MaxLimit = parsed
		}
	}
	if v := os.Getenv("EVALUATION_SEED"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Evaluation.Seed = parsed
		}
	}
	if v := os.Getenv("EVALUATION_QUERY_COUNT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Evaluation.QueryCount = parsed
		}
	}
	if v := os.Getenv("EVALUATION_WORKERS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Evaluation.Workers = parsed
		}
	}
	if v := os.Getenv("CATALOG_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Catalog.TTL = parsed
		}
	}
	if v := os.Getenv("CATALOG_SOURCE"); v != "" {
		cfg.Catalog.Source = v
	}
	if v := os.Getenv("CATALOG_RATINGS_URL"); v != "" {
		cfg.Catalog.RatingsURL = v
	}
	if v := os.Getenv("CATALOG_SURVEY_URL"); v != "" {
		cfg.Catalog.SurveyURL = v
	}
	if v := os.Getenv("CATALOG_RATINGS_PATH"); v != "" {
		cfg.Catalog.RatingsPath = v
	}
	if v := os.Getenv("CATALOG_SURVEY_PATH"); v != "" {
		cfg.Catalog.SurveyPath = v
	}
	if v := os.Getenv("VALKEY_ENABLED"); v != "" {
		cfg.Cache.Valkey.Enabled = envBool(v)
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Cache.Valkey.Addr = v
	}
	if v := os.Getenv("VALKEY_PASSWORD"); v != "" {
		cfg.Cache.Valkey.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/evaluations",
					"/api/v1/catalog/refresh",
				},
			},
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{Level: "info"},
		Recommend: RecommendConfig{
			DefaultLimit: 5,
			MaxLimit:     100,
		},
		Evaluation: EvaluationConfig{
			Seed:                   42,
			QueryCount:             5000,
			MaxQueries:             20000,
			RetrievalDepth:         100,
			PrecisionAt:            10,
			AveragePrecisionCutoff: 10,
			NDCGAt:                 -1,
			NDCGBase:               2,
			LowerFromData:          true,
			HistogramBins:          10,
		},
		Catalog: CatalogConfig{
			TTL:             3 * time.Hour,
			Source:          SourceHTTP,
			RatingsURL:      "https://data.cms.gov/provider-data/api/1/datastore/query/xubh-q36u/0/download?format=csv",
			SurveyURL:       "https://data.cms.gov/provider-data/api/1/datastore/query/dgck-syfz/0/download?format=csv",
			RequiredAnswers: 72,
			EmergencyOnly:   true,
			FetchTimeout:    2 * time.Minute,
		},
		Cache: CacheConfig{
			Valkey: ValkeyConfig{
				Enabled: false,
				Prefix:  "carefinder",
			},
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
			MinConns: 0,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if c.Recommend.DefaultLimit <= 0 {
		return errors.New("recommend.defaultLimit must be positive")
	}
	if c.Recommend.MaxLimit < c.Recommend.DefaultLimit {
		return errors.New("recommend.maxLimit cannot be below recommend.defaultLimit")
	}
	if c.Evaluation.QueryCount <= 0 {
		return errors.New("evaluation.queryCount must be positive")
	}
	if c.Evaluation.MaxQueries < c.Evaluation.QueryCount {
		return errors.New("evaluation.maxQueries cannot be below evaluation.queryCount")
	}
	if c.Evaluation.RetrievalDepth <= 0 {
		return errors.New("evaluation.retrievalDepth must be positive")
	}
	if c.Evaluation.Workers < 0 {
		return errors.New("evaluation.workers cannot be negative")
	}
	if c.Evaluation.PrecisionAt == 0 || c.Evaluation.AveragePrecisionCutoff == 0 || c.Evaluation.NDCGAt == 0 {
		return errors.New("evaluation cutoffs must be positive or -1 for the full list")
	}
	if c.Evaluation.NDCGBase <= 1 {
		return errors.New("evaluation.ndcgBase must be greater than 1")
	}
	if c.Catalog.TTL < 0 {
		return errors.New("catalog.ttl cannot be negative")
	}
	switch c.Catalog.Source {
	case SourceHTTP:
		if strings.TrimSpace(c.Catalog.RatingsURL) == "" || strings.TrimSpace(c.Catalog.SurveyURL) == "" {
			return errors.New("catalog.ratingsUrl and catalog.surveyUrl are required for the http source")
		}
	case SourceFile:
		if strings.TrimSpace(c.Catalog.RatingsPath) == "" || strings.TrimSpace(c.Catalog.SurveyPath) == "" {
			return errors.New("catalog.ratingsPath and catalog.surveyPath are required for the file source")
		}
	default:
		return fmt.Errorf("catalog.source must be %q or %q", SourceHTTP, SourceFile)
	}
	if c.Catalog.FetchTimeout <= 0 {
		return errors.New("catalog.fetchTimeout must be positive")
	}
	if c.Catalog.RequiredAnswers <= 0 {
		return errors.New("catalog.requiredAnswers must be positive")
	}
	if c.Cache.Valkey.Enabled && strings.TrimSpace(c.Cache.Valkey.Addr) == "" {
		return errors.New("cache.valkey.addr cannot be empty when valkey is enabled")
	}
	return nil
}
