package cms

import (
	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/infra/config"
)

// NewSource picks the download client or the local file reader per cfg.Source.
func NewSource(cfg config.CatalogConfig) hospital.Source {
	opts := Options{
		RequiredAnswers: cfg.RequiredAnswers,
		EmergencyOnly:   cfg.EmergencyOnly,
	}
	if cfg.Source == config.SourceFile {
		return NewFileSource(cfg.RatingsPath, cfg.SurveyPath, opts)
	}
	return NewClient(cfg.RatingsURL, cfg.SurveyURL, cfg.FetchTimeout, opts)
}
