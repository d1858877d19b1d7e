package cms

import (
	"context"
	"fmt"
	"os"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

// FileSource reads CMS exports previously saved to disk.
type FileSource struct {
	generalInfoPath string
	surveyPath      string
	opts            Options
}

var _ hospital.Source = (*FileSource)(nil)

// NewFileSource builds a source over two local CSV exports.
func NewFileSource(generalInfoPath, surveyPath string, opts Options) *FileSource {
	return &FileSource{generalInfoPath: generalInfoPath, surveyPath: surveyPath, opts: opts}
}

// Name identifies the source in snapshots and logs.
func (s *FileSource) Name() string { return "cms-file" }

// Fetch parses both files into a hospital table.
func (s *FileSource) Fetch(ctx context.Context) (hospital.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	general, err := os.Open(s.generalInfoPath)
	if err != nil {
		return nil, fmt.Errorf("open general information export: %w", err)
	}
	defer general.Close()

	survey, err := os.Open(s.surveyPath)
	if err != nil {
		return nil, fmt.Errorf("open survey export: %w", err)
	}
	defer survey.Close()

	return Build(general, survey, s.opts)
}
