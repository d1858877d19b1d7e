package cms

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

const (
	defaultGeneralInfoURL = "https://data.cms.gov/provider-data/api/1/datastore/query/xubh-q36u/0/download?format=csv"
	defaultSurveyURL      = "https://data.cms.gov/provider-data/api/1/datastore/query/dgck-syfz/0/download?format=csv"
)

// Client downloads the CMS provider-data exports.
type Client struct {
	generalInfoURL string
	surveyURL      string
	opts           Options
	httpClient     *http.Client
}

var _ hospital.Source = (*Client)(nil)

// NewClient builds a CMS download client. Empty URLs fall back to the
// public data.cms.gov endpoints.
func NewClient(generalInfoURL, surveyURL string, timeout time.Duration, opts Options) *Client {
	if strings.TrimSpace(generalInfoURL) == "" {
		generalInfoURL = defaultGeneralInfoURL
	}
	if strings.TrimSpace(surveyURL) == "" {
		surveyURL = defaultSurveyURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		generalInfoURL: generalInfoURL,
		surveyURL:      surveyURL,
		opts:           opts,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name identifies the source in snapshots and logs.
func (c *Client) Name() string { return "cms-http" }

// Fetch downloads both exports in parallel and builds the hospital table.
func (c *Client) Fetch(ctx context.Context) (hospital.Table, error) {
	var general, survey []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := c.download(gctx, c.generalInfoURL)
		general = body
		return err
	})
	g.Go(func() error {
		body, err := c.download(gctx, c.surveyURL)
		survey = body
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Build(bytes.NewReader(general), bytes.NewReader(survey), c.opts)
}

func (c *Client) download(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build cms request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("cms request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cms response: %w", err)
	}
	return body, nil
}
