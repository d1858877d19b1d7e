package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

type stubSource struct {
	table hospital.Table
	err   error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(context.Context) (hospital.Table, error) { return s.table, s.err }

func TestInstrumentSourceCountsOutcomes(t *testing.T) {
	m := New()
	src := &stubSource{table: hospital.Table{{FacilityID: "1"}, {FacilityID: "2"}}}
	wrapped := m.InstrumentSource(src)
	require.Equal(t, "stub", wrapped.Name())

	table, err := wrapped.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 2)
	require.Equal(t, 1.0, testutil.ToFloat64(m.catalogFetches.WithLabelValues("stub", "ok")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.catalogRows))

	src.err = errors.New("down")
	_, err = wrapped.Fetch(context.Background())
	require.Error(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.catalogFetches.WithLabelValues("stub", "error")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.catalogRows), "failed fetch leaves the row gauge alone")
}

func TestObserveEvaluation(t *testing.T) {
	m := New()
	m.ObserveEvaluation(90, 10, 250*time.Millisecond)
	m.ObserveEvaluation(5, 0, time.Second)

	require.Equal(t, 2.0, testutil.ToFloat64(m.evaluationRuns))
	require.Equal(t, 95.0, testutil.ToFloat64(m.evaluationRows.WithLabelValues("evaluated")))
	require.Equal(t, 10.0, testutil.ToFloat64(m.evaluationRows.WithLabelValues("failed")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/v1/states", http.StatusOK, 5*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `carefinder_http_requests_total{method="GET",route="/api/v1/states",status="200"} 1`), body)
	require.Contains(t, body, `route="unmatched"`)
}
