package recommender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/carefinder/internal/domain/hospital"
	apperrors "github.com/yanqian/carefinder/pkg/errors"
)

func TestServiceRecommendSuccess(t *testing.T) {
	svc := NewService(Config{DefaultLimit: 5, MaxLimit: 20}, &stubCatalog{table: mixedTable()}, newTestLogger())

	resp, err := svc.Recommend(context.Background(), Request{
		Query: Query{State: " tx ", Doctor: 85, Nurse: 55, Staff: 60, Patient: 75},
		Limit: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "TX", resp.Query.State)
	require.Len(t, resp.Recommendations, 2)
}

func TestServiceRecommendDefaultsLimit(t *testing.T) {
	svc := NewService(Config{DefaultLimit: 3, MaxLimit: 10}, &stubCatalog{table: mixedTable()}, newTestLogger())

	resp, err := svc.Recommend(context.Background(), Request{Query: Query{State: "TX", Doctor: 50, Nurse: 50, Staff: 50, Patient: 50}})
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 3)
}

func TestServiceRecommendUnknownStateIsEmpty(t *testing.T) {
	svc := NewService(Config{}, &stubCatalog{table: mixedTable()}, newTestLogger())

	resp, err := svc.Recommend(context.Background(), Request{Query: Query{State: "ME", Doctor: 50, Nurse: 50, Staff: 50, Patient: 50}})
	require.NoError(t, err)
	require.Empty(t, resp.Recommendations)
}

func TestServiceRecommendInvalidInput(t *testing.T) {
	svc := NewService(Config{DefaultLimit: 5, MaxLimit: 10}, &stubCatalog{table: mixedTable()}, newTestLogger())

	cases := []Request{
		{Query: Query{State: "Texas", Doctor: 50}},
		{Query: Query{State: "T1", Doctor: 50}},
		{Query: Query{State: "TX", Doctor: 101}},
		{Query: Query{State: "TX", Patient: -1}},
		{Query: Query{State: "TX"}, Limit: -3},
		{Query: Query{State: "TX"}, Limit: 11},
	}
	for _, req := range cases {
		_, err := svc.Recommend(context.Background(), req)
		require.Error(t, err)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput), "request %+v", req)
	}
}

func TestServiceRecommendPropagatesCatalogError(t *testing.T) {
	boom := apperrors.Wrap(apperrors.CodeCatalog, "hospital table unavailable", errors.New("down"))
	svc := NewService(Config{}, &stubCatalog{err: boom}, newTestLogger())

	_, err := svc.Recommend(context.Background(), Request{Query: Query{State: "TX", Doctor: 1}})
	require.ErrorIs(t, err, boom)
}

func TestServiceStates(t *testing.T) {
	svc := NewService(Config{}, &stubCatalog{table: mixedTable()}, newTestLogger())

	states, err := svc.States(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"TX", "OK"}, states)
}

type stubCatalog struct {
	table hospital.Table
	err   error
}

func (s *stubCatalog) Hospitals(ctx context.Context) (hospital.Table, error) {
	return s.table, s.err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
