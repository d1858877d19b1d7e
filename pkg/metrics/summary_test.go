package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	got := Summarize([]float64{0, 0.25, 0.5, 1}, 4)

	require.Equal(t, 4, got.Count)
	require.InDelta(t, 0.4375, got.Mean, 1e-9)
	require.Equal(t, 0.0, got.Min)
	require.Equal(t, 1.0, got.Max)
	require.Len(t, got.Histogram, 4)
	require.Equal(t, 1, got.Histogram[0].Count)
	require.Equal(t, 1, got.Histogram[1].Count)
	require.Equal(t, 1, got.Histogram[2].Count)
	require.Equal(t, 1, got.Histogram[3].Count, "upper edge lands in the last bucket")
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, 0)
	require.Zero(t, got.Count)
	require.Len(t, got.Histogram, DefaultBins)
	require.Zero(t, got.Mean)
}

func TestMean(t *testing.T) {
	require.Equal(t, 0.75, Mean([]float64{0.5, 1.0}))
	require.Zero(t, Mean(nil))
}
