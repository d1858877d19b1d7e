package metrics

import "math"

// Bin is one fixed-width histogram bucket over [Lower, Upper).
// The last bucket of a histogram also includes its upper edge.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Summary describes the distribution of a per-query metric.
type Summary struct {
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Histogram []Bin   `json:"histogram"`
}

// DefaultBins matches the ten-bucket histograms used for ranking metrics in [0,1].
const DefaultBins = 10

// Summarize computes a Summary of values with bins equal-width buckets over [0,1].
// Ranking metrics are bounded by 1, so values are clamped into that range for bucketing.
func Summarize(values []float64, bins int) Summary {
	if bins <= 0 {
		bins = DefaultBins
	}
	hist := make([]Bin, bins)
	width := 1.0 / float64(bins)
	for i := range hist {
		hist[i] = Bin{Lower: float64(i) * width, Upper: float64(i+1) * width}
	}
	if len(values) == 0 {
		return Summary{Histogram: hist}
	}

	sum := 0.0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)

		idx := int(math.Floor(clamp01(v) / width))
		if idx >= bins {
			idx = bins - 1
		}
		hist[idx].Count++
	}
	return Summary{
		Count:     len(values),
		Mean:      sum / float64(len(values)),
		Min:       lo,
		Max:       hi,
		Histogram: hist,
	}
}

// Mean is the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
