package recommender

import (
	"math"
	"sort"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

// Recommend ranks the hospitals of query.State by cosine similarity between
// their ratings and the query targets, returning at most k entries.
//
// Ties keep table order. A state without hospitals yields an empty slice.
// The table is only read.
func Recommend(table hospital.Table, query Query, k int) []Recommendation {
	if k <= 0 {
		return []Recommendation{}
	}
	target := query.Vector()
	rows := table.InState(query.State)
	candidates := make([]Recommendation, 0, len(rows))
	for _, h := range rows {
		candidates = append(candidates, Recommendation{
			Hospital:   h,
			Similarity: CosineSimilarity(target, h.Ratings.Vector()),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// CosineSimilarity returns a·b / (‖a‖‖b‖), or 0 when either vector has zero norm.
func CosineSimilarity(a, b [4]float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
