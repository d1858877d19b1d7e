package evaluation

import (
	"math"

	"github.com/yanqian/carefinder/internal/domain/recommender"
)

// DefaultNDCGBase is the logarithm base for the DCG discount.
const DefaultNDCGBase = 2.0

func truncate(recs []recommender.Recommendation, n int) []recommender.Recommendation {
	if n < 0 || n > len(recs) {
		return recs
	}
	return recs[:n]
}

func relevantIDs(e Entry) map[string]int {
	ids := make(map[string]int, len(e.Relevant))
	for i, h := range e.Relevant {
		ids[h.FacilityID] = i
	}
	return ids
}

// PrecisionRecall scores one entry at cutoff n. A negative n, or one past the
// end of the retrieved list, scores the whole list. Both values are 0 when
// nothing relevant was retrieved.
func PrecisionRecall(e Entry, n int) (precision, recall float64) {
	retrieved := truncate(e.Recommended, n)
	rel := relevantIDs(e)
	hit := 0
	for _, r := range retrieved {
		if _, ok := rel[r.Hospital.FacilityID]; ok {
			hit++
		}
	}
	if hit == 0 {
		return 0, 0
	}
	return float64(hit) / float64(len(retrieved)), float64(hit) / float64(len(rel))
}

// AveragePrecision sums hits-so-far/rank over the relevant ranks of the
// first cutoff retrieved items and divides by the relevance-set size.
func AveragePrecision(e Entry, cutoff int) float64 {
	rel := relevantIDs(e)
	if len(rel) == 0 {
		return 0
	}
	hits := 0
	sum := 0.0
	for j, r := range truncate(e.Recommended, cutoff) {
		if _, ok := rel[r.Hospital.FacilityID]; ok {
			hits++
			sum += float64(hits) / float64(j+1)
		}
	}
	return sum / float64(len(rel))
}

// PrecisionRecallAt scores every entry at cutoff n, in corpus order.
func PrecisionRecallAt(entries []Entry, n int) (precision, recall []float64) {
	precision = make([]float64, len(entries))
	recall = make([]float64, len(entries))
	for i, e := range entries {
		precision[i], recall[i] = PrecisionRecall(e, n)
	}
	return precision, recall
}

// AveragePrecisionAt returns the per-entry average precision at cutoff.
func AveragePrecisionAt(entries []Entry, cutoff int) []float64 {
	aps := make([]float64, len(entries))
	for i, e := range entries {
		aps[i] = AveragePrecision(e, cutoff)
	}
	return aps
}

// MeanAveragePrecision averages AveragePrecision over the corpus. An empty
// corpus scores 0.
func MeanAveragePrecision(entries []Entry, cutoff int) (float64, []float64) {
	aps := AveragePrecisionAt(entries, cutoff)
	if len(aps) == 0 {
		return 0, aps
	}
	total := 0.0
	for _, v := range aps {
		total += v
	}
	return total / float64(len(aps)), aps
}

// idealGains grades the relevance set from |rel|+1 down to 2, then pads with
// unit gains so every retrieved position has a counterpart.
func idealGains(relevant, retrieved int) []float64 {
	size := relevant
	if retrieved > size {
		size = retrieved
	}
	gains := make([]float64, 0, size)
	for g := relevant + 1; g > 1; g-- {
		gains = append(gains, float64(g))
	}
	for len(gains) < size {
		gains = append(gains, 1)
	}
	return gains
}

// dcg applies a log discount; positions below base keep their full gain.
func dcg(gains []float64, base float64) float64 {
	logBase := math.Log(base)
	total := 0.0
	for i, g := range gains {
		p := float64(i + 1)
		if p < base {
			total += g
			continue
		}
		total += g / (math.Log(p) / logBase)
	}
	return total
}

// NDCG scores one entry. A relevant item's gain is the ideal gain at its
// position in the relevance set; every other item gains 1. n truncates the
// retrieved gains (negative means all) and the ideal list is cut to the same
// length. Returns 0 when the ideal DCG is 0.
func NDCG(e Entry, n int, base float64) float64 {
	if base <= 1 {
		base = DefaultNDCGBase
	}
	rel := relevantIDs(e)
	ideal := idealGains(len(e.Relevant), len(e.Recommended))

	scores := make([]float64, 0, len(e.Recommended))
	for _, r := range e.Recommended {
		if idx, ok := rel[r.Hospital.FacilityID]; ok {
			scores = append(scores, ideal[idx])
			continue
		}
		scores = append(scores, 1)
	}
	if n >= 0 && n <= len(scores) {
		scores = scores[:n]
	}
	ideal = ideal[:len(scores)]

	idcg := dcg(ideal, base)
	if idcg == 0 {
		return 0
	}
	return dcg(scores, base) / idcg
}

// NDCGAt returns the per-entry nDCG at cutoff n.
func NDCGAt(entries []Entry, n int, base float64) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = NDCG(e, n, base)
	}
	return out
}
