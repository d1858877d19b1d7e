package evaluation

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/domain/recommender"
	apperrors "github.com/yanqian/carefinder/pkg/errors"
)

// GeneratorConfig controls synthetic query generation.
type GeneratorConfig struct {
	Seed int64
	// LowerFromData draws each target from [floor(min observed rating), Upper].
	// When false, Lower supplies the per-field lower bounds.
	LowerFromData bool
	Lower         hospital.Ratings
	Upper         int
}

// GenerateQueries draws n queries: a state picked uniformly with replacement
// from the table's states, then four integer targets in [lower, upper].
// Draw order is fixed, so the same seed and table always give the same queries.
func GenerateQueries(table hospital.Table, n int, cfg GeneratorConfig) ([]recommender.Query, error) {
	if n < 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "query count cannot be negative", nil)
	}
	states := table.States()
	if len(states) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "cannot generate queries from an empty hospital table", nil)
	}

	upper := cfg.Upper
	if upper <= 0 {
		upper = recommender.MaxRating
	}
	lower := cfg.Lower
	if cfg.LowerFromData {
		lower = table.MinRatings()
	}
	bounds := lower.Vector()
	lows := [4]int{}
	for i, v := range bounds {
		lows[i] = int(math.Floor(v))
		if lows[i] < 0 {
			lows[i] = 0
		}
		if lows[i] > upper {
			return nil, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("%s lower bound %d exceeds upper bound %d", hospital.CategoryNames[i], lows[i], upper), nil)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible workloads, not security
	randint := func(lo int) float64 {
		return float64(lo + rng.Intn(upper-lo+1))
	}

	queries := make([]recommender.Query, 0, n)
	for i := 0; i < n; i++ {
		state := states[rng.Intn(len(states))]
		queries = append(queries, recommender.Query{
			State:   state,
			Doctor:  randint(lows[0]),
			Nurse:   randint(lows[1]),
			Staff:   randint(lows[2]),
			Patient: randint(lows[3]),
		})
	}
	return queries, nil
}
