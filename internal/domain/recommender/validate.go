package recommender

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/yanqian/carefinder/pkg/errors"
)

// MaxRating is the upper end of the survey rating scale.
const MaxRating = 100

// ValidateQuery rejects malformed queries before they reach the ranking core.
// A well-formed state with no hospitals is valid; it simply ranks nothing.
func ValidateQuery(q Query) error {
	if !isStateCode(q.State) {
		return apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("state %q must be a two-letter code", q.State), nil)
	}
	targets := q.Vector()
	for i, name := range [4]string{"doctorRating", "nursesRating", "staffRating", "patientRating"} {
		v := targets[i]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxRating {
			return apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("%s must be between 0 and %d", name, MaxRating), nil)
		}
	}
	return nil
}

// NormalizeState upper-cases and trims a state code.
func NormalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func isStateCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
