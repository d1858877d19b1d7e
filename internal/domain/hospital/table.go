package hospital

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/yanqian/carefinder/pkg/errors"
)

// Table is an ordered hospital table. Row order is significant: it breaks
// similarity ties and orders relevance sets. Methods never mutate the receiver.
type Table []Hospital

// Validate checks the data contract the recommender relies on.
func (t Table) Validate() error {
	seen := make(map[string]int, len(t))
	for i, h := range t {
		id := strings.TrimSpace(h.FacilityID)
		if id == "" {
			return apperrors.Wrap(apperrors.CodeInvalidTable, fmt.Sprintf("row %d: facility id is empty", i), nil)
		}
		if prev, ok := seen[id]; ok {
			return apperrors.Wrap(apperrors.CodeInvalidTable, fmt.Sprintf("row %d: facility id %q duplicates row %d", i, id, prev), nil)
		}
		seen[id] = i
		if strings.TrimSpace(h.State) == "" {
			return apperrors.Wrap(apperrors.CodeInvalidTable, fmt.Sprintf("row %d (%s): state is empty", i, id), nil)
		}
		for j, v := range h.Ratings.Vector() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return apperrors.Wrap(apperrors.CodeInvalidTable, fmt.Sprintf("row %d (%s): %s rating is not a finite number", i, id, CategoryNames[j]), nil)
			}
		}
		if h.OverallRating < 1 || h.OverallRating > 5 {
			return apperrors.Wrap(apperrors.CodeInvalidTable, fmt.Sprintf("row %d (%s): overall rating %d outside 1-5", i, id, h.OverallRating), nil)
		}
	}
	return nil
}

// CategoryNames lists the rating categories in vector order.
var CategoryNames = [4]string{"doctors", "nurses", "staffs", "patients"}

// States returns the distinct states in order of first appearance.
func (t Table) States() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, h := range t {
		if _, ok := seen[h.State]; ok {
			continue
		}
		seen[h.State] = struct{}{}
		out = append(out, h.State)
	}
	return out
}

// InState returns a new table with the rows of state, keeping row order.
func (t Table) InState(state string) Table {
	out := make(Table, 0)
	for _, h := range t {
		if h.State == state {
			out = append(out, h)
		}
	}
	return out
}

// MinRatings returns the per-category minimum over all rows. An empty table yields zeros.
func (t Table) MinRatings() Ratings {
	if len(t) == 0 {
		return Ratings{}
	}
	out := t[0].Ratings
	for _, h := range t[1:] {
		out.Doctors = math.Min(out.Doctors, h.Ratings.Doctors)
		out.Nurses = math.Min(out.Nurses, h.Ratings.Nurses)
		out.Staffs = math.Min(out.Staffs, h.Ratings.Staffs)
		out.Patients = math.Min(out.Patients, h.Ratings.Patients)
	}
	return out
}

// Clone returns a copy that shares no backing array with t.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// RelevanceSet returns the ground truth for state: the rows sharing the
// highest overall rating present in that state, in table order. The set is
// empty only when the state has no rows.
func RelevanceSet(t Table, state string) Table {
	rows := t.InState(state)
	best := 0
	for _, h := range rows {
		if h.OverallRating > best {
			best = h.OverallRating
		}
	}
	out := make(Table, 0)
	if best == 0 {
		return out
	}
	for _, h := range rows {
		if h.OverallRating == best {
			out = append(out, h)
		}
	}
	return out
}
