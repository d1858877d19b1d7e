package hospital

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/carefinder/pkg/errors"
)

func sampleTable() Table {
	return Table{
		{FacilityID: "1", State: "CA", Ratings: Ratings{80, 80, 80, 80}, OverallRating: 5},
		{FacilityID: "2", State: "CA", Ratings: Ratings{50, 50, 50, 50}, OverallRating: 3},
		{FacilityID: "3", State: "NV", Ratings: Ratings{70, 60, 40, 90}, OverallRating: 4},
		{FacilityID: "4", State: "CA", Ratings: Ratings{65, 88, 71, 62}, OverallRating: 5},
		{FacilityID: "5", State: "NV", Ratings: Ratings{72, 61, 55, 93}, OverallRating: 2},
	}
}

func TestTableValidate(t *testing.T) {
	require.NoError(t, sampleTable().Validate())

	cases := []struct {
		name   string
		mutate func(Table) Table
	}{
		{name: "duplicate id", mutate: func(tb Table) Table { tb[1].FacilityID = "1"; return tb }},
		{name: "empty id", mutate: func(tb Table) Table { tb[0].FacilityID = " "; return tb }},
		{name: "empty state", mutate: func(tb Table) Table { tb[2].State = ""; return tb }},
		{name: "nan rating", mutate: func(tb Table) Table { tb[3].Ratings.Staffs = math.NaN(); return tb }},
		{name: "overall out of range", mutate: func(tb Table) Table { tb[4].OverallRating = 0; return tb }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mutate(sampleTable()).Validate()
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTable))
		})
	}
}

func TestTableStatesKeepsFirstAppearanceOrder(t *testing.T) {
	require.Equal(t, []string{"CA", "NV"}, sampleTable().States())
	require.Empty(t, Table{}.States())
}

func TestTableInStateDoesNotMutate(t *testing.T) {
	tb := sampleTable()
	ca := tb.InState("CA")
	require.Len(t, ca, 3)
	require.Equal(t, []string{"1", "2", "4"}, ids(ca))

	ca[0].Name = "changed"
	require.Empty(t, tb[0].Name)
	require.Empty(t, tb.InState("TX"))
}

func TestTableMinRatings(t *testing.T) {
	require.Equal(t, Ratings{Doctors: 50, Nurses: 50, Staffs: 40, Patients: 50}, sampleTable().MinRatings())
	require.Equal(t, Ratings{}, Table{}.MinRatings())
}

func TestRelevanceSet(t *testing.T) {
	tb := sampleTable()
	require.Equal(t, []string{"1", "4"}, ids(RelevanceSet(tb, "CA")))
	require.Equal(t, []string{"3"}, ids(RelevanceSet(tb, "NV")))
	require.Empty(t, RelevanceSet(tb, "TX"))
}

func ids(tb Table) []string {
	out := make([]string, 0, len(tb))
	for _, h := range tb {
		out = append(out, h.FacilityID)
	}
	return out
}
