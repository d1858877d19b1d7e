package cms

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/carefinder/internal/infra/config"
)

const generalInfoCSV = `facility_id,facility_name,address,citytown,state,zip_code,countyparish,telephone_number,hospital_type,hospital_ownership,emergency_services,meets_criteria_for_promoting_interoperability_of_ehrs,hospital_overall_rating
010006,SIXTH GENERAL,6 MAIN ST,AUSTIN,TX,78701,TRAVIS,(512) 555-0106,Acute Care Hospitals,Voluntary non-profit - Private,Yes,Y,3
010001,FIRST MEDICAL CENTER,1 MAIN ST,DOTHAN,AL,36301,HOUSTON,(334) 555-0101,Acute Care Hospitals,Government - Hospital District or Authority,Yes,Y,4
010002,SECOND HOSPITAL,2 MAIN ST,BOAZ,AL,35957,MARSHALL,(256) 555-0102,Acute Care Hospitals,Proprietary,Yes,Y,2
010003,THIRD HOSPITAL,3 MAIN ST,FLORENCE,AL,35631,LAUDERDALE,(256) 555-0103,Acute Care Hospitals,Proprietary,Yes,Y,5
010004,FOURTH HOSPITAL,4 MAIN ST,OPP,AL,36467,COVINGTON,(334) 555-0104,Critical Access Hospitals,Proprietary,Yes,Y,Not Available
010005,FIFTH HOSPITAL,5 MAIN ST,MOBILE,AL,36608,MOBILE,(251) 555-0105,Acute Care Hospitals,Proprietary,No,Y,5
`

func surveyCSV() string {
	var b strings.Builder
	b.WriteString("facility_id,facility_name,hcahps_measure_id,hcahps_question,hcahps_answer_percent\n")
	row := func(id, measure, percent string) {
		fmt.Fprintf(&b, "%s,HOSPITAL %s,%s,\"Question, %s\",%s\n", id, id, measure, measure, percent)
	}
	complete := func(id string) {
		row(id, "H_COMP_1_A_P", "80")
		row(id, "H_NURSE_RESPECT_A_P", "90")
		row(id, "H_COMP_2_A_P", "70")
		row(id, "H_COMP_3_A_P", "60")
		row(id, "H_COMP_5_A_P", "50")
		row(id, "H_HSP_RATING_0_6", "Not Available")
	}
	complete("010001")
	complete("010004")
	complete("010005")
	complete("010006")

	row("010002", "H_COMP_1_A_P", "80")
	row("010002", "H_COMP_2_A_P", "70")
	row("010002", "H_COMP_3_A_P", "60")
	row("010002", "H_COMP_5_A_P", "50")

	row("010003", "H_COMP_1_A_P", "80")
	row("010003", "H_COMP_2_A_P", "70")
	row("010003", "H_COMP_3_A_P", "60")
	row("010003", "H_CLEAN_HSP_A_P", "70")
	row("010003", "H_QUIET_HSP_A_P", "65")
	return b.String()
}

var testOptions = Options{RequiredAnswers: 5, EmergencyOnly: true}

func TestParseGeneralInfoFilters(t *testing.T) {
	info, err := ParseGeneralInfo(strings.NewReader(generalInfoCSV), testOptions)
	require.NoError(t, err)

	ids := make([]string, 0, len(info))
	for _, h := range info {
		ids = append(ids, h.FacilityID)
	}
	require.Equal(t, []string{"010006", "010001", "010002", "010003"}, ids)
	require.Equal(t, "FIRST MEDICAL CENTER", info[1].Name)
	require.Equal(t, "DOTHAN", info[1].City)
	require.Equal(t, "HOUSTON", info[1].County)
	require.Equal(t, 4, info[1].OverallRating)

	all, err := ParseGeneralInfo(strings.NewReader(generalInfoCSV), Options{})
	require.NoError(t, err)
	require.Len(t, all, 5, "non-emergency hospitals stay when the filter is off")
}

func TestParseGeneralInfoRejectsBadRating(t *testing.T) {
	csv := "facility_id,state,hospital_overall_rating,emergency_services\n1,CA,four,Yes\n"
	_, err := ParseGeneralInfo(strings.NewReader(csv), testOptions)
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")

	_, err = ParseGeneralInfo(strings.NewReader("facility_id,state\n"), testOptions)
	require.ErrorContains(t, err, "hospital_overall_rating")

	_, err = ParseGeneralInfo(strings.NewReader(""), testOptions)
	require.ErrorContains(t, err, "empty")
}

func TestParseSurveyAveragesCategories(t *testing.T) {
	survey, err := ParseSurvey(strings.NewReader(surveyCSV()), testOptions)
	require.NoError(t, err)

	require.NotContains(t, survey, "010002", "too few answered rows")
	require.NotContains(t, survey, "010003", "missing a category")
	got := survey["010001"]
	require.InDelta(t, 85.0, got.Nurses, 1e-12)
	require.InDelta(t, 70.0, got.Doctors, 1e-12)
	require.InDelta(t, 60.0, got.Patients, 1e-12)
	require.InDelta(t, 50.0, got.Staffs, 1e-12)
}

func TestBuildMergesInGeneralInfoOrder(t *testing.T) {
	table, err := Build(strings.NewReader(generalInfoCSV), strings.NewReader(surveyCSV()), testOptions)
	require.NoError(t, err)
	require.Len(t, table, 2)
	require.Equal(t, "010006", table[0].FacilityID)
	require.Equal(t, "010001", table[1].FacilityID)
	require.InDelta(t, 85.0, table[1].Ratings.Nurses, 1e-12)
	require.NoError(t, table.Validate())
}

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		switch r.URL.Path {
		case "/general":
			_, _ = w.Write([]byte(generalInfoCSV))
		case "/survey":
			_, _ = w.Write([]byte(surveyCSV()))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/general", srv.URL+"/survey", time.Second, testOptions)
	require.Equal(t, "cms-http", client.Name())

	table, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 2)
}

func TestClientFetchReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/survey" {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(generalInfoCSV))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/general", srv.URL+"/survey", time.Second, testOptions)
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=503")
}

func TestFileSourceFetch(t *testing.T) {
	dir := t.TempDir()
	general := filepath.Join(dir, "general.csv")
	survey := filepath.Join(dir, "survey.csv")
	require.NoError(t, os.WriteFile(general, []byte(generalInfoCSV), 0o600))
	require.NoError(t, os.WriteFile(survey, []byte(surveyCSV()), 0o600))

	src := NewFileSource(general, survey, testOptions)
	require.Equal(t, "cms-file", src.Name())
	table, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 2)

	_, err = NewFileSource(filepath.Join(dir, "missing.csv"), survey, testOptions).Fetch(context.Background())
	require.Error(t, err)
}

func TestNewSourceSelectsBackend(t *testing.T) {
	file := NewSource(config.CatalogConfig{Source: config.SourceFile, RatingsPath: "a.csv", SurveyPath: "b.csv"})
	require.Equal(t, "cms-file", file.Name())

	remote := NewSource(config.CatalogConfig{Source: config.SourceHTTP, RatingsURL: "http://x", SurveyURL: "http://y", FetchTimeout: time.Second})
	require.Equal(t, "cms-http", remote.Name())
}
