package cms

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yanqian/carefinder/internal/domain/hospital"
)

// DefaultRequiredAnswers is the number of answered HCAHPS rows a facility
// needs before its survey scores are trusted.
const DefaultRequiredAnswers = 72

const notAvailable = "Not Available"

// Options tunes how the CMS exports are filtered.
type Options struct {
	RequiredAnswers int
	EmergencyOnly   bool
}

func (o Options) required() int {
	if o.RequiredAnswers <= 0 {
		return DefaultRequiredAnswers
	}
	return o.RequiredAnswers
}

const (
	categoryDoctors  = "doctors"
	categoryNurses   = "nurses"
	categoryStaffs   = "staffs"
	categoryPatients = "patients"
)

var measureCategories = map[string]string{
	"H_COMP_1_A_P":         categoryNurses,
	"H_NURSE_RESPECT_A_P":  categoryNurses,
	"H_NURSE_LISTEN_A_P":   categoryNurses,
	"H_NURSE_EXPLAIN_A_P":  categoryNurses,
	"H_COMP_2_A_P":         categoryDoctors,
	"H_DOCTOR_RESPECT_A_P": categoryDoctors,
	"H_DOCTOR_LISTEN_A_P":  categoryDoctors,
	"H_DOCTOR_EXPLAIN_A_P": categoryDoctors,
	"H_COMP_3_A_P":         categoryPatients,
	"H_CALL_BUTTON_A_P":    categoryPatients,
	"H_BATH_HELP_A_P":      categoryPatients,
	"H_COMP_5_A_P":         categoryStaffs,
	"H_MED_FOR_A_P":        categoryStaffs,
	"H_SIDE_EFFECTS_A_P":   categoryStaffs,
}

type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	cols, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	h := make(header, len(cols))
	for i, c := range cols {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
	}
	return h, nil
}

func (h header) get(record []string, names ...string) string {
	for _, name := range names {
		if i, ok := h[name]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
	}
	return ""
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

// ParseGeneralInfo reads the hospital general information export. Rows
// without an overall rating are dropped, as are non-emergency hospitals
// when opts.EmergencyOnly is set. File order is kept.
func ParseGeneralInfo(r io.Reader, opts Options) (hospital.Table, error) {
	cr := newReader(r)
	h, err := readHeader(cr, "facility_id", "state", "hospital_overall_rating")
	if err != nil {
		return nil, fmt.Errorf("general information: %w", err)
	}

	out := make(hospital.Table, 0)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("general information line %d: %w", line, err)
		}
		rating := h.get(record, "hospital_overall_rating")
		if rating == "" || strings.EqualFold(rating, notAvailable) {
			continue
		}
		if opts.EmergencyOnly && h.get(record, "emergency_services") != "Yes" {
			continue
		}
		overall, err := strconv.Atoi(rating)
		if err != nil {
			return nil, fmt.Errorf("general information line %d: overall rating %q is not an integer", line, rating)
		}
		out = append(out, hospital.Hospital{
			FacilityID:    h.get(record, "facility_id"),
			Name:          h.get(record, "facility_name"),
			Address:       h.get(record, "address"),
			City:          h.get(record, "citytown", "city"),
			State:         h.get(record, "state"),
			ZIPCode:       h.get(record, "zip_code"),
			County:        h.get(record, "countyparish", "county_name"),
			HospitalType:  h.get(record, "hospital_type"),
			OverallRating: overall,
		})
	}
	return out, nil
}

type categoryMean struct {
	sum   float64
	count int
}

type facilitySurvey struct {
	answered   int
	categories map[string]*categoryMean
}

// ParseSurvey reads the HCAHPS patient survey export and returns per-facility
// category means. Only numeric answer percentages count, and only facilities
// with exactly opts.RequiredAnswers answered rows are kept.
func ParseSurvey(r io.Reader, opts Options) (map[string]hospital.Ratings, error) {
	cr := newReader(r)
	h, err := readHeader(cr, "facility_id", "hcahps_measure_id", "hcahps_answer_percent")
	if err != nil {
		return nil, fmt.Errorf("survey: %w", err)
	}

	facilities := make(map[string]*facilitySurvey)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("survey line %d: %w", line, err)
		}
		id := h.get(record, "facility_id")
		if id == "" {
			continue
		}
		percent, err := strconv.ParseFloat(h.get(record, "hcahps_answer_percent"), 64)
		if err != nil {
			continue
		}
		fs, ok := facilities[id]
		if !ok {
			fs = &facilitySurvey{categories: make(map[string]*categoryMean, 4)}
			facilities[id] = fs
		}
		fs.answered++
		category, ok := measureCategories[h.get(record, "hcahps_measure_id")]
		if !ok {
			continue
		}
		cm, ok := fs.categories[category]
		if !ok {
			cm = &categoryMean{}
			fs.categories[category] = cm
		}
		cm.sum += percent
		cm.count++
	}

	required := opts.required()
	out := make(map[string]hospital.Ratings, len(facilities))
	for id, fs := range facilities {
		if fs.answered != required {
			continue
		}
		ratings, ok := fs.ratings()
		if !ok {
			continue
		}
		out[id] = ratings
	}
	return out, nil
}

func (fs *facilitySurvey) ratings() (hospital.Ratings, bool) {
	mean := func(category string) (float64, bool) {
		cm, ok := fs.categories[category]
		if !ok || cm.count == 0 {
			return 0, false
		}
		return cm.sum / float64(cm.count), true
	}
	var r hospital.Ratings
	var ok bool
	if r.Doctors, ok = mean(categoryDoctors); !ok {
		return r, false
	}
	if r.Nurses, ok = mean(categoryNurses); !ok {
		return r, false
	}
	if r.Staffs, ok = mean(categoryStaffs); !ok {
		return r, false
	}
	if r.Patients, ok = mean(categoryPatients); !ok {
		return r, false
	}
	return r, true
}

// Merge joins general information with survey ratings on facility id,
// keeping general information order and dropping hospitals without a
// complete survey.
func Merge(info hospital.Table, survey map[string]hospital.Ratings) hospital.Table {
	out := make(hospital.Table, 0, len(info))
	for _, h := range info {
		ratings, ok := survey[h.FacilityID]
		if !ok {
			continue
		}
		h.Ratings = ratings
		out = append(out, h)
	}
	return out
}

// Build parses both exports and merges them into a hospital table.
func Build(general, survey io.Reader, opts Options) (hospital.Table, error) {
	info, err := ParseGeneralInfo(general, opts)
	if err != nil {
		return nil, err
	}
	ratings, err := ParseSurvey(survey, opts)
	if err != nil {
		return nil, err
	}
	return Merge(info, ratings), nil
}
