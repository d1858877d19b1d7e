package recommender

import "github.com/yanqian/carefinder/internal/domain/hospital"

// Query is a user's desired ratings for hospitals in one state.
type Query struct {
	State   string  `json:"state"`
	Doctor  float64 `json:"doctorRating"`
	Nurse   float64 `json:"nursesRating"`
	Staff   float64 `json:"staffRating"`
	Patient float64 `json:"patientRating"`
}

// Vector returns the targets in the same order as hospital.Ratings.Vector.
func (q Query) Vector() [4]float64 {
	return [4]float64{q.Doctor, q.Nurse, q.Staff, q.Patient}
}

// Recommendation is a ranked hospital with its similarity to the query.
type Recommendation struct {
	Hospital   hospital.Hospital `json:"hospital"`
	Similarity float64           `json:"similarity"`
}

// Request is the payload accepted by the recommendation service.
type Request struct {
	Query
	Limit int `json:"limit"`
}

// Response lists the ranked hospitals for a request.
type Response struct {
	Query           Query            `json:"query"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Config wires runtime knobs for the recommender.
type Config struct {
	DefaultLimit int
	MaxLimit     int
}
