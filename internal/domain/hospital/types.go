package hospital

import "time"

// Ratings holds the four aggregated survey scores, each a positive-response percentage.
type Ratings struct {
	Doctors  float64 `json:"doctors"`
	Nurses   float64 `json:"nurses"`
	Staffs   float64 `json:"staffs"`
	Patients float64 `json:"patients"`
}

// Vector returns the ratings in the canonical [doctors, nurses, staffs, patients] order.
func (r Ratings) Vector() [4]float64 {
	return [4]float64{r.Doctors, r.Nurses, r.Staffs, r.Patients}
}

// Hospital is one facility row. Only FacilityID, State, Ratings and
// OverallRating feed the recommender; the rest is carried for display.
type Hospital struct {
	FacilityID    string  `json:"facilityId"`
	Name          string  `json:"name"`
	Address       string  `json:"address,omitempty"`
	City          string  `json:"city,omitempty"`
	State         string  `json:"state"`
	ZIPCode       string  `json:"zipCode,omitempty"`
	County        string  `json:"county,omitempty"`
	HospitalType  string  `json:"hospitalType,omitempty"`
	Ratings       Ratings `json:"ratings"`
	OverallRating int     `json:"overallRating"`
}

// Snapshot is a loaded table with the moment it was fetched from its source.
type Snapshot struct {
	Table     Table     `json:"hospitals"`
	FetchedAt time.Time `json:"fetchedAt"`
	Source    string    `json:"source"`
}
