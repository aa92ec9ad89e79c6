package reports

import (
	"time"
)

const (
	StatusPendingMatch = "pending_match"
	StatusAssigned     = "assigned"
	StatusFulfilled    = "fulfilled"
	StatusCancelled    = "cancelled"
)

type CreateReportRequest struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Description  string  `json:"description"`
	PeopleInNeed int     `json:"people_in_need" validate:"required"`
	VideoURL     string  `json:"video_url"`
}

type Report struct {
	ID               int64     `json:"id,omitempty"`
	Description      string    `json:"description"`
	PeopleInNeed     int       `json:"people_in_need"`
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	VideoURL         *string   `json:"video_url,omitempty"`
	FormattedAddress string    `json:"formatted_address,omitempty"`
	Loc              []float64 `json:"loc"`
}

// Latitude returns the first element of Loc. Rows are scanned into Loc
// as [lat, lng] the same way the geo queries return them.
func (r Report) Latitude() float64 {
	if len(r.Loc) < 2 {
		return 0
	}
	return r.Loc[0]
}

func (r Report) Longitude() float64 {
	if len(r.Loc) < 2 {
		return 0
	}
	return r.Loc[1]
}

type LiteReport struct {
	ID int64 `json:"id,omitempty"`
}

type Response struct {
	Count   int      `json:"count"`
	Results []Report `json:"results"`
}
