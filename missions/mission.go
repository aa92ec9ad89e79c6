package missions

import (
	"time"
)

const (
	StatusUnassigned = "unassigned"
	StatusAccepted   = "accepted"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Mission pairs one report with one donation. Created only by the matching
// engine; facilitators move the status forward afterwards.
type Mission struct {
	ID                int64     `json:"id,omitempty"`
	ReportID          int64     `json:"report_id"`
	DonationID        int64     `json:"donation_id"`
	Status            string    `json:"status"`
	EstimatedDistance float64   `json:"estimated_distance"`
	EstimatedDuration int       `json:"estimated_duration"`
	Timestamp         time.Time `json:"timestamp,omitempty"`
}

type Response struct {
	Count   int       `json:"count"`
	Results []Mission `json:"results"`
}
