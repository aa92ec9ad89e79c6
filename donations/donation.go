package donations

import (
	"time"

	"github.com/ggwhite/go-masker"
)

const (
	StatusAvailable = "available"
	StatusAssigned  = "assigned"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type CreateDonationRequest struct {
	ResourceType  string  `json:"resource_type" validate:"required"`
	Quantity      string  `json:"quantity" validate:"required"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	PickupAddress string  `json:"pickup_address"`
	PickupContact string  `json:"pickup_contact"`
	PickupTime    string  `json:"pickup_time"`
	Notes         string  `json:"notes"`
}

type Donation struct {
	ID            int64     `json:"id,omitempty"`
	ResourceType  string    `json:"resource_type"`
	Quantity      string    `json:"quantity"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	PickupAddress string    `json:"pickup_address,omitempty"`
	PickupContact string    `json:"pickup_contact,omitempty"`
	PickupTime    string    `json:"pickup_time,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	Loc           []float64 `json:"loc"`
}

func (d Donation) Latitude() float64 {
	if len(d.Loc) < 2 {
		return 0
	}
	return d.Loc[0]
}

func (d Donation) Longitude() float64 {
	if len(d.Loc) < 2 {
		return 0
	}
	return d.Loc[1]
}

// Masked returns a copy safe for public listing. Pickup contact numbers
// belong to donors and only facilitators of a committed mission may see
// them in full.
func (d Donation) Masked() Donation {
	if d.PickupContact != "" {
		d.PickupContact = masker.Telephone(d.PickupContact)
	}
	return d
}

type LiteDonation struct {
	ID int64 `json:"id,omitempty"`
}

type Response struct {
	Count   int        `json:"count"`
	Results []Donation `json:"results"`
}
