package model

import "time"

// Service request categories.
const (
	CategoryRoads        = "roads"
	CategorySanitation   = "sanitation"
	CategoryWater        = "water"
	CategoryParks        = "parks"
	CategoryStreetlights = "streetlights"
	CategoryOther        = "other"
)

// ServiceRequest is a citizen-submitted issue report. The reference code is
// what the submitter uses to track it.
type ServiceRequest struct {
	ID             string     `json:"id"`
	Reference      string     `json:"reference"`
	Category       string     `json:"category"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	SubmitterName  string     `json:"submitter_name"`
	SubmitterEmail string     `json:"submitter_email"`
	SubmitterPhone *string    `json:"submitter_phone,omitempty"`
	Status         string     `json:"status"`
	Department     *string    `json:"department,omitempty"`
	ResolutionNote *string    `json:"resolution_note,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
