package model

import "time"

// CityService is one entry in the public services directory.
type CityService struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Department  string    `json:"department"`
	Description string    `json:"description"`
	Phone       *string   `json:"phone,omitempty"`
	Email       *string   `json:"email,omitempty"`
	OnlineURL   *string   `json:"online_url,omitempty"`
	Hours       *string   `json:"hours,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
