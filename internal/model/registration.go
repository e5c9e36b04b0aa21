package model

import "time"

// EventRegistration is one attendee signup for a published event.
type EventRegistration struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	AttendeeName  string    `json:"attendee_name"`
	AttendeeEmail string    `json:"attendee_email"`
	CreatedAt     time.Time `json:"created_at"`
}
