package request

import "time"

type CreateEvent struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"required"`
	Venue       string    `json:"venue" validate:"required,max=300"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Published   bool      `json:"published"`
}

type UpdateEvent struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"required"`
	Venue       string    `json:"venue" validate:"required,max=300"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Published   bool      `json:"published"`
}

type RegisterAttendee struct {
	AttendeeName  string `json:"attendee_name" validate:"required,max=200"`
	AttendeeEmail string `json:"attendee_email" validate:"required,email"`
}
