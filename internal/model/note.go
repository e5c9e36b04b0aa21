package model

import "time"

// ServiceRequestNote is an internal remark on a service request, written
// by back-office staff while working the request.
type ServiceRequestNote struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
