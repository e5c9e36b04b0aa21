package request

type CreateServiceRequest struct {
	Category       string  `json:"category" validate:"required,oneof=roads sanitation water parks streetlights other"`
	Title          string  `json:"title" validate:"required,max=200"`
	Description    string  `json:"description" validate:"required"`
	Location       string  `json:"location" validate:"required,max=300"`
	SubmitterName  string  `json:"submitter_name" validate:"required,max=200"`
	SubmitterEmail string  `json:"submitter_email" validate:"required,email"`
	SubmitterPhone *string `json:"submitter_phone" validate:"omitempty,max=40"`
}

type UpdateServiceRequestStatus struct {
	Status         string  `json:"status" validate:"required,oneof=submitted triaged in_progress resolved rejected"`
	Department     *string `json:"department" validate:"omitempty,max=200"`
	ResolutionNote *string `json:"resolution_note"`
}

type AddServiceRequestNote struct {
	Author string `json:"author" validate:"required,max=200"`
	Body   string `json:"body" validate:"required"`
}
