package model

// Service request statuses.
const (
	RequestSubmitted  = "submitted"
	RequestTriaged    = "triaged"
	RequestInProgress = "in_progress"
	RequestResolved   = "resolved"
	RequestRejected   = "rejected"
)

// Backup record statuses.
const (
	BackupPending   = "pending"
	BackupCompleted = "completed"
	BackupFailed    = "failed"
)

// requestTransitions lists the allowed status transitions for a service request.
var requestTransitions = map[string][]string{
	RequestSubmitted:  {RequestTriaged, RequestRejected},
	RequestTriaged:    {RequestInProgress, RequestRejected},
	RequestInProgress: {RequestResolved, RequestRejected},
}

// ValidRequestTransition reports whether a service request may move from one
// status to another. Terminal statuses have no outgoing transitions.
func ValidRequestTransition(from, to string) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
