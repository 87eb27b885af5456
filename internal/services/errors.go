package services

import "github.com/abrezinsky/kioskfeedback/internal/errors"

// Service errors
var (
	ErrNoOrder           = errors.Validation("no order is assigned to this kiosk")
	ErrSessionInProgress = errors.Conflict("a session is already in progress")
	ErrNotEscalated      = errors.Validation("no escalation is active")
)

// Messages shown to the customer
const (
	SubmitErrorMessage      = "We couldn't send your feedback. Please try again."
	EscalationMessage       = "Please ask a staff member for help."
	AlreadySubmittedMessage = "Feedback for this order was already received. Thank you!"
)
