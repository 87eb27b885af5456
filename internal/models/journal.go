package models

import "time"

// Journal event kinds
const (
	EventSessionStarted    = "session_started"
	EventSessionReset      = "session_reset"
	EventFeedbackReset     = "feedback_reset"
	EventFeedbackSubmitted = "feedback_submitted"
	EventSubmitFailed      = "submit_failed"
	EventEscalated         = "escalated"
	EventEscalationAcked   = "escalation_acknowledged"
	EventAlreadyCompleted  = "already_completed"
	EventConnectionChanged = "connection_changed"
)

// Reset reasons recorded with EventSessionReset
const (
	ResetReasonHardTimeout      = "hard_timeout"
	ResetReasonSubmitted        = "submitted"
	ResetReasonAlreadyCompleted = "already_completed"
	ResetReasonStaff            = "staff"
	ResetReasonInactivity       = "inactivity"
)

// JournalEvent is one entry in the local kiosk journal
type JournalEvent struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	DeviceID  string    `json:"device_id"`
	SessionID string    `json:"session_id,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmissionAttempt records one call to the backend's submit endpoint
type SubmissionAttempt struct {
	ID            string    `json:"id"`
	DeviceID      string    `json:"device_id"`
	SessionID     string    `json:"session_id"`
	OrderID       string    `json:"order_id"`
	Attempt       int       `json:"attempt"`
	Success       bool      `json:"success"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	OverallRating int       `json:"overall_rating"`
	ItemCount     int       `json:"item_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// JournalStats summarizes the journal for staff
type JournalStats struct {
	SessionsStarted int            `json:"sessions_started"`
	Submitted       int            `json:"submitted"`
	FailedAttempts  int            `json:"failed_attempts"`
	Escalations     int            `json:"escalations"`
	Resets          map[string]int `json:"resets"`
	AverageRating   float64        `json:"average_rating"`
	LastSubmittedAt *time.Time     `json:"last_submitted_at,omitempty"`
}
