package handlers

import (
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/internal/store"
)

// StartSessionResponse is the response for starting a session
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
}

// SubmitFailedResponse is returned when the backend rejects a submission
type SubmitFailedResponse struct {
	Code      string `json:"code"`
	Message   string `json:"error"`
	Failures  int    `json:"failures"`
	Escalated bool   `json:"escalated"`
}

// ScreenResponse reports the tracked screen
type ScreenResponse struct {
	Screen models.Screen `json:"screen"`
}

// HealthResponse is the response for the health check
type HealthResponse struct {
	OK           bool   `json:"ok"`
	DeviceID     string `json:"device_id"`
	ConnectionOK bool   `json:"connection_ok"`
	Locked       bool   `json:"locked"`
}

// StaffStatsResponse combines journal statistics with the live kiosk status
type StaffStatsResponse struct {
	DeviceID            string               `json:"device_id"`
	Since               time.Time            `json:"since"`
	ConnectionOK        bool                 `json:"connection_ok"`
	Locked              bool                 `json:"locked"`
	SessionID           string               `json:"session_id,omitempty"`
	ConsecutiveFailures int                  `json:"consecutive_failures"`
	Escalated           bool                 `json:"escalated"`
	Journal             *models.JournalStats `json:"journal"`
}

// EventsResponse lists journal events
type EventsResponse struct {
	Events []models.JournalEvent `json:"events"`
}

// AcknowledgeResponse reports whether an escalation was cleared
type AcknowledgeResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// StaffPageData holds the data passed to the staff console template
type StaffPageData struct {
	Title    string
	DeviceID string
	Snapshot store.Snapshot
	Stats    *models.JournalStats
	Events   []models.JournalEvent
}

// LoginPageData holds data for the login template
type LoginPageData struct {
	Error string
}
