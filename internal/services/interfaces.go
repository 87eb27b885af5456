package services

import (
	"context"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/internal/store"
)

// Navigator moves the presentation shell between screens
type Navigator interface {
	NavigateTo(screen models.Screen)
	ResetTo(screen models.Screen)
	CurrentScreen() models.Screen
}

// Broadcaster defines the interface for broadcasting messages to clients
type Broadcaster interface {
	BroadcastMessage(msgType string, payload interface{})
}

// JournalServicer defines the interface for journal operations
type JournalServicer interface {
	SessionStarted(ctx context.Context, sessionID, orderID string)
	SessionReset(ctx context.Context, reason, sessionID, orderID string)
	FeedbackReset(ctx context.Context, sessionID string)
	AlreadyCompleted(ctx context.Context, orderID string)
	ConnectionChanged(ctx context.Context, ok bool)
	SubmitAttempt(ctx context.Context, attempt models.SubmissionAttempt)
	Escalated(ctx context.Context, sessionID, orderID, tableID string, failures int)
	EscalationAcknowledged(ctx context.Context, sessionID string)
	Stats(ctx context.Context, since time.Time) (*models.JournalStats, error)
	RecentEvents(ctx context.Context, kind string, limit int) ([]models.JournalEvent, error)
	SessionAttempts(ctx context.Context, sessionID string) ([]models.SubmissionAttempt, error)
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// ControllerServicer defines the interface the local control API uses
type ControllerServicer interface {
	Snapshot() store.Snapshot
	StartSession(ctx context.Context) (string, error)
	Touch()
	Submit(ctx context.Context) (*SubmitResult, error)
	StaffReset(ctx context.Context) error
	AcknowledgeEscalation(ctx context.Context) bool
	EscalationQR(size int) ([]byte, error)
	Stats(ctx context.Context, since time.Time) (*models.JournalStats, error)
	RecentEvents(ctx context.Context, kind string, limit int) ([]models.JournalEvent, error)
	DeviceID() string
}

// DraftEditor edits the locked session's draft
type DraftEditor interface {
	SetOverallRating(rating int) error
	SetItemRating(itemID string, rating int) error
	SetItemComment(itemID, text string) error
	ToggleItemChip(itemID, chip string) error
	SetGeneralText(text string) error
	ToggleGeneralChip(chip string) error
	SetAllowContact(allow bool) error
	ClearNotice()
}

// Ensure concrete types implement interfaces
var (
	_ JournalServicer    = (*JournalService)(nil)
	_ ControllerServicer = (*Controller)(nil)
	_ DraftEditor        = (*store.Store)(nil)
)
