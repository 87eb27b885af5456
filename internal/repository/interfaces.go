package repository

import (
	"context"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/models"
)

// EventRepository defines journal event operations
type EventRepository interface {
	RecordEvent(ctx context.Context, event models.JournalEvent) (string, error)
	GetEvent(ctx context.Context, id string) (*models.JournalEvent, error)
	ListEvents(ctx context.Context, kind string, limit int) ([]models.JournalEvent, error)
	ListSessionEvents(ctx context.Context, sessionID string) ([]models.JournalEvent, error)
}

// AttemptRepository defines submission attempt operations
type AttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt models.SubmissionAttempt) (string, error)
	ListAttempts(ctx context.Context, sessionID string) ([]models.SubmissionAttempt, error)
}

// StatsRepository defines journal reporting operations
type StatsRepository interface {
	GetStats(ctx context.Context, since time.Time) (*models.JournalStats, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JournalRepository combines all repository interfaces
type JournalRepository interface {
	EventRepository
	AttemptRepository
	StatsRepository
	Ping(ctx context.Context) error
	Close() error
}

// Ensure Repository implements JournalRepository
var _ JournalRepository = (*Repository)(nil)
