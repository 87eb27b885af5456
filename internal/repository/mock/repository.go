package mock

import (
	"context"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.RecordAttemptError = errors.New("database error")
//	journal := services.NewJournalService(log, mockRepo, "KIOSK_MAIN")
type Repository struct {
	repository.JournalRepository

	// ===== Event Errors =====
	RecordEventError       error
	GetEventError          error
	ListEventsError        error
	ListSessionEventsError error

	// ===== Attempt Errors =====
	RecordAttemptError error
	ListAttemptsError  error

	// ===== Stats Errors =====
	GetStatsError    error
	PruneBeforeError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.JournalRepository) *Repository {
	return &Repository{
		JournalRepository: real,
	}
}

// ===== Event Methods =====

func (m *Repository) RecordEvent(ctx context.Context, event models.JournalEvent) (string, error) {
	if m.RecordEventError != nil {
		return "", m.RecordEventError
	}
	return m.JournalRepository.RecordEvent(ctx, event)
}

func (m *Repository) GetEvent(ctx context.Context, id string) (*models.JournalEvent, error) {
	if m.GetEventError != nil {
		return nil, m.GetEventError
	}
	return m.JournalRepository.GetEvent(ctx, id)
}

func (m *Repository) ListEvents(ctx context.Context, kind string, limit int) ([]models.JournalEvent, error) {
	if m.ListEventsError != nil {
		return nil, m.ListEventsError
	}
	return m.JournalRepository.ListEvents(ctx, kind, limit)
}

func (m *Repository) ListSessionEvents(ctx context.Context, sessionID string) ([]models.JournalEvent, error) {
	if m.ListSessionEventsError != nil {
		return nil, m.ListSessionEventsError
	}
	return m.JournalRepository.ListSessionEvents(ctx, sessionID)
}

// ===== Attempt Methods =====

func (m *Repository) RecordAttempt(ctx context.Context, attempt models.SubmissionAttempt) (string, error) {
	if m.RecordAttemptError != nil {
		return "", m.RecordAttemptError
	}
	return m.JournalRepository.RecordAttempt(ctx, attempt)
}

func (m *Repository) ListAttempts(ctx context.Context, sessionID string) ([]models.SubmissionAttempt, error) {
	if m.ListAttemptsError != nil {
		return nil, m.ListAttemptsError
	}
	return m.JournalRepository.ListAttempts(ctx, sessionID)
}

// ===== Stats Methods =====

func (m *Repository) GetStats(ctx context.Context, since time.Time) (*models.JournalStats, error) {
	if m.GetStatsError != nil {
		return nil, m.GetStatsError
	}
	return m.JournalRepository.GetStats(ctx, since)
}

func (m *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.PruneBeforeError != nil {
		return 0, m.PruneBeforeError
	}
	return m.JournalRepository.PruneBefore(ctx, cutoff)
}

// Ensure Repository implements JournalRepository
var _ repository.JournalRepository = (*Repository)(nil)
