package services

import (
	"context"
	"strconv"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/events"
	"github.com/abrezinsky/kioskfeedback/internal/logger"
	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/internal/repository"
)

// JournalService records the kiosk's session history and notifies staff.
// Recording is best effort: failures are logged and never returned to
// the session flow.
type JournalService struct {
	log       logger.Logger
	repo      repository.JournalRepository
	publisher events.Publisher
	deviceID  string
	now       func() time.Time
}

// NewJournalService creates a new JournalService
func NewJournalService(log logger.Logger, repo repository.JournalRepository, deviceID string) *JournalService {
	return &JournalService{
		log:       log,
		repo:      repo,
		publisher: events.NopPublisher{},
		deviceID:  deviceID,
		now:       time.Now,
	}
}

// SetPublisher sets the publisher used for staff notifications
func (j *JournalService) SetPublisher(p events.Publisher) {
	j.publisher = p
}

func (j *JournalService) record(ctx context.Context, kind, sessionID, orderID, detail string) {
	_, err := j.repo.RecordEvent(ctx, models.JournalEvent{
		Kind:      kind,
		DeviceID:  j.deviceID,
		SessionID: sessionID,
		OrderID:   orderID,
		Detail:    detail,
		CreatedAt: j.now(),
	})
	if err != nil {
		j.log.Warn("Failed to record journal event", "kind", kind, "error", err)
	}
}

func (j *JournalService) publish(ctx context.Context, topic string, n models.JournalEvent, extra func(*events.Notification)) {
	note := events.Notification{
		DeviceID:  j.deviceID,
		SessionID: n.SessionID,
		OrderID:   n.OrderID,
		Reason:    n.Detail,
		Timestamp: j.now().UTC(),
	}
	if extra != nil {
		extra(&note)
	}
	if err := events.PublishJSON(ctx, j.publisher, topic, note); err != nil {
		j.log.Warn("Failed to publish notification", "topic", topic, "error", err)
	}
}

// SessionStarted records a new session
func (j *JournalService) SessionStarted(ctx context.Context, sessionID, orderID string) {
	j.record(ctx, models.EventSessionStarted, sessionID, orderID, "")
}

// SessionReset records a full reset and publishes it
func (j *JournalService) SessionReset(ctx context.Context, reason, sessionID, orderID string) {
	j.record(ctx, models.EventSessionReset, sessionID, orderID, reason)
	j.publish(ctx, events.TopicSessionReset, models.JournalEvent{SessionID: sessionID, OrderID: orderID, Detail: reason}, nil)
}

// FeedbackReset records an abandoned draft
func (j *JournalService) FeedbackReset(ctx context.Context, sessionID string) {
	j.record(ctx, models.EventFeedbackReset, sessionID, "", models.ResetReasonInactivity)
}

// AlreadyCompleted records a backend report that the order already has feedback
func (j *JournalService) AlreadyCompleted(ctx context.Context, orderID string) {
	j.record(ctx, models.EventAlreadyCompleted, "", orderID, "")
}

// ConnectionChanged records a connectivity transition
func (j *JournalService) ConnectionChanged(ctx context.Context, ok bool) {
	j.record(ctx, models.EventConnectionChanged, "", "", strconv.FormatBool(ok))
}

// SubmitAttempt records one submission call
func (j *JournalService) SubmitAttempt(ctx context.Context, attempt models.SubmissionAttempt) {
	attempt.DeviceID = j.deviceID
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = j.now()
	}
	if _, err := j.repo.RecordAttempt(ctx, attempt); err != nil {
		j.log.Warn("Failed to record submission attempt", "session_id", attempt.SessionID, "error", err)
	}

	if !attempt.Success {
		j.record(ctx, models.EventSubmitFailed, attempt.SessionID, attempt.OrderID, attempt.ErrorKind)
		return
	}
	j.record(ctx, models.EventFeedbackSubmitted, attempt.SessionID, attempt.OrderID, "")
	j.publish(ctx, events.TopicFeedbackSubmitted, models.JournalEvent{SessionID: attempt.SessionID, OrderID: attempt.OrderID},
		func(n *events.Notification) {
			n.Rating = attempt.OverallRating
		})
}

// Escalated records and publishes a staff escalation
func (j *JournalService) Escalated(ctx context.Context, sessionID, orderID, tableID string, failures int) {
	j.record(ctx, models.EventEscalated, sessionID, orderID, strconv.Itoa(failures))
	j.publish(ctx, events.TopicFeedbackEscalated, models.JournalEvent{SessionID: sessionID, OrderID: orderID},
		func(n *events.Notification) {
			n.TableID = tableID
			n.Failures = failures
		})
}

// EscalationAcknowledged records that staff cleared the escalation
func (j *JournalService) EscalationAcknowledged(ctx context.Context, sessionID string) {
	j.record(ctx, models.EventEscalationAcked, sessionID, "", "")
}

// Stats returns journal statistics since the given time
func (j *JournalService) Stats(ctx context.Context, since time.Time) (*models.JournalStats, error) {
	return j.repo.GetStats(ctx, since)
}

// RecentEvents returns the newest events, optionally filtered by kind
func (j *JournalService) RecentEvents(ctx context.Context, kind string, limit int) ([]models.JournalEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return j.repo.ListEvents(ctx, kind, limit)
}

// SessionAttempts returns the submission attempts of one session
func (j *JournalService) SessionAttempts(ctx context.Context, sessionID string) ([]models.SubmissionAttempt, error) {
	return j.repo.ListAttempts(ctx, sessionID)
}

// Prune deletes journal entries older than retention
func (j *JournalService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := j.repo.PruneBefore(ctx, j.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.log.Info("Pruned journal", "rows", n, "retention", retention)
	}
	return n, nil
}
