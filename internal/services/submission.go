package services

import (
	"context"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/draft"
	"github.com/abrezinsky/kioskfeedback/internal/errors"
	"github.com/abrezinsky/kioskfeedback/internal/logger"
	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/internal/store"
	"github.com/abrezinsky/kioskfeedback/pkg/kioskapi"
)

// SubmitResult describes the outcome of a submission
type SubmitResult struct {
	Submitted bool   `json:"submitted"`
	SessionID string `json:"session_id"`
	Failures  int    `json:"failures"`
	Escalated bool   `json:"escalated"`
	Message   string `json:"message,omitempty"`
}

// Submitter sends the locked session's draft to the backend
type Submitter struct {
	log      logger.Logger
	client   kioskapi.Client
	store    *store.Store
	nav      Navigator
	journal  JournalServicer
	deviceID string
}

// NewSubmitter creates a new Submitter
func NewSubmitter(log logger.Logger, client kioskapi.Client, st *store.Store, nav Navigator, journal JournalServicer, deviceID string) *Submitter {
	return &Submitter{
		log:      log.With("component", "submitter"),
		client:   client,
		store:    st,
		nav:      nav,
		journal:  journal,
		deviceID: deviceID,
	}
}

// Submit validates the draft and sends it. A draft that fails validation
// never reaches the backend. On success the store is reset and the shell
// moves to the thank-you screen; on failure the error is recorded for a
// retry and repeated failures escalate to staff.
func (s *Submitter) Submit(ctx context.Context) (*SubmitResult, error) {
	snap := s.store.Snapshot()
	sessionID := snap.Session.SessionID
	if snap.Order == nil || sessionID == "" {
		s.store.SetLocalError(SubmitErrorMessage)
		return nil, errors.Validation("no active session with an order")
	}

	rated, err := snap.Draft.Validate(snap.DisplayItems, sessionID)
	if err != nil {
		s.store.SetLocalError(SubmitErrorMessage)
		return nil, err
	}

	if err := s.store.BeginSubmit(sessionID); err != nil {
		return nil, err
	}

	payload := buildPayload(s.deviceID, snap, rated, time.Now())
	attempt := models.SubmissionAttempt{
		SessionID:     sessionID,
		OrderID:       snap.Order.OrderID,
		Attempt:       snap.Submission.ConsecutiveFailures + 1,
		OverallRating: payload.OverallRating,
		ItemCount:     len(payload.ItemRatings),
	}

	_, err = s.client.SubmitFeedback(ctx, payload)
	if err != nil {
		return s.failed(ctx, snap, attempt, err), err
	}

	attempt.Success = true
	s.journal.SubmitAttempt(ctx, attempt)

	result := &SubmitResult{Submitted: true, SessionID: sessionID}
	if !s.store.SubmitSucceeded(sessionID) {
		s.log.Info("Feedback accepted after the session ended", "session_id", sessionID)
		return result, nil
	}
	s.log.Info("Feedback submitted", "session_id", sessionID, "order_id", attempt.OrderID, "items", attempt.ItemCount)
	s.journal.SessionReset(ctx, models.ResetReasonSubmitted, sessionID, attempt.OrderID)
	s.nav.ResetTo(models.ScreenThankYou)
	return result, nil
}

func (s *Submitter) failed(ctx context.Context, before store.Snapshot, attempt models.SubmissionAttempt, err error) *SubmitResult {
	sessionID := before.Session.SessionID
	kind := errors.KindOf(err)
	s.log.Warn("Feedback submission failed", "session_id", sessionID, "kind", kind.String(), "error", err)

	attempt.ErrorKind = kind.String()
	attempt.ErrorMessage = err.Error()
	s.journal.SubmitAttempt(ctx, attempt)

	failures := s.store.SubmitFailed(sessionID, SubmitErrorMessage)
	after := s.store.Snapshot()
	result := &SubmitResult{
		SessionID: sessionID,
		Failures:  failures,
		Escalated: after.Submission.Escalated,
		Message:   SubmitErrorMessage,
	}
	if after.Submission.Escalated {
		result.Message = EscalationMessage
		if !before.Submission.Escalated {
			s.log.Warn("Submission escalated to staff", "session_id", sessionID, "failures", failures)
			s.journal.Escalated(ctx, sessionID, attempt.OrderID, before.TableID(), failures)
		}
	}
	return result
}

func buildPayload(deviceID string, snap store.Snapshot, rated []draft.RatedItem, now time.Time) kioskapi.FeedbackPayload {
	items := make([]kioskapi.FeedbackItem, len(rated))
	for i, r := range rated {
		items[i] = kioskapi.FeedbackItem{
			ItemID:   r.ItemID,
			ItemName: r.ItemName,
			Rating:   r.Rating,
			Comment:  r.Comment,
		}
	}
	return kioskapi.FeedbackPayload{
		DeviceID:        deviceID,
		OrderID:         snap.Order.OrderID,
		TableID:         snap.Order.TableID,
		CustomerID:      snap.Order.CustomerID,
		OverallRating:   snap.Draft.OverallRating,
		GeneralFeedback: draft.BuildGeneralComment(snap.Draft.GeneralChips, snap.Draft.GeneralText),
		AllowContact:    snap.Draft.AllowContact,
		ItemRatings:     items,
		SessionID:       snap.Session.SessionID,
		ClientTS:        kioskapi.ClientTimestamp(now),
	}
}
