package services

import (
	"context"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/logger"
	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/internal/store"
	"github.com/abrezinsky/kioskfeedback/internal/tasks"
	"github.com/abrezinsky/kioskfeedback/pkg/kioskapi"
)

// TimeoutCheckInterval is how often a locked session's deadlines are checked
const TimeoutCheckInterval = time.Second

// TimeoutResult is the outcome of one timeout check
type TimeoutResult int

const (
	TimeoutNone TimeoutResult = iota
	TimeoutHard
	TimeoutInactivity
)

func (r TimeoutResult) String() string {
	switch r {
	case TimeoutHard:
		return "hard"
	case TimeoutInactivity:
		return "inactivity"
	default:
		return "none"
	}
}

// TimeoutEnforcer bounds a locked session's total length and idle gaps
type TimeoutEnforcer struct {
	log        logger.Logger
	client     kioskapi.Client
	store      *store.Store
	nav        Navigator
	journal    JournalServicer
	deviceID   string
	hard       time.Duration
	inactivity time.Duration
	task       *tasks.Periodic
}

// NewTimeoutEnforcer creates a stopped TimeoutEnforcer
func NewTimeoutEnforcer(log logger.Logger, client kioskapi.Client, st *store.Store, nav Navigator, journal JournalServicer, deviceID string, hard, inactivity time.Duration) *TimeoutEnforcer {
	e := &TimeoutEnforcer{
		log:        log.With("component", "timeouts"),
		client:     client,
		store:      st,
		nav:        nav,
		journal:    journal,
		deviceID:   deviceID,
		hard:       hard,
		inactivity: inactivity,
	}
	e.task = tasks.NewPeriodic("timeouts", TimeoutCheckInterval, e.log, e.tick)
	return e
}

// Start begins checking deadlines every second
func (e *TimeoutEnforcer) Start(ctx context.Context) {
	e.task.Start(ctx)
}

// Stop ends checking
func (e *TimeoutEnforcer) Stop() {
	e.task.Stop()
}

// Running reports whether checks are active
func (e *TimeoutEnforcer) Running() bool {
	return e.task.Running()
}

func (e *TimeoutEnforcer) tick(ctx context.Context, tok tasks.Token) {
	e.check(ctx, tok.Alive, e.store.Now())
}

// Check evaluates the deadlines of the locked session at now
func (e *TimeoutEnforcer) Check(ctx context.Context, now time.Time) TimeoutResult {
	return e.check(ctx, func() bool { return true }, now)
}

func (e *TimeoutEnforcer) check(ctx context.Context, alive func() bool, now time.Time) TimeoutResult {
	snap := e.store.Snapshot()
	sess := snap.Session
	if !sess.Locked || sess.StartedAt == nil || sess.LastInteractionAt == nil {
		return TimeoutNone
	}

	if now.Sub(*sess.StartedAt) >= e.hard {
		e.log.Info("Hard timeout reached, resetting session", "session_id", sess.SessionID)
		if _, err := e.client.ResetDevice(ctx, e.deviceID); err != nil {
			e.log.Debug("Best-effort device reset failed", "error", err)
		}
		if !e.store.ResetAllForSession(sess.SessionID) {
			return TimeoutNone
		}
		orderID := ""
		if snap.Order != nil {
			orderID = snap.Order.OrderID
		}
		// Unlocking stops this task and cancels ctx
		e.journal.SessionReset(context.WithoutCancel(ctx), models.ResetReasonHardTimeout, sess.SessionID, orderID)
		e.nav.ResetTo(models.ScreenIdle)
		return TimeoutHard
	}

	if now.Sub(*sess.LastInteractionAt) >= e.inactivity {
		if !alive() {
			return TimeoutNone
		}
		e.log.Info("Inactivity timeout, discarding draft", "session_id", sess.SessionID)
		e.store.ResetFeedbackOnly()
		e.store.TouchInteraction()
		e.journal.FeedbackReset(ctx, sess.SessionID)
		if e.nav.CurrentScreen() != models.ScreenStartGate {
			e.nav.NavigateTo(models.ScreenStartGate)
		}
		return TimeoutInactivity
	}

	return TimeoutNone
}
