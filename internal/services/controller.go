package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/kioskfeedback/internal/errors"
	"github.com/abrezinsky/kioskfeedback/internal/logger"
	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/internal/store"
	"github.com/abrezinsky/kioskfeedback/pkg/kioskapi"
)

// ControllerConfig holds the session timing policy
type ControllerConfig struct {
	DeviceID          string
	PollInterval      time.Duration
	HardTimeout       time.Duration
	InactivityTimeout time.Duration
	ThankYouDelay     time.Duration
}

// WS message types owned by the controller
const (
	WSTypeCountdown = "countdown"
)

// Controller wires the store to the poller, the timeout enforcer and the
// submitter. Polling runs while the session is unlocked, timeout checks
// while it is locked; the switch happens on every lock transition.
type Controller struct {
	log       logger.Logger
	cfg       ControllerConfig
	client    kioskapi.Client
	store     *store.Store
	nav       Navigator
	journal   JournalServicer
	poller    *Poller
	timeouts  *TimeoutEnforcer
	submitter *Submitter

	broadcaster  Broadcaster
	newSessionID func() string

	mu             sync.Mutex
	ctx            context.Context
	running        bool
	thankYouCancel context.CancelFunc
}

// NewController creates a new Controller
func NewController(log logger.Logger, cfg ControllerConfig, client kioskapi.Client, st *store.Store, nav Navigator, journal JournalServicer) *Controller {
	c := &Controller{
		log:          log.With("component", "controller"),
		cfg:          cfg,
		client:       client,
		store:        st,
		nav:          nav,
		journal:      journal,
		poller:       NewPoller(log, client, st, nav, journal, cfg.DeviceID, cfg.PollInterval),
		timeouts:     NewTimeoutEnforcer(log, client, st, nav, journal, cfg.DeviceID, cfg.HardTimeout, cfg.InactivityTimeout),
		submitter:    NewSubmitter(log, client, st, nav, journal, cfg.DeviceID),
		newSessionID: uuid.NewString,
		ctx:          context.Background(),
	}
	st.OnLockChange(func(bool) { c.reconcile() })
	st.OnChange(c.broadcastState)
	return c
}

// SetBroadcaster sets the broadcaster for state and countdown updates
func (c *Controller) SetBroadcaster(b Broadcaster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcaster = b
}

// Start begins polling (or timeout checks if a session is already locked)
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.running = true
	c.mu.Unlock()
	c.log.Info("Controller started", "device_id", c.cfg.DeviceID, "poll_interval", c.cfg.PollInterval)
	c.reconcile()
}

// Stop halts all periodic work
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.poller.Stop()
	c.timeouts.Stop()
	if c.thankYouCancel != nil {
		c.thankYouCancel()
		c.thankYouCancel = nil
	}
}

// reconcile runs exactly the task that matches the current lock state
func (c *Controller) reconcile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	if c.store.Locked() {
		c.poller.Stop()
		c.timeouts.Start(c.ctx)
		if c.thankYouCancel != nil {
			c.thankYouCancel()
			c.thankYouCancel = nil
		}
		return
	}
	c.timeouts.Stop()
	c.poller.Start(c.ctx)
}

// PollerRunning reports whether the poller is active
func (c *Controller) PollerRunning() bool {
	return c.poller.Running()
}

// TimeoutsRunning reports whether timeout checks are active
func (c *Controller) TimeoutsRunning() bool {
	return c.timeouts.Running()
}

// DeviceID returns the kiosk device id
func (c *Controller) DeviceID() string {
	return c.cfg.DeviceID
}

// Snapshot returns the current store state
func (c *Controller) Snapshot() store.Snapshot {
	return c.store.Snapshot()
}

// StartSession confirms the start gate: the draft is cleared, the session
// locks under a fresh id and the shell moves to the overall rating screen.
// It requires an order.
func (c *Controller) StartSession(ctx context.Context) (string, error) {
	snap := c.store.Snapshot()
	if snap.Session.Locked {
		return "", ErrSessionInProgress
	}
	if snap.Order == nil || snap.Order.OrderID == "" {
		return "", ErrNoOrder
	}

	c.store.ResetFeedbackOnly()
	sessionID := c.newSessionID()
	if err := c.store.LockSession(sessionID); err != nil {
		return "", err
	}
	c.log.Info("Session started", "session_id", sessionID, "order_id", snap.Order.OrderID, "table_id", snap.TableID())
	c.journal.SessionStarted(ctx, sessionID, snap.Order.OrderID)
	c.nav.NavigateTo(models.ScreenOverallRating)
	return sessionID, nil
}

// Touch records customer interaction
func (c *Controller) Touch() {
	c.store.TouchInteraction()
}

// Submit sends the draft and, on success, schedules the return to idle
func (c *Controller) Submit(ctx context.Context) (*SubmitResult, error) {
	c.store.TouchInteraction()
	result, err := c.submitter.Submit(ctx)
	if err == nil && result.Submitted && !c.store.Locked() {
		c.startThankYouCountdown()
	}
	return result, err
}

// StaffReset abandons the current session on a staff request
func (c *Controller) StaffReset(ctx context.Context) error {
	snap := c.store.Snapshot()
	if _, err := c.client.ResetDevice(ctx, c.cfg.DeviceID); err != nil {
		c.log.Debug("Best-effort device reset failed", "error", err)
	}
	c.store.ResetAll()

	orderID := ""
	if snap.Order != nil {
		orderID = snap.Order.OrderID
	}
	c.log.Info("Session reset by staff", "session_id", snap.Session.SessionID)
	c.journal.SessionReset(ctx, models.ResetReasonStaff, snap.Session.SessionID, orderID)
	c.nav.ResetTo(models.ScreenIdle)
	return nil
}

// AcknowledgeEscalation clears the staff attention indicator
func (c *Controller) AcknowledgeEscalation(ctx context.Context) bool {
	sessionID := c.store.Snapshot().Session.SessionID
	if !c.store.AcknowledgeEscalation() {
		return false
	}
	c.journal.EscalationAcknowledged(ctx, sessionID)
	return true
}

// EscalationQR renders a QR code identifying the escalated session so staff
// can look it up
func (c *Controller) EscalationQR(size int) ([]byte, error) {
	snap := c.store.Snapshot()
	if !snap.Submission.Escalated {
		return nil, ErrNotEscalated
	}
	if size <= 0 {
		size = 256
	}
	orderID := ""
	if snap.Order != nil {
		orderID = snap.Order.OrderID
	}
	content := fmt.Sprintf("kiosk:%s/order:%s/session:%s", c.cfg.DeviceID, orderID, snap.Session.SessionID)
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return png, nil
}

// Stats returns journal statistics
func (c *Controller) Stats(ctx context.Context, since time.Time) (*models.JournalStats, error) {
	return c.journal.Stats(ctx, since)
}

// RecentEvents returns recent journal events
func (c *Controller) RecentEvents(ctx context.Context, kind string, limit int) ([]models.JournalEvent, error) {
	return c.journal.RecentEvents(ctx, kind, limit)
}

func (c *Controller) broadcastState(snap store.Snapshot) {
	c.mu.Lock()
	b := c.broadcaster
	c.mu.Unlock()
	if b != nil {
		b.BroadcastMessage(models.WSTypeState, snap)
	}
}

func (c *Controller) startThankYouCountdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.thankYouCancel != nil {
		c.thankYouCancel()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.thankYouCancel = cancel
	go c.runThankYouCountdown(ctx, c.cfg.ThankYouDelay)
}

// runThankYouCountdown broadcasts the seconds left every second and returns
// the shell to idle when the delay ends, unless a new session began
func (c *Controller) runThankYouCountdown(ctx context.Context, delay time.Duration) {
	deadline := time.Now().Add(delay)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	c.broadcastCountdown(deadline)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.broadcastCountdown(deadline)
		case <-timer.C:
			if !c.store.Locked() && c.nav.CurrentScreen() == models.ScreenThankYou {
				c.nav.ResetTo(models.ScreenIdle)
			}
			return
		}
	}
}

func (c *Controller) broadcastCountdown(deadline time.Time) {
	c.mu.Lock()
	b := c.broadcaster
	c.mu.Unlock()
	if b == nil {
		return
	}
	remaining := int(time.Until(deadline).Round(time.Second) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	b.BroadcastMessage(WSTypeCountdown, map[string]interface{}{
		"screen":            models.ScreenThankYou,
		"seconds_remaining": remaining,
	})
}
