// Package store is the single source of truth for the kiosk session.
//
// All fields are private. Callers read immutable Snapshot copies and change
// state only through the named operations below, each of which runs under
// one mutex. Observers are called after the mutex is released.
package store

import (
	"sync"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/draft"
	"github.com/abrezinsky/kioskfeedback/internal/errors"
	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/pkg/kioskapi"
)

// EscalationThreshold is the number of consecutive failed submissions that
// raises the staff attention indicator
const EscalationThreshold = 3

// Session is the lock state of the kiosk. Either all fields are set
// (locked) or all are zero.
type Session struct {
	Locked            bool       `json:"locked"`
	SessionID         string     `json:"session_id,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty"`
}

// Submission tracks the state of feedback submission
type Submission struct {
	Loading             bool   `json:"loading"`
	LocalError          string `json:"local_error,omitempty"`
	LastError           string `json:"last_error,omitempty"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Escalated           bool   `json:"escalated"`
}

// ErrorMessage returns the message the shell should show, local validation
// errors first
func (s Submission) ErrorMessage() string {
	if s.LocalError != "" {
		return s.LocalError
	}
	return s.LastError
}

// Snapshot is a deep copy of the store at one point in time
type Snapshot struct {
	Version        uint64               `json:"version"`
	Device         *kioskapi.Device     `json:"device"`
	Order          *kioskapi.Order      `json:"order"`
	OrderItems     []kioskapi.OrderItem `json:"order_items"`
	MenuItems      []kioskapi.MenuItem  `json:"menu_items"`
	DisplayItems   []models.DisplayItem `json:"display_items"`
	Session        Session              `json:"session"`
	Draft          draft.Draft          `json:"draft"`
	Submission     Submission           `json:"submission"`
	ConnectionOK   bool                 `json:"connection_ok"`
	PollingEnabled bool                 `json:"polling_enabled"`
	Notice         string               `json:"notice,omitempty"`
}

// ActiveOrderID returns the device's active order id, or ""
func (s Snapshot) ActiveOrderID() string {
	if s.Device == nil || s.Device.ActiveOrderID == nil {
		return ""
	}
	return *s.Device.ActiveOrderID
}

// TableID returns the order's table, falling back to the device's assigned table
func (s Snapshot) TableID() string {
	if s.Order != nil && s.Order.TableID != "" {
		return s.Order.TableID
	}
	if s.Device != nil && s.Device.AssignedTableID != nil {
		return *s.Device.AssignedTableID
	}
	return ""
}

// state is the mutable record behind the mutex
type state struct {
	device       *kioskapi.Device
	order        *kioskapi.Order
	orderItems   []kioskapi.OrderItem
	menuItems    []kioskapi.MenuItem
	displayItems []models.DisplayItem

	locked            bool
	sessionID         string
	startedAt         time.Time
	lastInteractionAt time.Time

	draft      draft.Draft
	submission Submission

	connectionOK bool
	notice       string
}

func initialState() state {
	return state{
		draft:        draft.New(),
		connectionOK: true,
	}
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds the kiosk session state
type Store struct {
	mu      sync.Mutex
	st      state
	version uint64
	now     func() time.Time

	obsMu        sync.RWMutex
	onChange     []func(Snapshot)
	onLockChange []func(locked bool)
}

// New creates a store in the initial (idle, unlocked) state
func New(opts ...Option) *Store {
	s := &Store{
		st:  initialState(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's clock reading
func (s *Store) Now() time.Time {
	return s.now()
}

// OnChange registers fn to receive a snapshot after every change
func (s *Store) OnChange(fn func(Snapshot)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// OnLockChange registers fn to be called when the session locks or unlocks
func (s *Store) OnLockChange(fn func(locked bool)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.onLockChange = append(s.onLockChange, fn)
}

// update runs fn under the lock. fn reports whether it changed anything.
// Observers are notified afterwards, outside the lock.
func (s *Store) update(fn func(st *state) (bool, error)) error {
	s.mu.Lock()
	wasLocked := s.st.locked
	changed, err := fn(&s.st)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.version++
	snap := s.snapshotLocked()
	lockChanged := wasLocked != s.st.locked
	s.mu.Unlock()

	s.obsMu.RLock()
	onChange := append([]func(Snapshot){}, s.onChange...)
	onLock := append([]func(bool){}, s.onLockChange...)
	s.obsMu.RUnlock()

	if lockChanged {
		for _, cb := range onLock {
			cb(snap.Session.Locked)
		}
	}
	for _, cb := range onChange {
		cb(snap)
	}
	return nil
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	st := &s.st
	snap := Snapshot{
		Version:        s.version,
		OrderItems:     append([]kioskapi.OrderItem{}, st.orderItems...),
		MenuItems:      append([]kioskapi.MenuItem{}, st.menuItems...),
		DisplayItems:   append([]models.DisplayItem{}, st.displayItems...),
		Draft:          st.draft.Clone(),
		Submission:     st.submission,
		ConnectionOK:   st.connectionOK,
		PollingEnabled: !st.locked,
		Notice:         st.notice,
	}
	if st.device != nil {
		d := *st.device
		snap.Device = &d
	}
	if st.order != nil {
		o := *st.order
		o.ItemsSnapshot = append([]byte(nil), st.order.ItemsSnapshot...)
		snap.Order = &o
	}
	if st.locked {
		started, last := st.startedAt, st.lastInteractionAt
		snap.Session = Session{
			Locked:            true,
			SessionID:         st.sessionID,
			StartedAt:         &started,
			LastInteractionAt: &last,
		}
	}
	return snap
}

// Locked reports whether a session is in progress
func (s *Store) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.locked
}

// PollingEnabled is false while a session is locked
func (s *Store) PollingEnabled() bool {
	return !s.Locked()
}

// ApplyPolledState replaces the device and order mirrors with resp.
// It is a no-op while locked and reports whether the state was applied.
func (s *Store) ApplyPolledState(resp *kioskapi.StateResponse) bool {
	if resp == nil {
		return false
	}
	applied := false
	_ = s.update(func(st *state) (bool, error) {
		if st.locked {
			return false, nil
		}
		if resp.Device != nil {
			d := *resp.Device
			st.device = &d
		} else {
			st.device = nil
		}
		if resp.Order != nil {
			o := *resp.Order
			st.order = &o
		} else {
			st.order = nil
		}
		st.orderItems = append([]kioskapi.OrderItem{}, resp.OrderItems...)
		st.menuItems = append([]kioskapi.MenuItem{}, resp.MenuItems...)
		var snapshot []byte
		if st.order != nil {
			snapshot = st.order.ItemsSnapshot
		}
		st.displayItems = models.BuildDisplayItems(snapshot, st.orderItems, st.menuItems)
		applied = true
		return true, nil
	})
	return applied
}

// SetConnectionOK records the outcome of the latest poll and reports
// whether the flag changed
func (s *Store) SetConnectionOK(ok bool) bool {
	changed := false
	_ = s.update(func(st *state) (bool, error) {
		if st.connectionOK == ok {
			return false, nil
		}
		st.connectionOK = ok
		changed = true
		return true, nil
	})
	return changed
}

// LockSession starts a session. Polling stops while the session is locked.
func (s *Store) LockSession(sessionID string) error {
	if sessionID == "" {
		return errors.Validation("session id is required")
	}
	return s.update(func(st *state) (bool, error) {
		if st.locked {
			return false, errors.Conflictf("session %s is already in progress", st.sessionID)
		}
		now := s.now()
		st.locked = true
		st.sessionID = sessionID
		st.startedAt = now
		st.lastInteractionAt = now
		return true, nil
	})
}

// TouchInteraction re-arms the inactivity window. No-op while unlocked.
func (s *Store) TouchInteraction() {
	_ = s.update(func(st *state) (bool, error) {
		if !st.locked {
			return false, nil
		}
		st.lastInteractionAt = s.now()
		return true, nil
	})
}

// ResetFeedbackOnly discards the draft and submission status but keeps the
// mirrors, the session lock and any raised escalation
func (s *Store) ResetFeedbackOnly() {
	_ = s.update(func(st *state) (bool, error) {
		st.draft = draft.New()
		st.submission = Submission{Escalated: st.submission.Escalated}
		return true, nil
	})
}

// ResetAll restores the initial state. Only the connectivity flag survives.
func (s *Store) ResetAll() {
	_ = s.update(func(st *state) (bool, error) {
		resetAll(st)
		return true, nil
	})
}

// ResetAllIfUnlocked resets only when no session is in progress and
// reports whether it did
func (s *Store) ResetAllIfUnlocked() bool {
	done := false
	_ = s.update(func(st *state) (bool, error) {
		if st.locked {
			return false, nil
		}
		resetAll(st)
		done = true
		return true, nil
	})
	return done
}

// ResetAllForSession resets only while sessionID is the locked session
// and reports whether it did
func (s *Store) ResetAllForSession(sessionID string) bool {
	done := false
	_ = s.update(func(st *state) (bool, error) {
		if !st.locked || st.sessionID != sessionID {
			return false, nil
		}
		resetAll(st)
		done = true
		return true, nil
	})
	return done
}

func resetAll(st *state) {
	ok := st.connectionOK
	*st = initialState()
	st.connectionOK = ok
}

// ShowNotice sets the transient user-facing notice
func (s *Store) ShowNotice(msg string) {
	_ = s.update(func(st *state) (bool, error) {
		st.notice = msg
		return true, nil
	})
}

// ClearNotice removes the notice
func (s *Store) ClearNotice() {
	_ = s.update(func(st *state) (bool, error) {
		if st.notice == "" {
			return false, nil
		}
		st.notice = ""
		return true, nil
	})
}

// BeginSubmit marks a submission as in flight for sessionID
func (s *Store) BeginSubmit(sessionID string) error {
	return s.update(func(st *state) (bool, error) {
		if !st.locked || st.sessionID != sessionID {
			return false, errors.Conflict("session is no longer active")
		}
		if st.submission.Loading {
			return false, errors.Conflict("submission already in progress")
		}
		st.submission.Loading = true
		st.submission.LastError = ""
		st.submission.LocalError = ""
		return true, nil
	})
}

// SetLocalError records a validation problem found before submitting
func (s *Store) SetLocalError(msg string) {
	_ = s.update(func(st *state) (bool, error) {
		st.submission.LocalError = msg
		return true, nil
	})
}

// SubmitSucceeded clears the failure counter and resets the store.
// It reports false when sessionID is no longer the active session, in
// which case nothing changes.
func (s *Store) SubmitSucceeded(sessionID string) bool {
	done := false
	_ = s.update(func(st *state) (bool, error) {
		if !st.locked || st.sessionID != sessionID {
			return false, nil
		}
		st.submission.ConsecutiveFailures = 0
		resetAll(st)
		done = true
		return true, nil
	})
	return done
}

// SubmitFailed counts a failed submission for sessionID, records msg and
// raises escalation once the threshold is reached. It returns the failure
// count, or 0 if the session is gone.
func (s *Store) SubmitFailed(sessionID, msg string) int {
	count := 0
	_ = s.update(func(st *state) (bool, error) {
		if !st.locked || st.sessionID != sessionID {
			return false, nil
		}
		st.submission.Loading = false
		st.submission.LastError = msg
		st.submission.ConsecutiveFailures++
		if st.submission.ConsecutiveFailures >= EscalationThreshold {
			st.submission.Escalated = true
		}
		count = st.submission.ConsecutiveFailures
		return true, nil
	})
	return count
}

// AcknowledgeEscalation clears the staff attention indicator. The failure
// count is left alone. Reports whether an escalation was active.
func (s *Store) AcknowledgeEscalation() bool {
	acked := false
	_ = s.update(func(st *state) (bool, error) {
		if !st.submission.Escalated {
			return false, nil
		}
		st.submission.Escalated = false
		acked = true
		return true, nil
	})
	return acked
}

// editDraft applies fn to the draft of the locked session
func (s *Store) editDraft(fn func(d *draft.Draft) error) error {
	return s.update(func(st *state) (bool, error) {
		if !st.locked {
			return false, errors.Validation("no session in progress")
		}
		d := st.draft.Clone()
		if err := fn(&d); err != nil {
			return false, err
		}
		st.draft = d
		st.submission.LocalError = ""
		return true, nil
	})
}

// SetOverallRating sets the overall 1..5 rating of the draft
func (s *Store) SetOverallRating(r int) error {
	return s.editDraft(func(d *draft.Draft) error { return d.SetOverallRating(r) })
}

// SetItemRating rates one displayed item
func (s *Store) SetItemRating(itemID string, r int) error {
	return s.editDraft(func(d *draft.Draft) error { return d.SetItemRating(itemID, r) })
}

// SetItemComment replaces the free-text comment on an item
func (s *Store) SetItemComment(itemID, text string) error {
	return s.editDraft(func(d *draft.Draft) error { return d.SetItemComment(itemID, text) })
}

// ToggleItemChip adds or removes a quick-tag chip on an item
func (s *Store) ToggleItemChip(itemID, chip string) error {
	return s.editDraft(func(d *draft.Draft) error { return d.ToggleItemChip(itemID, chip) })
}

// SetGeneralText replaces the general feedback text
func (s *Store) SetGeneralText(text string) error {
	return s.editDraft(func(d *draft.Draft) error {
		d.SetGeneralText(text)
		return nil
	})
}

// ToggleGeneralChip adds or removes a general feedback chip
func (s *Store) ToggleGeneralChip(chip string) error {
	return s.editDraft(func(d *draft.Draft) error { return d.ToggleGeneralChip(chip) })
}

// SetAllowContact records whether the customer may be contacted
func (s *Store) SetAllowContact(allow bool) error {
	return s.editDraft(func(d *draft.Draft) error {
		d.SetAllowContact(allow)
		return nil
	})
}
