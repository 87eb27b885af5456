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

// Poller mirrors the backend's device state into the store while no
// session is locked
type Poller struct {
	log      logger.Logger
	client   kioskapi.Client
	store    *store.Store
	nav      Navigator
	journal  JournalServicer
	deviceID string
	task     *tasks.Periodic
}

// NewPoller creates a stopped Poller
func NewPoller(log logger.Logger, client kioskapi.Client, st *store.Store, nav Navigator, journal JournalServicer, deviceID string, interval time.Duration) *Poller {
	p := &Poller{
		log:      log.With("component", "poller"),
		client:   client,
		store:    st,
		nav:      nav,
		journal:  journal,
		deviceID: deviceID,
	}
	p.task = tasks.NewPeriodic("poller", interval, p.log, p.Poll)
	return p
}

// Start begins polling with an immediate first poll
func (p *Poller) Start(ctx context.Context) {
	p.task.Start(ctx)
}

// Stop cancels polling. A poll in flight is abandoned.
func (p *Poller) Stop() {
	p.task.Stop()
}

// Running reports whether polling is active
func (p *Poller) Running() bool {
	return p.task.Running()
}

// Poll performs one reconciliation with the backend. Every store mutation
// after the network call is gated on tok.
func (p *Poller) Poll(ctx context.Context, tok tasks.Token) {
	resp, err := p.client.FetchState(ctx, p.deviceID)
	if !tok.Alive() {
		return
	}
	if err != nil {
		p.log.Debug("Poll failed", "error", err)
		p.setConnection(ctx, false)
		return
	}
	p.setConnection(ctx, true)

	if resp.Completed() {
		p.handleCompleted(ctx, tok, resp)
		return
	}

	if p.store.ApplyPolledState(resp) {
		p.autoAdvance()
	}
}

func (p *Poller) setConnection(ctx context.Context, ok bool) {
	if p.store.SetConnectionOK(ok) {
		p.log.Info("Backend connectivity changed", "connection_ok", ok)
		p.journal.ConnectionChanged(ctx, ok)
	}
}

// handleCompleted clears local state for an order that already has feedback
func (p *Poller) handleCompleted(ctx context.Context, tok tasks.Token, resp *kioskapi.StateResponse) {
	if !p.store.ResetAllIfUnlocked() {
		return
	}
	orderID := ""
	if resp.Order != nil {
		orderID = resp.Order.OrderID
	}
	p.log.Info("Order already completed, returning to idle", "order_id", orderID)
	p.store.ShowNotice(AlreadySubmittedMessage)
	p.journal.AlreadyCompleted(ctx, orderID)
	p.journal.SessionReset(ctx, models.ResetReasonAlreadyCompleted, "", orderID)

	if _, err := p.client.ResetDevice(ctx, p.deviceID); err != nil {
		p.log.Debug("Best-effort device reset failed", "error", err)
	}
	if !tok.Alive() || p.store.Locked() {
		return
	}
	p.nav.ResetTo(models.ScreenIdle)
}

// autoAdvance moves the shell from Idle to the start gate once an order is assigned
func (p *Poller) autoAdvance() {
	snap := p.store.Snapshot()
	if snap.Session.Locked || snap.Device == nil {
		return
	}
	if snap.Device.Status != kioskapi.DeviceActive || snap.ActiveOrderID() == "" {
		return
	}
	if p.nav.CurrentScreen() == models.ScreenIdle {
		p.nav.NavigateTo(models.ScreenStartGate)
	}
}
