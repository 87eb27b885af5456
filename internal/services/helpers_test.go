package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/events"
	"github.com/abrezinsky/kioskfeedback/internal/logger"
	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/internal/services"
	"github.com/abrezinsky/kioskfeedback/internal/store"
	"github.com/abrezinsky/kioskfeedback/internal/tasks"
	"github.com/abrezinsky/kioskfeedback/internal/testutil"
	"github.com/abrezinsky/kioskfeedback/pkg/kioskapi"
)

const testDeviceID = "KIOSK_MAIN"

// fakeNavigator records navigation calls
type fakeNavigator struct {
	mu      sync.Mutex
	current models.Screen
	calls   []string
}

func newFakeNavigator(current models.Screen) *fakeNavigator {
	return &fakeNavigator{current: current}
}

func (n *fakeNavigator) NavigateTo(screen models.Screen) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = screen
	n.calls = append(n.calls, "navigate:"+string(screen))
}

func (n *fakeNavigator) ResetTo(screen models.Screen) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = screen
	n.calls = append(n.calls, "reset:"+string(screen))
}

func (n *fakeNavigator) CurrentScreen() models.Screen {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *fakeNavigator) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// fakeBroadcaster records broadcast message types
type fakeBroadcaster struct {
	mu    sync.Mutex
	types []string
}

func (b *fakeBroadcaster) BroadcastMessage(msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.types = append(b.types, msgType)
}

func (b *fakeBroadcaster) Count(msgType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.types {
		if t == msgType {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// testEnv bundles the collaborators most service tests need
type testEnv struct {
	client    *kioskapi.MockClient
	store     *store.Store
	clock     *fakeClock
	nav       *fakeNavigator
	journal   *services.JournalService
	publisher *events.RecordingPublisher
}

func newTestEnv(t *testing.T, opts ...kioskapi.MockOption) *testEnv {
	t.Helper()
	clock := newFakeClock()
	publisher := &events.RecordingPublisher{}
	journal := services.NewJournalService(logger.Nop(), testutil.NewTestRepository(t), testDeviceID)
	journal.SetPublisher(publisher)
	return &testEnv{
		client:    kioskapi.NewMockClient(opts...),
		store:     store.New(store.WithClock(clock.Now)),
		clock:     clock,
		nav:       newFakeNavigator(models.ScreenIdle),
		journal:   journal,
		publisher: publisher,
	}
}

func activeState() *kioskapi.StateResponse {
	return kioskapi.ActiveState(testDeviceID, "order-1", "T5")
}

// lockWithOrder mirrors an active order and locks a session on it
func (e *testEnv) lockWithOrder(t *testing.T, sessionID string) {
	t.Helper()
	if !e.store.ApplyPolledState(activeState()) {
		t.Fatal("failed to apply polled state")
	}
	if err := e.store.LockSession(sessionID); err != nil {
		t.Fatalf("LockSession failed: %v", err)
	}
}

// liveToken returns a token from a running periodic task
func liveToken(t *testing.T) tasks.Token {
	t.Helper()
	ch := make(chan tasks.Token, 1)
	p := tasks.NewPeriodic("test", time.Hour, logger.Nop(), func(ctx context.Context, tok tasks.Token) {
		ch <- tok
	})
	p.Start(context.Background())
	t.Cleanup(p.Stop)
	return <-ch
}
