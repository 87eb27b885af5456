package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/auth"
	"github.com/abrezinsky/kioskfeedback/internal/handlers"
	"github.com/abrezinsky/kioskfeedback/internal/logger"
	"github.com/abrezinsky/kioskfeedback/internal/services"
	"github.com/abrezinsky/kioskfeedback/internal/store"
	"github.com/abrezinsky/kioskfeedback/internal/testutil"
	"github.com/abrezinsky/kioskfeedback/internal/websocket"
	"github.com/abrezinsky/kioskfeedback/pkg/kioskapi"
	"github.com/abrezinsky/kioskfeedback/web"
)

const testDeviceID = "KIOSK_MAIN"

type testSetup struct {
	router     http.Handler
	handlers   *handlers.Handlers
	store      *store.Store
	client     *kioskapi.MockClient
	controller *services.Controller
	hub        *websocket.Hub
	authCookie *http.Cookie
}

func newControllerStack(t *testing.T, opts ...kioskapi.MockOption) (*store.Store, *kioskapi.MockClient, *services.Controller, *websocket.Hub) {
	t.Helper()
	log := logger.Nop()
	st := store.New()
	client := kioskapi.NewMockClient(opts...)
	hub := websocket.New(log)
	hub.Start()
	journal := services.NewJournalService(log, testutil.NewTestRepository(t), testDeviceID)
	controller := services.NewController(log, services.ControllerConfig{
		DeviceID:          testDeviceID,
		PollInterval:      time.Hour,
		HardTimeout:       3 * time.Minute,
		InactivityTimeout: 90 * time.Second,
		ThankYouDelay:     50 * time.Millisecond,
	}, client, st, hub, journal)
	controller.SetBroadcaster(hub)
	hub.SetStateSource(controller)
	t.Cleanup(controller.Stop)
	return st, client, controller, hub
}

func newTestSetup(t *testing.T, opts ...kioskapi.MockOption) *testSetup {
	t.Helper()
	st, client, controller, hub := newControllerStack(t, opts...)
	h := handlers.NewForTesting(controller, st, hub)
	return &testSetup{
		router:     h.Router(),
		handlers:   h,
		store:      st,
		client:     client,
		controller: controller,
		hub:        hub,
		authCookie: loginCookie(t, h.Auth),
	}
}

func loginCookie(t *testing.T, a *auth.Auth) *http.Cookie {
	t.Helper()
	token, ok := a.Login("test-password")
	if !ok {
		t.Fatal("failed to log in with test password")
	}
	return &http.Cookie{Name: auth.CookieName, Value: token}
}

func (s *testSetup) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// startSession mirrors an active order and starts a session through the API
func (s *testSetup) startSession(t *testing.T) string {
	t.Helper()
	s.store.ApplyPolledState(kioskapi.ActiveState(testDeviceID, "order-1", "T5"))
	rec := s.do(t, http.MethodPost, "/api/session/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 starting session, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp handlers.StartSessionResponse
	decode(t, rec, &resp)
	return resp.SessionID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var apiErr handlers.APIError
	decode(t, rec, &apiErr)
	return apiErr.Code
}

// ==================== Kiosk API ====================

func TestHealth(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/healthz", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp handlers.HealthResponse
	decode(t, rec, &resp)
	if !resp.OK || resp.DeviceID != testDeviceID || !resp.ConnectionOK || resp.Locked {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestGetState(t *testing.T) {
	setup := newTestSetup(t)
	setup.store.ApplyPolledState(kioskapi.ActiveState(testDeviceID, "order-1", "T5"))

	rec := setup.do(t, http.MethodGet, "/api/state", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap store.Snapshot
	decode(t, rec, &snap)
	if snap.Order == nil || snap.Order.OrderID != "order-1" {
		t.Errorf("expected order-1 in state, got %+v", snap.Order)
	}
	if len(snap.DisplayItems) != 3 {
		t.Errorf("expected 3 display items, got %d", len(snap.DisplayItems))
	}
	if snap.Session.Locked {
		t.Error("expected unlocked session")
	}
}

func TestStartSession_NoOrder(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/session/start", nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != handlers.ErrCodeNoOrder {
		t.Errorf("expected %s, got %s", handlers.ErrCodeNoOrder, code)
	}
}

func TestStartSession_LocksAndNavigates(t *testing.T) {
	setup := newTestSetup(t)

	id := setup.startSession(t)

	if id == "" {
		t.Fatal("expected a session id")
	}
	if !setup.store.Locked() {
		t.Error("expected session to be locked")
	}
	if got := setup.hub.CurrentScreen(); got != "OverallRating" {
		t.Errorf("expected OverallRating, got %s", got)
	}

	rec := setup.do(t, http.MethodPost, "/api/session/start", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for second start, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != handlers.ErrCodeSessionInProgress {
		t.Errorf("expected %s, got %s", handlers.ErrCodeSessionInProgress, code)
	}
}

func TestTouch(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	before := *setup.store.Snapshot().Session.LastInteractionAt

	time.Sleep(5 * time.Millisecond)
	rec := setup.do(t, http.MethodPost, "/api/touch", nil)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	after := *setup.store.Snapshot().Session.LastInteractionAt
	if !after.After(before) {
		t.Errorf("expected interaction time to advance, before %v after %v", before, after)
	}
}

func TestDraft_RequiresSession(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/draft/overall", handlers.RatingRequest{Rating: 4})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != handlers.ErrCodeValidation {
		t.Errorf("expected %s, got %s", handlers.ErrCodeValidation, code)
	}
}

func TestDraft_RejectsBadInput(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"overall out of range", "/api/draft/overall", handlers.RatingRequest{Rating: 6}},
		{"overall zero", "/api/draft/overall", handlers.RatingRequest{Rating: 0}},
		{"item out of range", "/api/draft/items/burger/rating", handlers.RatingRequest{Rating: 9}},
		{"empty item chip", "/api/draft/items/burger/chips", handlers.ChipRequest{}},
		{"empty general chip", "/api/draft/general/chips", handlers.ChipRequest{}},
		{"empty body", "/api/draft/general/text", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := setup.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDraft_EditsReturnState(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	steps := []struct {
		path string
		body interface{}
	}{
		{"/api/draft/overall", handlers.RatingRequest{Rating: 4}},
		{"/api/draft/items/burger/rating", handlers.RatingRequest{Rating: 5}},
		{"/api/draft/items/fries/rating", handlers.RatingRequest{Rating: 2}},
		{"/api/draft/items/fries/comment", handlers.TextRequest{Text: "too salty"}},
		{"/api/draft/items/fries/chips", handlers.ChipRequest{Chip: "cold"}},
		{"/api/draft/general/text", handlers.TextRequest{Text: "friendly staff"}},
		{"/api/draft/general/chips", handlers.ChipRequest{Chip: "fast"}},
		{"/api/draft/contact", handlers.ContactRequest{Allow: true}},
	}
	var snap store.Snapshot
	for _, step := range steps {
		rec := setup.do(t, http.MethodPost, step.path, step.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", step.path, rec.Code, rec.Body.String())
		}
		decode(t, rec, &snap)
	}

	d := snap.Draft
	if d.OverallRating != 4 {
		t.Errorf("expected overall 4, got %d", d.OverallRating)
	}
	if d.Items["fries"].CommentText != "too salty" {
		t.Errorf("expected fries comment, got %q", d.Items["fries"].CommentText)
	}
	if len(d.Items["fries"].Chips) != 1 || d.Items["fries"].Chips[0] != "cold" {
		t.Errorf("expected fries chip cold, got %v", d.Items["fries"].Chips)
	}
	if len(d.GeneralChips) != 1 || !d.AllowContact {
		t.Errorf("unexpected general draft: %+v", d)
	}
}

func TestSubmit_Success(t *testing.T) {
	setup := newTestSetup(t)
	id := setup.startSession(t)
	setup.do(t, http.MethodPost, "/api/draft/overall", handlers.RatingRequest{Rating: 5})
	setup.do(t, http.MethodPost, "/api/draft/items/burger/rating", handlers.RatingRequest{Rating: 4})

	rec := setup.do(t, http.MethodPost, "/api/submit", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result services.SubmitResult
	decode(t, rec, &result)
	if !result.Submitted || result.SessionID != id {
		t.Errorf("unexpected submit result: %+v", result)
	}

	payloads := setup.client.Payloads()
	if len(payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(payloads))
	}
	if payloads[0].SessionID != id || payloads[0].OverallRating != 5 || len(payloads[0].ItemRatings) != 1 {
		t.Errorf("unexpected payload: %+v", payloads[0])
	}
	if setup.store.Locked() {
		t.Error("expected session to be released after submit")
	}
}

func TestSubmit_NothingRated(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.do(t, http.MethodPost, "/api/draft/overall", handlers.RatingRequest{Rating: 5})

	rec := setup.do(t, http.MethodPost, "/api/submit", nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if setup.client.SubmitCalls() != 0 {
		t.Error("expected no backend call")
	}
	if setup.store.Snapshot().Submission.LocalError == "" {
		t.Error("expected local error to be set")
	}
}

func TestSubmit_FailureEscalatesToStaff(t *testing.T) {
	setup := newTestSetup(t, kioskapi.WithSubmitError(errors.New("backend down")))
	setup.startSession(t)
	setup.do(t, http.MethodPost, "/api/draft/overall", handlers.RatingRequest{Rating: 3})
	setup.do(t, http.MethodPost, "/api/draft/items/burger/rating", handlers.RatingRequest{Rating: 3})

	// No QR before escalation
	rec := setup.do(t, http.MethodGet, "/api/escalation/qr", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before escalation, got %d", rec.Code)
	}

	var failed handlers.SubmitFailedResponse
	for i := 1; i <= 3; i++ {
		rec = setup.do(t, http.MethodPost, "/api/submit", nil)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("attempt %d: expected 502, got %d", i, rec.Code)
		}
		decode(t, rec, &failed)
		if failed.Failures != i {
			t.Errorf("attempt %d: expected %d failures, got %d", i, i, failed.Failures)
		}
	}
	if !failed.Escalated || failed.Code != handlers.ErrCodeSubmitFailed {
		t.Errorf("expected escalated failure, got %+v", failed)
	}
	if failed.Message != services.EscalationMessage {
		t.Errorf("expected escalation message, got %q", failed.Message)
	}

	rec = setup.do(t, http.MethodGet, "/api/escalation/qr?size=128", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for QR, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}

	rec = setup.do(t, http.MethodPost, "/api/staff/acknowledge", nil, setup.authCookie)
	var ack handlers.AcknowledgeResponse
	decode(t, rec, &ack)
	if !ack.Acknowledged {
		t.Error("expected escalation to be acknowledged")
	}
	if setup.store.Snapshot().Submission.Escalated {
		t.Error("expected escalation flag cleared")
	}
}

func TestEscalationQR_InvalidSize(t *testing.T) {
	setup := newTestSetup(t)

	for _, q := range []string{"?size=abc", "?size=10", "?size=5000"} {
		rec := setup.do(t, http.MethodGet, "/api/escalation/qr"+q, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestReportScreen(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/screen", handlers.ScreenRequest{Screen: "ItemRatings"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := setup.hub.CurrentScreen(); got != "ItemRatings" {
		t.Errorf("expected ItemRatings, got %s", got)
	}

	rec = setup.do(t, http.MethodPost, "/api/screen", handlers.ScreenRequest{Screen: "Bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown screen, got %d", rec.Code)
	}
}

func TestClearNotice(t *testing.T) {
	setup := newTestSetup(t)
	setup.store.ShowNotice(services.AlreadySubmittedMessage)

	rec := setup.do(t, http.MethodPost, "/api/notice/clear", nil)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if setup.store.Snapshot().Notice != "" {
		t.Error("expected notice to be cleared")
	}
}

// ==================== Staff API ====================

func TestStaffAPI_RequiresLogin(t *testing.T) {
	setup := newTestSetup(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/staff/stats"},
		{http.MethodGet, "/api/staff/events"},
		{http.MethodPost, "/api/staff/reset"},
		{http.MethodPost, "/api/staff/acknowledge"},
	} {
		rec := setup.do(t, route.method, route.path, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", route.method, route.path, rec.Code)
		}
	}
}

func TestStaffLogin(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/staff/login", handlers.LoginRequest{Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", rec.Code)
	}

	rec = setup.do(t, http.MethodPost, "/api/staff/login", handlers.LoginRequest{Password: "test-password"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected session cookie")
	}

	rec = setup.do(t, http.MethodGet, "/api/staff/stats", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with cookie, got %d", rec.Code)
	}

	setup.do(t, http.MethodPost, "/api/staff/logout", nil, cookie)
	rec = setup.do(t, http.MethodGet, "/api/staff/stats", nil, cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestStaffStats(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	rec := setup.do(t, http.MethodGet, "/api/staff/stats", nil, setup.authCookie)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp handlers.StaffStatsResponse
	decode(t, rec, &resp)
	if resp.DeviceID != testDeviceID || !resp.Locked || resp.SessionID == "" {
		t.Errorf("unexpected live status: %+v", resp)
	}
	if resp.Journal == nil || resp.Journal.SessionsStarted != 1 {
		t.Errorf("expected 1 session started, got %+v", resp.Journal)
	}

	rec = setup.do(t, http.MethodGet, "/api/staff/stats?since=yesterday", nil, setup.authCookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad since, got %d", rec.Code)
	}

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	rec = setup.do(t, http.MethodGet, "/api/staff/stats?since="+future, nil, setup.authCookie)
	decode(t, rec, &resp)
	if resp.Journal.SessionsStarted != 0 {
		t.Errorf("expected no sessions after %s, got %d", future, resp.Journal.SessionsStarted)
	}
}

func TestStaffEvents(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/api/staff/events", nil, setup.authCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"events":[]`) {
		t.Errorf("expected empty events array, got %s", rec.Body.String())
	}

	setup.startSession(t)
	rec = setup.do(t, http.MethodGet, "/api/staff/events?kind=session_started&limit=5", nil, setup.authCookie)
	var resp handlers.EventsResponse
	decode(t, rec, &resp)
	if len(resp.Events) != 1 {
		t.Errorf("expected 1 event, got %d", len(resp.Events))
	}

	rec = setup.do(t, http.MethodGet, "/api/staff/events?limit=x", nil, setup.authCookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestStaffReset(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	rec := setup.do(t, http.MethodPost, "/api/staff/reset", nil, setup.authCookie)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if setup.store.Locked() {
		t.Error("expected session to be released")
	}
	if setup.client.ResetCalls() != 1 {
		t.Errorf("expected 1 backend reset call, got %d", setup.client.ResetCalls())
	}
	if got := setup.hub.CurrentScreen(); got != "Idle" {
		t.Errorf("expected Idle, got %s", got)
	}
}

// ==================== Staff console ====================

func testTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"login.html": &fstest.MapFile{Data: []byte(`<html><body>Login{{if .Error}} {{.Error}}{{end}}</body></html>`)},
		"staff.html": &fstest.MapFile{Data: []byte(`<html><body>{{.Title}} {{.DeviceID}} events={{len .Events}}</body></html>`)},
	}
}

func newTestSetupWithTemplates(t *testing.T) *testSetup {
	t.Helper()
	st, client, controller, hub := newControllerStack(t)
	staffAuth := auth.New("test-password")
	h, err := handlers.New(controller, st, testTemplatesFS(), handlers.NewStaticServer(fstest.MapFS{}), staffAuth, hub, handlers.NoopHTTPLogger{})
	if err != nil {
		t.Fatalf("failed to create handlers: %v", err)
	}
	return &testSetup{
		router:     h.Router(),
		handlers:   h,
		store:      st,
		client:     client,
		controller: controller,
		hub:        hub,
		authCookie: loginCookie(t, staffAuth),
	}
}

func TestStaffPage_EmbeddedTemplates(t *testing.T) {
	st, _, controller, hub := newControllerStack(t)
	staffAuth := auth.New("test-password")
	h, err := handlers.New(controller, st, web.GetTemplatesFS(), handlers.NewStaticServer(web.GetStaticFS()), staffAuth, hub, handlers.NoopHTTPLogger{})
	if err != nil {
		t.Fatalf("failed to load embedded templates: %v", err)
	}
	setup := &testSetup{router: h.Router(), handlers: h, store: st, controller: controller, hub: hub, authCookie: loginCookie(t, staffAuth)}
	setup.startSession(t)

	rec := setup.do(t, http.MethodGet, "/staff", nil, setup.authCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"order-1", "session_started"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in staff page", want)
		}
	}

	rec = setup.do(t, http.MethodGet, "/static/staff.css", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for static asset, got %d", rec.Code)
	}
}

func TestNew_MissingTemplate(t *testing.T) {
	st, _, controller, hub := newControllerStack(t)
	fs := fstest.MapFS{
		"login.html": &fstest.MapFile{Data: []byte(`Login`)},
	}

	_, err := handlers.New(controller, st, fs, handlers.NewStaticServer(fs), auth.New("pw"), hub, handlers.NoopHTTPLogger{})

	if err == nil {
		t.Fatal("expected error for missing staff template")
	}
}

func TestStaffPage_RedirectsWithoutLogin(t *testing.T) {
	setup := newTestSetupWithTemplates(t)

	rec := setup.do(t, http.MethodGet, "/staff", nil)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != auth.LoginPath {
		t.Errorf("expected redirect to %s, got %s", auth.LoginPath, loc)
	}
}

func TestStaffPage_Renders(t *testing.T) {
	setup := newTestSetupWithTemplates(t)
	setup.startSession(t)

	rec := setup.do(t, http.MethodGet, "/staff", nil, setup.authCookie)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, testDeviceID) {
		t.Errorf("expected device id in page, got %s", body)
	}
	if !strings.Contains(body, "events=1") {
		t.Errorf("expected one journal event in page, got %s", body)
	}
}

func TestLoginForm(t *testing.T) {
	setup := newTestSetupWithTemplates(t)

	req := httptest.NewRequest(http.MethodPost, "/staff/login", strings.NewReader("password=wrong"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	setup.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid password") {
		t.Errorf("expected error on login page, got %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/staff/login", strings.NewReader("password=test-password"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	setup.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/staff" {
		t.Errorf("expected redirect to /staff, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLoginPage_AlreadyLoggedIn(t *testing.T) {
	setup := newTestSetupWithTemplates(t)

	rec := setup.do(t, http.MethodGet, "/staff/login", nil, setup.authCookie)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
}

func TestLogoutForm(t *testing.T) {
	setup := newTestSetupWithTemplates(t)

	rec := setup.do(t, http.MethodPost, "/staff/logout", nil, setup.authCookie)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	if setup.handlers.Auth.ValidateSession(setup.authCookie.Value) {
		t.Error("expected session to be invalidated")
	}
}

func TestRoot_RedirectsToStaff(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/", nil)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/staff" {
		t.Errorf("expected redirect to /staff, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
}
