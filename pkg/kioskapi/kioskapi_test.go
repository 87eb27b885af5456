package kioskapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abrezinsky/kioskfeedback/internal/errors"
	"github.com/abrezinsky/kioskfeedback/internal/logger"
)

func validPayload() FeedbackPayload {
	return FeedbackPayload{
		DeviceID:        "KIOSK_MAIN",
		OrderID:         "order-1",
		TableID:         "T7",
		OverallRating:   4,
		GeneralFeedback: "CHIPS: \nTEXT: ",
		ItemRatings: []FeedbackItem{
			{ItemID: "burger", ItemName: "Classic Burger", Rating: 5, Comment: "[juicy]"},
		},
		SessionID: "sess-1",
		ClientTS:  "2026-01-01T00:00:00.000Z",
	}
}

const activeStateJSON = `{
	"ok": true,
	"device": {"device_id": "KIOSK_MAIN", "status": "active", "active_order_id": "order-1", "assigned_table_id": "T7", "last_updated": "2026-01-01T00:00:00Z"},
	"order": {"order_id": "order-1", "customer_id": null, "table_id": "T7", "order_status": "SENT", "payment_status": "PAID", "items_snapshot": "[{\"item_id\":\"burger\",\"name\":\"Burger\",\"qty\":2}]", "has_feedback": false},
	"order_items": [{"item_id": "burger", "item_name_snapshot": "Burger", "quantity": 2}],
	"menu_items": [{"item_id": "burger", "name": "Classic Burger", "image_url": null}]
}`

func TestHTTPClient_FetchState_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != StatePath {
			t.Errorf("expected path %s, got %s", StatePath, r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Query().Get("device_id") != "KIOSK MAIN" {
			t.Errorf("expected device_id to round-trip, got %q", r.URL.Query().Get("device_id"))
		}
		w.Write([]byte(activeStateJSON))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", logger.Nop())
	state, err := client.FetchState(context.Background(), "KIOSK MAIN")
	if err != nil {
		t.Fatalf("FetchState failed: %v", err)
	}

	if state.Device.Status != DeviceActive {
		t.Errorf("expected active device, got %q", state.Device.Status)
	}
	if state.Order == nil || state.Order.OrderID != "order-1" {
		t.Fatalf("expected order-1, got %+v", state.Order)
	}
	if state.Order.CustomerID != nil {
		t.Errorf("expected nil customer id, got %v", *state.Order.CustomerID)
	}
	if len(state.Order.ItemsSnapshot) == 0 {
		t.Error("expected items snapshot to be kept as raw JSON")
	}
	if state.Completed() {
		t.Error("expected order not to be completed")
	}
}

func TestHTTPClient_FetchState_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind errors.Kind
	}{
		{"server error", http.StatusInternalServerError, `{"ok":true}`, errors.ErrTransport},
		{"not found", http.StatusNotFound, ``, errors.ErrTransport},
		{"not json", http.StatusOK, `not json`, errors.ErrTransport},
		{"empty body", http.StatusOK, ``, errors.ErrValidation},
		{"missing ok", http.StatusOK, `{"device":{"device_id":"x","status":"idle","last_updated":""}}`, errors.ErrValidation},
		{"ok false", http.StatusOK, `{"ok":false,"message":"unknown device"}`, errors.ErrLogical},
		{"missing device", http.StatusOK, `{"ok":true,"order":null}`, errors.ErrValidation},
		{"bad device status", http.StatusOK, `{"ok":true,"device":{"device_id":"x","status":"busy","last_updated":""}}`, errors.ErrValidation},
		{"wrong type", http.StatusOK, `{"ok":true,"device":{"device_id":5,"status":"idle"}}`, errors.ErrValidation},
		{"missing table id", http.StatusOK, `{"ok":true,"device":{"device_id":"x","status":"active","last_updated":""},"order":{"order_id":"o","order_status":"SENT","payment_status":"PAID","has_feedback":false}}`, errors.ErrValidation},
		{"null table id", http.StatusOK, `{"ok":true,"device":{"device_id":"x","status":"active","last_updated":""},"order":{"order_id":"o","table_id":null,"order_status":"SENT","payment_status":"PAID","has_feedback":false}}`, errors.ErrValidation},
		{"bad order status", http.StatusOK, `{"ok":true,"device":{"device_id":"x","status":"active","last_updated":""},"order":{"order_id":"o","table_id":"t","order_status":"LOST","payment_status":"PAID","has_feedback":false}}`, errors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewHTTPClient(server.URL, logger.Nop())
			_, err := client.FetchState(context.Background(), "KIOSK_MAIN")
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := errors.KindOf(err); kind != tt.wantKind {
				t.Errorf("expected kind %v, got %v (%v)", tt.wantKind, kind, err)
			}
		})
	}
}

func TestHTTPClient_FetchState_EmptyTableID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"device":{"device_id":"x","status":"active","last_updated":""},"order":{"order_id":"o","table_id":"","order_status":"SENT","payment_status":"PAID","has_feedback":false}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	state, err := client.FetchState(context.Background(), "KIOSK_MAIN")
	if err != nil {
		t.Fatalf("expected empty table_id to be accepted, got %v", err)
	}
	if state.Order == nil || state.Order.TableID != "" || state.Order.OrderID != "o" {
		t.Errorf("unexpected order %+v", state.Order)
	}
}

func TestHTTPClient_FetchState_LogicalFailureMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	_, err := client.FetchState(context.Background(), "KIOSK_MAIN")
	if err == nil || err.Error() != "Request failed" {
		t.Errorf("expected default failure message, got %v", err)
	}
}

func TestHTTPClient_FetchState_ConnectionError(t *testing.T) {
	client := NewHTTPClient("http://localhost:99999", logger.Nop())
	_, err := client.FetchState(context.Background(), "KIOSK_MAIN")
	if !errors.IsKind(err, errors.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestHTTPClient_SubmitFeedback_Success(t *testing.T) {
	var received FeedbackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SubmitPath {
			t.Errorf("expected path %s, got %s", SubmitPath, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.Write([]byte(`{"ok":true,"reset_to_idle":true}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	ack, err := client.SubmitFeedback(context.Background(), validPayload())
	if err != nil {
		t.Fatalf("SubmitFeedback failed: %v", err)
	}
	if !ack.ResetToIdle {
		t.Error("expected reset_to_idle to be decoded")
	}
	if received.SessionID != "sess-1" || len(received.ItemRatings) != 1 {
		t.Errorf("unexpected payload received: %+v", received)
	}
}

func TestHTTPClient_SubmitFeedback_InvalidPayloadNeverSent(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())

	mutations := map[string]func(p *FeedbackPayload){
		"empty order id":      func(p *FeedbackPayload) { p.OrderID = "" },
		"empty session id":    func(p *FeedbackPayload) { p.SessionID = "" },
		"overall rating zero": func(p *FeedbackPayload) { p.OverallRating = 0 },
		"overall rating six":  func(p *FeedbackPayload) { p.OverallRating = 6 },
		"no items":            func(p *FeedbackPayload) { p.ItemRatings = nil },
		"item rating zero":    func(p *FeedbackPayload) { p.ItemRatings[0].Rating = 0 },
		"empty item id":       func(p *FeedbackPayload) { p.ItemRatings[0].ItemID = "" },
		"empty customer id": func(p *FeedbackPayload) {
			empty := ""
			p.CustomerID = &empty
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := validPayload()
			mutate(&p)
			_, err := client.SubmitFeedback(context.Background(), p)
			if !errors.IsKind(err, errors.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	if calls != 0 {
		t.Errorf("expected no network calls, got %d", calls)
	}
}

func TestHTTPClient_SubmitFeedback_LogicalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"message":"order closed"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	_, err := client.SubmitFeedback(context.Background(), validPayload())
	if !errors.IsKind(err, errors.ErrLogical) {
		t.Fatalf("expected logical failure, got %v", err)
	}
	if err.Error() != "order closed" {
		t.Errorf("expected backend message, got %q", err.Error())
	}
}

func TestHTTPClient_ResetDevice(t *testing.T) {
	var body resetRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ResetPath || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	if _, err := client.ResetDevice(context.Background(), "KIOSK_MAIN"); err != nil {
		t.Fatalf("ResetDevice failed: %v", err)
	}
	if body.DeviceID != "KIOSK_MAIN" {
		t.Errorf("expected device id in body, got %q", body.DeviceID)
	}
}

func TestHTTPClient_ResetDevice_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	_, err := client.ResetDevice(context.Background(), "KIOSK_MAIN")
	if !errors.IsKind(err, errors.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestHTTPClient_BaseURL_TrimsTrailingSlash(t *testing.T) {
	client := NewHTTPClient("http://example.com/api/", logger.Nop())
	if client.BaseURL() != "http://example.com/api" {
		t.Errorf("expected trailing slash trimmed, got %q", client.BaseURL())
	}
}

func TestStateResponse_Completed(t *testing.T) {
	state := ActiveState("KIOSK_MAIN", "order-1", "T1")
	if state.Completed() {
		t.Error("fresh order should not be completed")
	}
	state.Order.HasFeedback = true
	if !state.Completed() {
		t.Error("has_feedback should count as completed")
	}
	idle := IdleState("KIOSK_MAIN")
	idle.AlreadyCompleted = true
	if !idle.Completed() {
		t.Error("already_completed should count as completed")
	}
}

func TestMockClient_Defaults(t *testing.T) {
	client := NewMockClient()
	state, err := client.FetchState(context.Background(), "KIOSK_MAIN")
	if err != nil {
		t.Fatalf("FetchState failed: %v", err)
	}
	if state.Device.Status != DeviceIdle {
		t.Errorf("expected idle default, got %q", state.Device.Status)
	}
	if client.FetchCalls() != 1 {
		t.Errorf("expected 1 fetch call, got %d", client.FetchCalls())
	}
}

func TestMockClient_SubmitValidatesPayload(t *testing.T) {
	client := NewMockClient()
	p := validPayload()
	p.ItemRatings = nil
	if _, err := client.SubmitFeedback(context.Background(), p); err == nil {
		t.Fatal("expected validation error")
	}
	if client.SubmitCalls() != 0 {
		t.Errorf("expected invalid payload not to count as a call, got %d", client.SubmitCalls())
	}
}

func TestMockClient_FetchGate(t *testing.T) {
	gate := make(chan struct{})
	client := NewMockClient(WithFetchGate(gate))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.FetchState(ctx, "KIOSK_MAIN"); err == nil {
		t.Fatal("expected cancelled fetch to fail")
	}

	close(gate)
	if _, err := client.FetchState(context.Background(), "KIOSK_MAIN"); err != nil {
		t.Fatalf("expected open gate to pass, got %v", err)
	}
}

func TestClientInterface(t *testing.T) {
	var _ Client = (*HTTPClient)(nil)
	var _ Client = (*MockClient)(nil)
}
