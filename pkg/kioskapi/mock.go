package kioskapi

import (
	"context"
	"sync"
)

// MockClient is a mock backend client for testing.
// It is safe for concurrent use by the poller and timeout goroutines.
type MockClient struct {
	mu          sync.Mutex
	baseURL     string
	state       *StateResponse
	fetchErr    error
	submitErr   error
	resetErr    error
	fetchGate   chan struct{}
	resetGate   chan struct{}
	fetchCalls  int
	submitCalls int
	resetCalls  int
	payloads    []FeedbackPayload
	resetIDs    []string
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithState sets the state returned by FetchState
func WithState(state *StateResponse) MockOption {
	return func(m *MockClient) {
		m.state = state
	}
}

// WithFetchError sets an error to return from FetchState
func WithFetchError(err error) MockOption {
	return func(m *MockClient) {
		m.fetchErr = err
	}
}

// WithSubmitError sets an error to return from SubmitFeedback
func WithSubmitError(err error) MockOption {
	return func(m *MockClient) {
		m.submitErr = err
	}
}

// WithResetError sets an error to return from ResetDevice
func WithResetError(err error) MockOption {
	return func(m *MockClient) {
		m.resetErr = err
	}
}

// WithFetchGate makes FetchState block until the gate receives a value
// (or is closed) or the context is cancelled
func WithFetchGate(gate chan struct{}) MockOption {
	return func(m *MockClient) {
		m.fetchGate = gate
	}
}

// WithResetGate makes ResetDevice block until the gate is released or the
// context is cancelled
func WithResetGate(gate chan struct{}) MockOption {
	return func(m *MockClient) {
		m.resetGate = gate
	}
}

// WithBaseURL sets the base URL
func WithBaseURL(url string) MockOption {
	return func(m *MockClient) {
		m.baseURL = url
	}
}

// NewMockClient creates a new mock backend client.
// By default it reports an idle device with no order.
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		baseURL: "http://mock-backend.local",
		state:   IdleState("KIOSK_MAIN"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BaseURL returns the configured base URL
func (m *MockClient) BaseURL() string {
	return m.baseURL
}

// SetState replaces the state returned by subsequent FetchState calls
func (m *MockClient) SetState(state *StateResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// SetFetchError replaces the error returned by subsequent FetchState calls
func (m *MockClient) SetFetchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

// SetSubmitError replaces the error returned by subsequent SubmitFeedback calls
func (m *MockClient) SetSubmitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitErr = err
}

// FetchState returns the configured state or error
func (m *MockClient) FetchState(ctx context.Context, deviceID string) (*StateResponse, error) {
	m.mu.Lock()
	m.fetchCalls++
	gate := m.fetchGate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.state, nil
}

// SubmitFeedback validates the payload like the real client, then records it
func (m *MockClient) SubmitFeedback(ctx context.Context, payload FeedbackPayload) (*AckResponse, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls++
	m.payloads = append(m.payloads, payload)
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &AckResponse{OK: true}, nil
}

// ResetDevice records the reset call and returns the configured error
func (m *MockClient) ResetDevice(ctx context.Context, deviceID string) (*AckResponse, error) {
	m.mu.Lock()
	m.resetCalls++
	m.resetIDs = append(m.resetIDs, deviceID)
	gate := m.resetGate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetErr != nil {
		return nil, m.resetErr
	}
	return &AckResponse{OK: true}, nil
}

// FetchCalls returns how many times FetchState was called
func (m *MockClient) FetchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

// SubmitCalls returns how many payloads passed validation and were "sent"
func (m *MockClient) SubmitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalls
}

// ResetCalls returns how many times ResetDevice was called
func (m *MockClient) ResetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCalls
}

// Payloads returns the submitted payloads (for testing)
func (m *MockClient) Payloads() []FeedbackPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FeedbackPayload, len(m.payloads))
	copy(out, m.payloads)
	return out
}

// IdleState returns a state response for an idle device with no order
func IdleState(deviceID string) *StateResponse {
	return &StateResponse{
		OK: true,
		Device: &Device{
			DeviceID:    deviceID,
			Status:      DeviceIdle,
			LastUpdated: "2026-01-01T00:00:00Z",
		},
	}
}

// ActiveState returns a state response for a device with an open order
// containing the default mock items
func ActiveState(deviceID, orderID, tableID string) *StateResponse {
	return &StateResponse{
		OK: true,
		Device: &Device{
			DeviceID:        deviceID,
			Status:          DeviceActive,
			ActiveOrderID:   &orderID,
			AssignedTableID: &tableID,
			LastUpdated:     "2026-01-01T00:00:00Z",
		},
		Order: &Order{
			OrderID:       orderID,
			TableID:       tableID,
			OrderStatus:   OrderSent,
			PaymentStatus: PaymentPaid,
		},
		OrderItems: DefaultMockOrderItems(orderID),
		MenuItems:  DefaultMockMenuItems(),
	}
}

// DefaultMockOrderItems returns a set of sample order lines for testing
func DefaultMockOrderItems(orderID string) []OrderItem {
	return []OrderItem{
		{OrderItemID: "oi-1", OrderID: orderID, ItemID: "burger", ItemNameSnapshot: "Burger", Quantity: 2},
		{OrderItemID: "oi-2", OrderID: orderID, ItemID: "fries", ItemNameSnapshot: "Fries", Quantity: 1},
		{OrderItemID: "oi-3", OrderID: orderID, ItemID: "lemonade", ItemNameSnapshot: "Lemonade", Quantity: 3},
	}
}

// DefaultMockMenuItems returns a set of sample menu entries for testing
func DefaultMockMenuItems() []MenuItem {
	burgerImg := "https://cdn.example.com/burger.png"
	return []MenuItem{
		{ItemID: "burger", Name: "Classic Burger", Category: "mains", ImageURL: &burgerImg},
		{ItemID: "fries", Name: "Fries", Category: "sides"},
	}
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
