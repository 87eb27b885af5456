package kioskapi

import (
	"encoding/json"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/errors"
)

// Device statuses reported by the backend
const (
	DeviceIdle   = "idle"
	DeviceActive = "active"
)

// Order statuses
const (
	OrderOpen   = "OPEN"
	OrderSent   = "SENT"
	OrderClosed = "CLOSED"
)

// Payment statuses
const (
	PaymentUnpaid = "UNPAID"
	PaymentPaid   = "PAID"
)

// Device is the kiosk device record as the backend sees it
type Device struct {
	DeviceID        string  `json:"device_id"`
	Status          string  `json:"status"`
	ActiveOrderID   *string `json:"active_order_id,omitempty"`
	AssignedTableID *string `json:"assigned_table_id,omitempty"`
	ActiveToken     *string `json:"active_token,omitempty"`
	LastUpdated     string  `json:"last_updated"`
}

// Order is the order currently assigned to the device
type Order struct {
	OrderID        string          `json:"order_id"`
	CustomerID     *string         `json:"customer_id"`
	TableID        string          `json:"table_id"`
	OrderStatus    string          `json:"order_status"`
	PaymentStatus  string          `json:"payment_status"`
	ItemsSnapshot  json.RawMessage `json:"items_snapshot,omitempty"`
	HasFeedback    bool            `json:"has_feedback"`
	FeedbackStatus *string         `json:"feedback_status,omitempty"`

	hasTableID bool
}

// UnmarshalJSON decodes an order and notes whether table_id was sent.
// An empty table id is still a valid order.
func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	aux := struct {
		*plain
		TableID *string `json:"table_id"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.hasTableID = aux.TableID != nil
	if aux.TableID != nil {
		o.TableID = *aux.TableID
	}
	return nil
}

// OrderItem is a line of the assigned order
type OrderItem struct {
	OrderItemID      string   `json:"order_item_id,omitempty"`
	OrderID          string   `json:"order_id,omitempty"`
	ItemID           string   `json:"item_id"`
	ItemNameSnapshot string   `json:"item_name_snapshot"`
	UnitPrice        *float64 `json:"unit_price_snapshot,omitempty"`
	Quantity         float64  `json:"quantity"`
	TotalPrice       *float64 `json:"total_price,omitempty"`
	Status           *string  `json:"status,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
}

// MenuItem is a menu entry used to enrich order items with names and images
type MenuItem struct {
	ItemID         string   `json:"item_id"`
	Name           string   `json:"name"`
	NameNormalized string   `json:"name_normalized,omitempty"`
	Category       string   `json:"category,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	IsActive       *bool    `json:"is_active,omitempty"`
	ImageURL       *string  `json:"image_url,omitempty"`
	Tags           *string  `json:"tags,omitempty"`
	SortOrder      *float64 `json:"sort_order,omitempty"`
}

// StateResponse is the response from GET /kiosk-state
type StateResponse struct {
	OK               bool        `json:"ok"`
	Device           *Device     `json:"device"`
	Order            *Order      `json:"order"`
	OrderItems       []OrderItem `json:"order_items"`
	MenuItems        []MenuItem  `json:"menu_items"`
	AlreadyCompleted bool        `json:"already_completed,omitempty"`
	Message          string      `json:"message,omitempty"`
}

// Completed reports whether the backend considers the assigned order done,
// either explicitly or because feedback was already recorded for it
func (r *StateResponse) Completed() bool {
	return r.AlreadyCompleted || (r.Order != nil && r.Order.HasFeedback)
}

// FeedbackItem is one rated item in a feedback submission
type FeedbackItem struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

// FeedbackPayload is the body of POST /submit-feedback
type FeedbackPayload struct {
	DeviceID        string         `json:"device_id"`
	OrderID         string         `json:"order_id"`
	TableID         string         `json:"table_id"`
	CustomerID      *string        `json:"customer_id"`
	OverallRating   int            `json:"overall_rating"`
	GeneralFeedback string         `json:"general_feedback"`
	AllowContact    bool           `json:"allow_contact"`
	ItemRatings     []FeedbackItem `json:"item_ratings"`
	SessionID       string         `json:"session_id"`
	ClientTS        string         `json:"client_ts"`
}

// ClientTimestamp formats t the way the backend expects client_ts
func ClientTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// AckResponse is the response from submit and reset calls
type AckResponse struct {
	OK          bool   `json:"ok"`
	Message     string `json:"message,omitempty"`
	ResetToIdle bool   `json:"reset_to_idle,omitempty"`
}

// resetRequest is the body of POST /kiosk-reset
type resetRequest struct {
	DeviceID string `json:"device_id"`
}

// Validate checks the payload before it is sent.
// All ids must be present and every rating must be within 1..5.
func (p FeedbackPayload) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"device_id", p.DeviceID},
		{"order_id", p.OrderID},
		{"table_id", p.TableID},
		{"session_id", p.SessionID},
		{"client_ts", p.ClientTS},
	}
	for _, r := range required {
		if r.value == "" {
			return errors.Validationf("%s is required", r.field)
		}
	}
	if p.CustomerID != nil && *p.CustomerID == "" {
		return errors.Validation("customer_id must be null or non-empty")
	}
	if p.OverallRating < 1 || p.OverallRating > 5 {
		return errors.Validationf("overall_rating %d must be between 1 and 5", p.OverallRating)
	}
	if len(p.ItemRatings) == 0 {
		return errors.Validation("item_ratings must not be empty")
	}
	for i, item := range p.ItemRatings {
		if item.ItemID == "" {
			return errors.Validationf("item_ratings[%d].item_id is required", i)
		}
		if item.ItemName == "" {
			return errors.Validationf("item_ratings[%d].item_name is required", i)
		}
		if item.Rating < 1 || item.Rating > 5 {
			return errors.Validationf("item_ratings[%d].rating %d must be between 1 and 5", i, item.Rating)
		}
	}
	return nil
}

// validate checks the shape of a state response after decoding
func (r *StateResponse) validate() error {
	if r.Device == nil {
		return errors.Validation("state response is missing device")
	}
	if r.Device.Status != DeviceIdle && r.Device.Status != DeviceActive {
		return errors.Validationf("device status %q is not idle or active", r.Device.Status)
	}
	if r.Order == nil {
		return nil
	}
	if r.Order.OrderID == "" {
		return errors.Validation("order is missing order_id")
	}
	if !r.Order.hasTableID {
		return errors.Validation("order is missing table_id")
	}
	switch r.Order.OrderStatus {
	case OrderOpen, OrderSent, OrderClosed:
	default:
		return errors.Validationf("order status %q is not recognized", r.Order.OrderStatus)
	}
	switch r.Order.PaymentStatus {
	case PaymentUnpaid, PaymentPaid:
	default:
		return errors.Validationf("payment status %q is not recognized", r.Order.PaymentStatus)
	}
	for i, item := range r.OrderItems {
		if item.ItemID == "" {
			return errors.Validationf("order_items[%d] is missing item_id", i)
		}
	}
	for i, item := range r.MenuItems {
		if item.ItemID == "" {
			return errors.Validationf("menu_items[%d] is missing item_id", i)
		}
	}
	return nil
}

func (r *AckResponse) validate() error {
	return nil
}
