package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/abrezinsky/kioskfeedback/pkg/kioskapi"
)

// Keys accepted in items snapshots, in precedence order
var (
	snapshotListKeys     = []string{"items", "order_items", "orderItems"}
	snapshotIDKeys       = []string{"item_id", "id", "sku"}
	snapshotNameKeys     = []string{"name", "item_name", "title", "item_name_snapshot"}
	snapshotQuantityKeys = []string{"quantity", "qty", "count"}
)

// ParseItemsSnapshot extracts display items from an order's items snapshot.
// The snapshot may be a JSON value or a JSON-encoded string holding either
// an array or an object with an items/order_items/orderItems array.
// Returns nil when the snapshot is absent, unparseable or yields no items.
func ParseItemsSnapshot(raw json.RawMessage) []DisplayItem {
	if len(raw) == 0 {
		return nil
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}

	// Snapshots stored as text hold JSON inside a string
	if s, ok := value.(string); ok {
		if s == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(s), &value); err != nil {
			return nil
		}
	}

	list := readItemsArray(value)
	if list == nil {
		return nil
	}

	var items []DisplayItem
	for _, entry := range list {
		if item, ok := parseSnapshotItem(entry); ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

func readItemsArray(value interface{}) []interface{} {
	switch v := value.(type) {
	case []interface{}:
		return v
	case map[string]interface{}:
		for _, key := range snapshotListKeys {
			if list, ok := v[key].([]interface{}); ok {
				return list
			}
		}
	}
	return nil
}

func parseSnapshotItem(value interface{}) (DisplayItem, bool) {
	record, ok := value.(map[string]interface{})
	if !ok {
		return DisplayItem{}, false
	}

	id := ""
	if v, ok := firstPresent(record, snapshotIDKeys); ok {
		id = strings.TrimSpace(toString(v))
	}
	name := ""
	if v, ok := firstPresent(record, snapshotNameKeys); ok {
		name = strings.TrimSpace(toString(v))
	}
	quantity := 1.0
	if v, ok := firstPresent(record, snapshotQuantityKeys); ok {
		quantity = toNumber(v, 1)
	}

	if id == "" || name == "" {
		return DisplayItem{}, false
	}
	return DisplayItem{ItemID: id, Name: name, Quantity: normalizeQuantity(quantity)}, true
}

// firstPresent returns the first key whose value exists and is not null
func firstPresent(record map[string]interface{}, keys []string) (interface{}, bool) {
	for _, key := range keys {
		if v, ok := record[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		encoded, _ := json.Marshal(t)
		return string(encoded)
	}
}

func toNumber(v interface{}, fallback float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
			return fallback
		}
		return n
	default:
		return fallback
	}
}

// normalizeQuantity rounds half up and clamps to at least 1
func normalizeQuantity(q float64) int {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 1
	}
	rounded := int(math.Floor(q + 0.5))
	if rounded < 1 {
		return 1
	}
	return rounded
}

// BuildDisplayItems derives the rateable item list for an order.
// A usable snapshot is authoritative for identity and quantity; otherwise the
// order item records are used. Menu items only enrich name and image.
func BuildDisplayItems(snapshot json.RawMessage, orderItems []kioskapi.OrderItem, menuItems []kioskapi.MenuItem) []DisplayItem {
	base := ParseItemsSnapshot(snapshot)
	if base == nil {
		base = make([]DisplayItem, 0, len(orderItems))
		for _, oi := range orderItems {
			base = append(base, DisplayItem{
				ItemID:   strings.TrimSpace(oi.ItemID),
				Name:     strings.TrimSpace(oi.ItemNameSnapshot),
				Quantity: normalizeQuantity(oi.Quantity),
			})
		}
	}

	menu := make(map[string]kioskapi.MenuItem, len(menuItems))
	for _, mi := range menuItems {
		menu[mi.ItemID] = mi
	}

	items := make([]DisplayItem, 0, len(base))
	for _, item := range base {
		if mi, ok := menu[item.ItemID]; ok {
			if mi.Name != "" {
				item.Name = mi.Name
			}
			item.ImageURL = mi.ImageURL
		}
		if item.ItemID == "" || item.Name == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}
