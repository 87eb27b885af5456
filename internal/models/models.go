package models

// Screen names the presentation shell's screens. The controller only
// navigates by name; what a screen looks like is the shell's business.
type Screen string

const (
	ScreenIdle            Screen = "Idle"
	ScreenStartGate       Screen = "StartGate"
	ScreenOverallRating   Screen = "OverallRating"
	ScreenItemRatings     Screen = "ItemRatings"
	ScreenGeneralFeedback Screen = "GeneralFeedback"
	ScreenThankYou        Screen = "ThankYou"
)

// Screens lists every known screen in flow order
var Screens = []Screen{
	ScreenIdle,
	ScreenStartGate,
	ScreenOverallRating,
	ScreenItemRatings,
	ScreenGeneralFeedback,
	ScreenThankYou,
}

// Valid reports whether s is a known screen
func (s Screen) Valid() bool {
	for _, known := range Screens {
		if s == known {
			return true
		}
	}
	return false
}

// DisplayItem is an order item as the shell shows it for rating
type DisplayItem struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	ImageURL *string `json:"image_url"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket message types
const (
	WSTypeState    = "state"
	WSTypeNavigate = "navigate"
	WSTypeReset    = "reset"
	WSTypeScreen   = "screen"
)
