package handlers

import "github.com/abrezinsky/kioskfeedback/internal/models"

// RatingRequest sets a 1..5 rating (0 clears an item rating)
type RatingRequest struct {
	Rating int `json:"rating"`
}

// TextRequest sets a free text comment
type TextRequest struct {
	Text string `json:"text"`
}

// ChipRequest toggles a quick-tag chip
type ChipRequest struct {
	Chip string `json:"chip"`
}

// ContactRequest sets the allow-contact flag
type ContactRequest struct {
	Allow bool `json:"allow"`
}

// ScreenRequest reports the screen the shell is showing
type ScreenRequest struct {
	Screen models.Screen `json:"screen"`
}

// LoginRequest is the staff login body
type LoginRequest struct {
	Password string `json:"password"`
}
