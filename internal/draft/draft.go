// Package draft holds the in-progress feedback a customer builds during a
// locked session. Everything here is a pure data transform; the session
// store decides when a draft may change.
package draft

import (
	"strings"

	"github.com/abrezinsky/kioskfeedback/internal/errors"
	"github.com/abrezinsky/kioskfeedback/internal/models"
)

const (
	MaxItemCommentLen    = 120
	MaxGeneralCommentLen = 200
	MinRating            = 1
	MaxRating            = 5
)

// ItemFeedback is the customer's feedback for a single item.
// A zero Rating means the item was not rated.
type ItemFeedback struct {
	Rating      int      `json:"rating"`
	CommentText string   `json:"comment_text"`
	Chips       []string `json:"chips"`
}

// Draft accumulates overall and per-item feedback.
// OverallRating is zero until the customer picks one.
type Draft struct {
	OverallRating int                     `json:"overall_rating"`
	Items         map[string]ItemFeedback `json:"items"`
	GeneralText   string                  `json:"general_text"`
	GeneralChips  []string                `json:"general_chips"`
	AllowContact  bool                    `json:"allow_contact"`
}

// RatedItem is an item ready for submission
type RatedItem struct {
	ItemID   string
	ItemName string
	Rating   int
	Comment  string
}

// New returns an empty draft
func New() Draft {
	return Draft{
		Items:        map[string]ItemFeedback{},
		GeneralChips: []string{},
	}
}

// Clone returns a deep copy
func (d Draft) Clone() Draft {
	out := d
	out.Items = make(map[string]ItemFeedback, len(d.Items))
	for id, fb := range d.Items {
		fb.Chips = append([]string{}, fb.Chips...)
		out.Items[id] = fb
	}
	out.GeneralChips = append([]string{}, d.GeneralChips...)
	return out
}

// SetOverallRating sets the overall rating (1..5)
func (d *Draft) SetOverallRating(r int) error {
	if r < MinRating || r > MaxRating {
		return errors.Validationf("overall rating %d must be between %d and %d", r, MinRating, MaxRating)
	}
	d.OverallRating = r
	return nil
}

// SetItemRating sets an item's rating; 0 clears it
func (d *Draft) SetItemRating(itemID string, r int) error {
	if itemID == "" {
		return errors.Validation("item id is required")
	}
	if r < 0 || r > MaxRating {
		return errors.Validationf("item rating %d must be between 0 and %d", r, MaxRating)
	}
	fb := d.item(itemID)
	fb.Rating = r
	d.Items[itemID] = fb
	return nil
}

// SetItemComment sets an item's free-text comment, truncated to MaxItemCommentLen
func (d *Draft) SetItemComment(itemID, text string) error {
	if itemID == "" {
		return errors.Validation("item id is required")
	}
	fb := d.item(itemID)
	fb.CommentText = truncate(text, MaxItemCommentLen)
	d.Items[itemID] = fb
	return nil
}

// ToggleItemChip adds chip to the item or removes it if already selected
func (d *Draft) ToggleItemChip(itemID, chip string) error {
	if itemID == "" {
		return errors.Validation("item id is required")
	}
	if chip == "" {
		return errors.Validation("chip is required")
	}
	fb := d.item(itemID)
	fb.Chips = toggle(fb.Chips, chip)
	d.Items[itemID] = fb
	return nil
}

// SetGeneralText sets the general comment, truncated to MaxGeneralCommentLen
func (d *Draft) SetGeneralText(text string) {
	d.GeneralText = truncate(text, MaxGeneralCommentLen)
}

// ToggleGeneralChip adds or removes a general chip
func (d *Draft) ToggleGeneralChip(chip string) error {
	if chip == "" {
		return errors.Validation("chip is required")
	}
	d.GeneralChips = toggle(d.GeneralChips, chip)
	return nil
}

// SetAllowContact records the customer's contact consent
func (d *Draft) SetAllowContact(allow bool) {
	d.AllowContact = allow
}

func (d *Draft) item(itemID string) ItemFeedback {
	if d.Items == nil {
		d.Items = map[string]ItemFeedback{}
	}
	fb, ok := d.Items[itemID]
	if !ok {
		fb = ItemFeedback{Chips: []string{}}
	}
	return fb
}

// RatedItems maps the display items that carry a rating of at least 1 to
// submission entries, in display order
func (d Draft) RatedItems(items []models.DisplayItem) []RatedItem {
	var rated []RatedItem
	for _, item := range items {
		fb, ok := d.Items[item.ItemID]
		if !ok || fb.Rating < MinRating {
			continue
		}
		rated = append(rated, RatedItem{
			ItemID:   item.ItemID,
			ItemName: item.Name,
			Rating:   fb.Rating,
			Comment:  BuildItemComment(fb.Chips, fb.CommentText),
		})
	}
	return rated
}

// Validate returns the rated items when the draft can be submitted.
// It fails when no item is rated, the overall rating is unset, or there is no session.
func (d Draft) Validate(items []models.DisplayItem, sessionID string) ([]RatedItem, error) {
	if sessionID == "" {
		return nil, errors.Validation("no active session")
	}
	if d.OverallRating < MinRating {
		return nil, errors.Validation("overall rating is required")
	}
	rated := d.RatedItems(items)
	if len(rated) == 0 {
		return nil, errors.Validation("at least one item must be rated")
	}
	return rated, nil
}

// BuildItemComment renders chips as bracketed tokens followed by the trimmed text,
// e.g. "[slow][cold] bring more"
func BuildItemComment(chips []string, text string) string {
	var b strings.Builder
	for _, chip := range chips {
		b.WriteString("[" + chip + "]")
	}
	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		b.WriteString(" " + trimmed)
	}
	return strings.TrimSpace(b.String())
}

// BuildGeneralComment renders the general feedback as two labeled lines
func BuildGeneralComment(chips []string, text string) string {
	return strings.TrimSpace("CHIPS: " + strings.Join(chips, "|") + "\nTEXT: " + strings.TrimSpace(text))
}

func toggle(set []string, value string) []string {
	out := make([]string, 0, len(set)+1)
	found := false
	for _, v := range set {
		if v == value {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, value)
	}
	return out
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
