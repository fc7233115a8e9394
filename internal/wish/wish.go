// Package wish defines the records of the wish board: wishes, the
// notification events derived from them, and visitor records.
package wish

import (
	"strings"
	"time"
)

// Category classifies what kind of help a wish asks for.
type Category string

const (
	CategoryMaterial      Category = "material"
	CategoryHelp          Category = "help"
	CategoryCommunication Category = "communication"
	CategoryExperience    Category = "experience"
)

// CategoryAll is the browse filter value that disables category filtering.
const CategoryAll = "all"

// Categories lists the valid categories in display order.
var Categories = []Category{
	CategoryMaterial,
	CategoryHelp,
	CategoryCommunication,
	CategoryExperience,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Wish is a user-submitted request. Wishes are immutable once created.
type Wish struct {
	ID        int64    `json:"id"`
	Wish      string   `json:"wish"`
	Country   string   `json:"country"`
	Telegram  string   `json:"telegram"`
	Category  Category `json:"category,omitempty"`
	Timestamp int64    `json:"timestamp"` // epoch millis
}

// CreatedAt returns the creation time of the wish.
func (w Wish) CreatedAt() time.Time {
	return time.UnixMilli(w.Timestamp)
}

// Draft is the composer input for a new wish.
type Draft struct {
	Wish     string   `json:"wish" validate:"required,max=2000"`
	Country  string   `json:"country" validate:"required,max=100"`
	Telegram string   `json:"telegram" validate:"required,handle,max=64"`
	Category Category `json:"category,omitempty" validate:"omitempty,category"`
}

// Normalize trims surrounding whitespace from every field and lowercases the category.
func (d Draft) Normalize() Draft {
	return Draft{
		Wish:     strings.TrimSpace(d.Wish),
		Country:  strings.TrimSpace(d.Country),
		Telegram: strings.TrimSpace(d.Telegram),
		Category: Category(strings.ToLower(strings.TrimSpace(string(d.Category)))),
	}
}

// EventType names what happened to a wish.
type EventType string

const (
	EventWishCreated EventType = "wish_created"
	EventWishClaimed EventType = "wish_claimed"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t == EventWishCreated || t == EventWishClaimed
}

// Event is a notification/activity record. Consumers read events newest first.
type Event struct {
	ID        int64     `json:"id"`
	Type      EventType `json:"type"`
	WishID    int64     `json:"wish_id"`
	Country   string    `json:"country,omitempty"`
	Timestamp int64     `json:"timestamp"` // epoch millis
}

// Visitor is an anonymous browser that reported at least one visit.
type Visitor struct {
	ID         string `json:"id"`
	FirstVisit int64  `json:"first_visit"`
	LastVisit  int64  `json:"last_visit"`
	Country    string `json:"country,omitempty"`
}

// Truncate shortens s to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// NowMillis returns the current time in epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
