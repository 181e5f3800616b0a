package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Allowed look item categories. Payloads carrying anything else are rejected
// at the boundary instead of being coerced into "other".
const (
	CategoryTop       = "top"
	CategoryBottom    = "bottom"
	CategoryShoes     = "shoes"
	CategoryAccessory = "accessory"
	CategoryOuterwear = "outerwear"
	CategoryOther     = "other"
)

var lookItemCategories = map[string]struct{}{
	CategoryTop:       {},
	CategoryBottom:    {},
	CategoryShoes:     {},
	CategoryAccessory: {},
	CategoryOuterwear: {},
	CategoryOther:     {},
}

// ValidateLookItemCategory reports whether category is one of the enumerated
// clothing categories.
func ValidateLookItemCategory(category string) error {
	if _, ok := lookItemCategories[category]; !ok {
		return fmt.Errorf("unknown look item category %q: %w", category, ErrValidation)
	}
	return nil
}

// Look is a user's daily outfit post. The crossings core only reads looks;
// creation and photo upload live in the looks service.
type Look struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	PhotoURL    string     `json:"photo_url"`
	CreatedAt   time.Time  `json:"created_at"`
	LikesCount  int        `json:"likes_count"`
	ViewsCount  int        `json:"views_count"`
	Items       []LookItem `json:"items,omitempty"`
}

// LookItem is a single tagged piece inside a look.
type LookItem struct {
	ID               uuid.UUID `json:"id"`
	LookID           uuid.UUID `json:"look_id"`
	Category         string    `json:"category"`
	Brand            *string   `json:"brand,omitempty"`
	ProductName      *string   `json:"product_name,omitempty"`
	ProductReference *string   `json:"product_reference,omitempty"`
	ProductURL       *string   `json:"product_url,omitempty"`
	Color            *string   `json:"color,omitempty"`
}
