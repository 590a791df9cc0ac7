// Package model defines the data structures used throughout the application.
//
// WIRE FORMAT:
// A UserProfile is one row of the "user_profiles" collection in the remote
// store. The JSON tags below are the stable field names of that row and must
// not change; older app builds and the backend schema both depend on them:
//
//	{
//	  "user_id": "<uuid>",
//	  "user_name": "<string|null>",
//	  "pantry": [{"ingredient_id": "...", "name": "...", "quantity": 1, "unit": "..."}],
//	  "diet": "<string|null>",
//	  "cuisines": ["..."],
//	  "updated_date": "<timestamp|null>"
//	}
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ProfilesCollection is the remote collection (table) holding one profile row per user.
const ProfilesCollection = "user_profiles"

// Column names of the profiles collection.
const (
	FieldUserID      = "user_id"
	FieldUserName    = "user_name"
	FieldPantry      = "pantry"
	FieldDiet        = "diet"
	FieldCuisines    = "cuisines"
	FieldUpdatedDate = "updated_date"
)

// PantryItem is one ingredient the user has at home.
//
// IngredientID is the item's only identity. Uniqueness within a pantry is
// expected but nothing below the service layer enforces it.
type PantryItem struct {
	IngredientID string  `json:"ingredient_id"`
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"` // never negative
	Unit         string  `json:"unit"`     // free-form, e.g. "g", "pcs"
}

// Validate reports whether the item can be stored.
func (p PantryItem) Validate() error {
	if strings.TrimSpace(p.IngredientID) == "" {
		return fmt.Errorf("ingredient_id is required")
	}
	if math.IsNaN(p.Quantity) || math.IsInf(p.Quantity, 0) {
		return fmt.Errorf("quantity of %q must be a finite number", p.IngredientID)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("quantity of %q must not be negative", p.IngredientID)
	}
	return nil
}

// Preferences groups the user's dietary settings.
//
// A nil Diet means "no restriction". Cuisines keeps the caller's order and
// duplicates untouched.
type Preferences struct {
	Diet     *string  `json:"diet"`
	Cuisines []string `json:"cuisines"`
}

// MarshalJSON encodes a nil Cuisines slice as [] so an update never writes null.
func (p Preferences) MarshalJSON() ([]byte, error) {
	type alias Preferences
	if p.Cuisines == nil {
		p.Cuisines = []string{}
	}
	return json.Marshal(alias(p))
}

// UserProfile is a user's complete profile row.
//
// UserID is the primary key and never changes after the row is created.
// UpdatedDate is assigned by the remote store on every successful pantry or
// preference update; it is never computed locally.
type UserProfile struct {
	UserID      string       `json:"user_id"`
	UserName    *string      `json:"user_name"`
	Pantry      []PantryItem `json:"pantry"`
	Diet        *string      `json:"diet"`
	Cuisines    []string     `json:"cuisines"`
	UpdatedDate *string      `json:"updated_date"`
}

// MarshalJSON encodes nil lists as [] to match the row's NOT NULL array columns.
func (u UserProfile) MarshalJSON() ([]byte, error) {
	type alias UserProfile
	if u.Pantry == nil {
		u.Pantry = []PantryItem{}
	}
	if u.Cuisines == nil {
		u.Cuisines = []string{}
	}
	return json.Marshal(alias(u))
}

// Preferences returns the diet and cuisine settings stored in the profile.
func (u *UserProfile) Preferences() Preferences {
	return Preferences{Diet: u.Diet, Cuisines: u.Cuisines}
}

// FindPantryItem returns the index of the item with the given ingredient ID, or -1.
func (u *UserProfile) FindPantryItem(ingredientID string) int {
	for i, item := range u.Pantry {
		if item.IngredientID == ingredientID {
			return i
		}
	}
	return -1
}

// StringPtr is a small helper for the optional string columns.
func StringPtr(s string) *string {
	return &s
}
