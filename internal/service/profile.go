// Package service contains the business rules that sit between the HTTP
// handlers and the repositories.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, orchestrates read-modify-write
//	Repository      → one round trip to the store per call
//
// The repositories report failure as false/nil only. Services turn those
// into apperror values so the handlers can pick a status code:
//
//	GetProfile → nil   ⇒ apperror.ErrNotFound
//	Update*    → false ⇒ ErrNotSaved (an apperror.ErrTransport)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/easychef/internal/apperror"
	"github.com/sakif/easychef/internal/model"
	"github.com/sakif/easychef/internal/repository"
)

const (
	MaxPantryItems    = 500
	MaxItemNameLength = 100
	MaxUnitLength     = 20
	MaxCuisines       = 50
	MaxCuisineLength  = 50
	MaxDietLength     = 50
)

// ErrNotSaved is the cause of the error returned when the repository did not
// accept a write. The repository has already logged the reason.
var ErrNotSaved = errors.New("the store did not accept the update")

// ProfileService manages the signed-in user's pantry and preferences.
type ProfileService struct {
	profiles repository.UserProfileRepository
	logger   *slog.Logger
}

func NewProfileService(profiles repository.UserProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		logger:   logger,
	}
}

// Profile returns userID's profile, or apperror.ErrNotFound.
func (s *ProfileService) Profile(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	p := s.profiles.GetProfile(ctx, userID)
	if p == nil {
		return nil, apperror.NotFound("profile", userID.String())
	}
	return p, nil
}

// ReplacePantry validates and stores the whole pantry.
//
// Names and units are trimmed. Ingredient IDs must be unique; the list order
// is kept as given.
func (s *ProfileService) ReplacePantry(ctx context.Context, userID uuid.UUID, items []model.PantryItem) ([]model.PantryItem, error) {
	pantry, err := normalizePantry(items)
	if err != nil {
		return nil, err
	}

	if !s.profiles.UpdatePantry(ctx, userID, pantry) {
		return nil, apperror.Transport("service: replacing pantry", ErrNotSaved)
	}

	s.logger.Info("pantry replaced",
		slog.String("userID", userID.String()),
		slog.Int("items", len(pantry)),
	)
	return pantry, nil
}

// UpsertPantryItem adds item, or replaces the item with the same
// ingredient ID in place.
//
// This is fetch-then-write with no version check: a concurrent writer
// between the two round trips loses its change.
func (s *ProfileService) UpsertPantryItem(ctx context.Context, userID uuid.UUID, item model.PantryItem) ([]model.PantryItem, error) {
	item, err := normalizeItem(item)
	if err != nil {
		return nil, err
	}

	p, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	pantry := append([]model.PantryItem{}, p.Pantry...)
	if i := p.FindPantryItem(item.IngredientID); i >= 0 {
		pantry[i] = item
	} else {
		pantry = append(pantry, item)
	}

	return s.ReplacePantry(ctx, userID, pantry)
}

// RemovePantryItem deletes the item with ingredientID.
// Returns apperror.ErrNotFound if the pantry has no such item.
func (s *ProfileService) RemovePantryItem(ctx context.Context, userID uuid.UUID, ingredientID string) ([]model.PantryItem, error) {
	ingredientID = strings.TrimSpace(ingredientID)
	if ingredientID == "" {
		return nil, apperror.ValidationFailed("ingredient_id", "ingredient_id is required")
	}

	p, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	i := p.FindPantryItem(ingredientID)
	if i < 0 {
		return nil, apperror.NotFound("pantry item", ingredientID)
	}

	pantry := make([]model.PantryItem, 0, len(p.Pantry)-1)
	pantry = append(pantry, p.Pantry[:i]...)
	pantry = append(pantry, p.Pantry[i+1:]...)

	return s.ReplacePantry(ctx, userID, pantry)
}

// UpdatePreferences stores diet and cuisines. A blank diet clears it.
// Cuisines keep their order and duplicates; blank entries are rejected.
func (s *ProfileService) UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs model.Preferences) (model.Preferences, error) {
	var out model.Preferences

	if prefs.Diet != nil {
		if diet := strings.TrimSpace(*prefs.Diet); diet != "" {
			if len(diet) > MaxDietLength {
				return out, apperror.ValidationFailed("diet",
					fmt.Sprintf("diet must be %d characters or less", MaxDietLength))
			}
			out.Diet = &diet
		}
	}

	if len(prefs.Cuisines) > MaxCuisines {
		return out, apperror.ValidationFailed("cuisines",
			fmt.Sprintf("at most %d cuisines are allowed", MaxCuisines))
	}
	out.Cuisines = make([]string, 0, len(prefs.Cuisines))
	for _, c := range prefs.Cuisines {
		c = strings.TrimSpace(c)
		if c == "" {
			return model.Preferences{}, apperror.ValidationFailed("cuisines", "cuisine names must not be blank")
		}
		if len(c) > MaxCuisineLength {
			return model.Preferences{}, apperror.ValidationFailed("cuisines",
				fmt.Sprintf("cuisine names must be %d characters or less", MaxCuisineLength))
		}
		out.Cuisines = append(out.Cuisines, c)
	}

	if !s.profiles.UpdatePreferences(ctx, userID, out) {
		return model.Preferences{}, apperror.Transport("service: updating preferences", ErrNotSaved)
	}

	s.logger.Info("preferences updated", slog.String("userID", userID.String()))
	return out, nil
}

func normalizePantry(items []model.PantryItem) ([]model.PantryItem, error) {
	if len(items) > MaxPantryItems {
		return nil, apperror.ValidationFailed("pantry",
			fmt.Sprintf("a pantry holds at most %d items", MaxPantryItems))
	}

	pantry := make([]model.PantryItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item, err := normalizeItem(item)
		if err != nil {
			return nil, err
		}
		if seen[item.IngredientID] {
			return nil, apperror.ValidationFailed("pantry",
				fmt.Sprintf("ingredient %q appears more than once", item.IngredientID))
		}
		seen[item.IngredientID] = true
		pantry = append(pantry, item)
	}
	return pantry, nil
}

func normalizeItem(item model.PantryItem) (model.PantryItem, error) {
	item.IngredientID = strings.TrimSpace(item.IngredientID)
	item.Name = strings.TrimSpace(item.Name)
	item.Unit = strings.TrimSpace(item.Unit)

	if err := item.Validate(); err != nil {
		return model.PantryItem{}, apperror.ValidationFailed("pantry", err.Error())
	}
	if len(item.Name) > MaxItemNameLength {
		return model.PantryItem{}, apperror.ValidationFailed("pantry",
			fmt.Sprintf("item name must be %d characters or less", MaxItemNameLength))
	}
	if len(item.Unit) > MaxUnitLength {
		return model.PantryItem{}, apperror.ValidationFailed("pantry",
			fmt.Sprintf("unit must be %d characters or less", MaxUnitLength))
	}
	return item, nil
}
