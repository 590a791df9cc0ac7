package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sakif/easychef/internal/apperror"
	"github.com/sakif/easychef/internal/middleware"
	"github.com/sakif/easychef/internal/model"
	"github.com/sakif/easychef/internal/service"
)

// ProfileHandler serves the signed-in user's profile. Every route sits
// behind middleware.RequireSession, which supplies the user id.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger,
	}
}

type pantryResponse struct {
	Pantry []model.PantryItem `json:"pantry"`
}

// HandleGet returns the profile row.
//
// HTTP: GET /api/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	p, err := h.profiles.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleReplacePantry overwrites the pantry with the request body.
//
// HTTP: PUT /api/profile/pantry
// REQUEST BODY: [{"ingredient_id":"egg","name":"Egg","quantity":1,"unit":"pcs"}]
func (h *ProfileHandler) HandleReplacePantry(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var items []model.PantryItem
	if err := decodeJSON(w, r, &items); err != nil {
		writeError(w, err)
		return
	}

	pantry, err := h.profiles.ReplacePantry(r.Context(), userID, items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pantryResponse{Pantry: pantry})
}

// HandleUpsertItem adds one item or replaces the item with the same id.
//
// HTTP: POST /api/profile/pantry/items
func (h *ProfileHandler) HandleUpsertItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var item model.PantryItem
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, err)
		return
	}

	pantry, err := h.profiles.UpsertPantryItem(r.Context(), userID, item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pantryResponse{Pantry: pantry})
}

// HandleRemoveItem deletes one item.
//
// HTTP: DELETE /api/profile/pantry/items/{ingredientID}
func (h *ProfileHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	pantry, err := h.profiles.RemovePantryItem(r.Context(), userID, chi.URLParam(r, "ingredientID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pantryResponse{Pantry: pantry})
}

// HandleUpdatePreferences replaces diet and cuisines.
//
// HTTP: PUT /api/profile/preferences
// REQUEST BODY: {"diet":"vegetarian","cuisines":["thai","italian"]}
func (h *ProfileHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var prefs model.Preferences
	if err := decodeJSON(w, r, &prefs); err != nil {
		writeError(w, err)
		return
	}

	saved, err := h.profiles.UpdatePreferences(r.Context(), userID, prefs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// userID reads the id RequireSession stored. Writes 401 when it is missing,
// which only happens if the route was mounted without the middleware.
func (h *ProfileHandler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.logger.Error("profile route reached without a session", slog.String("path", r.URL.Path))
		writeError(w, apperror.Unauthorized("not signed in"))
		return uuid.Nil, false
	}
	return id, true
}
