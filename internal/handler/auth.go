package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sakif/easychef/internal/service"
)

// AuthHandler exposes the session operations as JSON endpoints.
//
// The store holds one ambient session for the whole process, so these
// endpoints act on that session, not on a per-client cookie:
//
//	POST /api/auth/signin   → sign in, replacing the current session
//	POST /api/auth/signup   → create an account (signs in when auto-confirmed)
//	POST /api/auth/signout  → drop the session
//	GET  /api/auth/me       → who is signed in
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success  bool   `json:"success"`
	SignedIn bool   `json:"signed_in"`
	UserID   string `json:"user_id,omitempty"`
}

// HandleSignIn → 200 {"success":true,"signed_in":true,"user_id":"…"}, 401 on
// rejected credentials.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, SignedIn: true, UserID: id.String()})
}

// HandleSignUp → 201. signed_in is false while email confirmation is pending.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := authResponse{Success: true}
	if id != uuid.Nil {
		resp.SignedIn = true
		resp.UserID = id.String()
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleSignOut always answers 204, signed in or not.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	h.auth.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": id.String()})
}
