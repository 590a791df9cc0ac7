// Package repository declares the capabilities the rest of the app consumes.
//
// Handlers, services and tests depend on these interfaces, never on a
// concrete store. Implementations:
//
//	remote.AuthRepo / remote.ProfileRepo → a store.Client (hosted or embedded)
//	memory.Repository                    → in-process fake, both interfaces
//
// FAILURE CONTRACT:
// The boolean and pointer results are deliberately lossy: every failure,
// whatever its cause, becomes false or nil and is logged by the
// implementation. Callers that need the failure class use the
// error-returning methods on the remote types instead.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sakif/easychef/internal/model"
)

// AuthRepository manages the app's single ambient session.
type AuthRepository interface {
	// SignInWithEmail reports whether a session was established.
	// A failed attempt leaves any existing session in place.
	SignInWithEmail(ctx context.Context, email, password string) bool

	// SignUpWithEmail reports whether the account creation request was
	// accepted. It may or may not establish a session.
	SignUpWithEmail(ctx context.Context, email, password string) bool

	// SignOut clears the session. Afterwards CurrentUser reports no user.
	SignOut(ctx context.Context)

	// CurrentUser inspects the local session only.
	CurrentUser(ctx context.Context) (uuid.UUID, bool)
}

// UserProfileRepository reads and replaces fields of one user's profile row.
type UserProfileRepository interface {
	// GetProfile returns nil when the row is missing or cannot be read.
	// A non-nil result always has UserID == userID.
	GetProfile(ctx context.Context, userID uuid.UUID) *model.UserProfile

	// UpdatePantry replaces the whole pantry and stamps updated_date.
	UpdatePantry(ctx context.Context, userID uuid.UUID, pantry []model.PantryItem) bool

	// UpdatePreferences replaces diet and cuisines together and stamps
	// updated_date.
	UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs model.Preferences) bool
}
