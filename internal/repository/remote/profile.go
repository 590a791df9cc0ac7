package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/easychef/internal/apperror"
	"github.com/sakif/easychef/internal/metrics"
	"github.com/sakif/easychef/internal/model"
	"github.com/sakif/easychef/internal/repository"
	"github.com/sakif/easychef/internal/store"
)

var _ repository.UserProfileRepository = (*ProfileRepo)(nil)

// ProfileRepo reads and replaces fields of the user_profiles collection.
//
// It keeps no copy of any profile between calls and has no timeout or retry
// of its own: callers bound a call with the context they pass in. Concurrent
// updates are last-writer-wins.
type ProfileRepo struct {
	client  store.Client
	metrics *metrics.Repository
	logger  *slog.Logger
}

func NewProfileRepo(client store.Client, m *metrics.Repository, logger *slog.Logger) *ProfileRepo {
	return &ProfileRepo{
		client:  client,
		metrics: m,
		logger:  logger,
	}
}

// FetchProfile returns the profile row of userID.
//
// Errors:
//   - apperror.ErrNotFound  → no row for userID (or none visible to the session)
//   - apperror.ErrConflict  → several rows, or a row with a different user_id
//   - apperror.ErrDecode    → the row is not a valid profile
//   - anything the store returns
func (r *ProfileRepo) FetchProfile(ctx context.Context, userID uuid.UUID) (p *model.UserProfile, err error) {
	defer observe(r.metrics, opGetProfile, time.Now(), &err)

	if userID == uuid.Nil {
		return nil, apperror.ValidationFailed(model.FieldUserID, "user id is required")
	}

	records, err := r.client.Select(ctx, model.ProfilesCollection,
		store.Eq(model.FieldUserID, userID.String()))
	if err != nil {
		return nil, fmt.Errorf("fetching profile %s: %w", userID, err)
	}

	switch len(records) {
	case 0:
		return nil, apperror.NotFound("profile", userID.String())
	case 1:
	default:
		return nil, fmt.Errorf("fetching profile: %d rows: %w",
			len(records), apperror.Conflict("profile", userID.String()))
	}

	var profile model.UserProfile
	if err := json.Unmarshal(records[0], &profile); err != nil {
		return nil, apperror.Decode("decoding profile "+userID.String(), err)
	}

	// The store's filter is trusted but not blindly: a row for someone else
	// must never reach the caller.
	got, err := uuid.Parse(profile.UserID)
	if err != nil {
		return nil, apperror.Decode("decoding profile "+userID.String(), err)
	}
	if got != userID {
		return nil, fmt.Errorf("fetching profile: store returned row of %s: %w",
			got, apperror.Conflict("profile", userID.String()))
	}

	if profile.Pantry == nil {
		profile.Pantry = []model.PantryItem{}
	}
	if profile.Cuisines == nil {
		profile.Cuisines = []string{}
	}
	return &profile, nil
}

// ReplacePantry overwrites the whole pantry of userID and stamps
// updated_date with the store's clock. A nil pantry is written as [].
// Matching no row is not an error.
func (r *ProfileRepo) ReplacePantry(ctx context.Context, userID uuid.UUID, pantry []model.PantryItem) (err error) {
	defer observe(r.metrics, opUpdatePantry, time.Now(), &err)

	if userID == uuid.Nil {
		return apperror.ValidationFailed(model.FieldUserID, "user id is required")
	}
	if pantry == nil {
		pantry = []model.PantryItem{}
	}

	err = r.client.Update(ctx, model.ProfilesCollection, store.Fields{
		model.FieldPantry:      pantry,
		model.FieldUpdatedDate: store.ServerTime,
	}, store.Eq(model.FieldUserID, userID.String()))
	if err != nil {
		return fmt.Errorf("replacing pantry of %s: %w", userID, err)
	}
	return nil
}

// ReplacePreferences overwrites diet and cuisines of userID in a single
// update, so the two never disagree with each other.
func (r *ProfileRepo) ReplacePreferences(ctx context.Context, userID uuid.UUID, prefs model.Preferences) (err error) {
	defer observe(r.metrics, opUpdatePreferences, time.Now(), &err)

	if userID == uuid.Nil {
		return apperror.ValidationFailed(model.FieldUserID, "user id is required")
	}
	cuisines := prefs.Cuisines
	if cuisines == nil {
		cuisines = []string{}
	}

	err = r.client.Update(ctx, model.ProfilesCollection, store.Fields{
		model.FieldDiet:        prefs.Diet,
		model.FieldCuisines:    cuisines,
		model.FieldUpdatedDate: store.ServerTime,
	}, store.Eq(model.FieldUserID, userID.String()))
	if err != nil {
		return fmt.Errorf("replacing preferences of %s: %w", userID, err)
	}
	return nil
}

func (r *ProfileRepo) GetProfile(ctx context.Context, userID uuid.UUID) *model.UserProfile {
	p, err := r.FetchProfile(ctx, userID)
	if err != nil {
		warn(r.logger, opGetProfile, err)
		return nil
	}
	return p
}

func (r *ProfileRepo) UpdatePantry(ctx context.Context, userID uuid.UUID, pantry []model.PantryItem) bool {
	if err := r.ReplacePantry(ctx, userID, pantry); err != nil {
		warn(r.logger, opUpdatePantry, err)
		return false
	}
	return true
}

func (r *ProfileRepo) UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs model.Preferences) bool {
	if err := r.ReplacePreferences(ctx, userID, prefs); err != nil {
		warn(r.logger, opUpdatePreferences, err)
		return false
	}
	return true
}
