package remote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/easychef/internal/auth"
	"github.com/sakif/easychef/internal/model"
	"github.com/sakif/easychef/internal/store/sqlite"
)

// These tests run the repositories against the embedded store end to end.

func newSQLiteRepos(t *testing.T) (*AuthRepo, *ProfileRepo) {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	db, err := sqlite.New(":memory:", tokens, auth.NewPasswordServiceForTest(4), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewAuthRepo(db, nil, testLogger()), NewProfileRepo(db, nil, testLogger())
}

// signedUp registers email and returns the signed-in user's id.
func signedUp(t *testing.T, authRepo *AuthRepo, email string) uuid.UUID {
	t.Helper()
	require.True(t, authRepo.SignUpWithEmail(context.Background(), email, "password123"))
	id, ok := authRepo.CurrentUser(context.Background())
	require.True(t, ok)
	return id
}

func TestSQLite_NewUserHasEmptyProfile(t *testing.T) {
	authRepo, profiles := newSQLiteRepos(t)
	id := signedUp(t, authRepo, "cook@example.com")

	p := profiles.GetProfile(context.Background(), id)

	require.NotNil(t, p)
	assert.Equal(t, id.String(), p.UserID)
	assert.Empty(t, p.Pantry)
	assert.Empty(t, p.Cuisines)
	assert.Nil(t, p.Diet)
}

func TestSQLite_GetProfileOfOtherUserIsNil(t *testing.T) {
	authRepo, profiles := newSQLiteRepos(t)
	first := signedUp(t, authRepo, "first@example.com")
	signedUp(t, authRepo, "second@example.com")

	assert.Nil(t, profiles.GetProfile(context.Background(), first), "rows are visible to their owner only")
	assert.Nil(t, profiles.GetProfile(context.Background(), uuid.New()))
}

func TestSQLite_SingleEggRoundTrip(t *testing.T) {
	authRepo, profiles := newSQLiteRepos(t)
	id := signedUp(t, authRepo, "cook@example.com")
	egg := []model.PantryItem{{IngredientID: "egg", Name: "Egg", Quantity: 1, Unit: "pcs"}}

	require.True(t, profiles.UpdatePantry(context.Background(), id, egg))

	p := profiles.GetProfile(context.Background(), id)
	require.NotNil(t, p)
	assert.Equal(t, egg, p.Pantry)
	require.NotNil(t, p.UpdatedDate)

	stamped, err := time.Parse(time.RFC3339Nano, *p.UpdatedDate)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), stamped, time.Minute)
}

func TestSQLite_UpdatePantryIsIdempotentAndOrdered(t *testing.T) {
	authRepo, profiles := newSQLiteRepos(t)
	id := signedUp(t, authRepo, "cook@example.com")
	pantry := []model.PantryItem{
		{IngredientID: "tomato", Name: "Tomato", Quantity: 3, Unit: "pcs"},
		{IngredientID: "basil", Name: "Basil", Quantity: 0.5, Unit: "bunch"},
		{IngredientID: "flour", Name: "Flour", Quantity: 1000, Unit: "g"},
	}

	require.True(t, profiles.UpdatePantry(context.Background(), id, pantry))
	require.True(t, profiles.UpdatePantry(context.Background(), id, pantry))

	p := profiles.GetProfile(context.Background(), id)
	require.NotNil(t, p)
	assert.Equal(t, pantry, p.Pantry)
}

func TestSQLite_EmptyPantryClears(t *testing.T) {
	authRepo, profiles := newSQLiteRepos(t)
	id := signedUp(t, authRepo, "cook@example.com")
	require.True(t, profiles.UpdatePantry(context.Background(), id,
		[]model.PantryItem{{IngredientID: "egg", Name: "Egg", Quantity: 6, Unit: "pcs"}}))

	require.True(t, profiles.UpdatePantry(context.Background(), id, []model.PantryItem{}))

	p := profiles.GetProfile(context.Background(), id)
	require.NotNil(t, p)
	assert.Empty(t, p.Pantry)
	assert.NotNil(t, p.Pantry)
}

func TestSQLite_UpdatePreferencesLeavesPantry(t *testing.T) {
	authRepo, profiles := newSQLiteRepos(t)
	id := signedUp(t, authRepo, "cook@example.com")
	pantry := []model.PantryItem{{IngredientID: "egg", Name: "Egg", Quantity: 1, Unit: "pcs"}}
	require.True(t, profiles.UpdatePantry(context.Background(), id, pantry))

	prefs := model.Preferences{Diet: model.StringPtr("vegetarian"), Cuisines: []string{"thai", "italian"}}
	require.True(t, profiles.UpdatePreferences(context.Background(), id, prefs))

	p := profiles.GetProfile(context.Background(), id)
	require.NotNil(t, p)
	assert.Equal(t, pantry, p.Pantry)
	assert.Equal(t, "vegetarian", *p.Diet)
	assert.Equal(t, []string{"thai", "italian"}, p.Cuisines)

	require.True(t, profiles.UpdatePreferences(context.Background(), id, model.Preferences{}))
	p = profiles.GetProfile(context.Background(), id)
	require.NotNil(t, p)
	assert.Nil(t, p.Diet)
	assert.Empty(t, p.Cuisines)
}

func TestSQLite_SignInAndSignOut(t *testing.T) {
	authRepo, profiles := newSQLiteRepos(t)
	id := signedUp(t, authRepo, "cook@example.com")

	authRepo.SignOut(context.Background())
	_, ok := authRepo.CurrentUser(context.Background())
	assert.False(t, ok)
	assert.Nil(t, profiles.GetProfile(context.Background(), id), "no session, no profile")
	assert.False(t, profiles.UpdatePantry(context.Background(), id, nil))

	assert.False(t, authRepo.SignInWithEmail(context.Background(), "cook@example.com", "wrong-password"))
	_, ok = authRepo.CurrentUser(context.Background())
	assert.False(t, ok)

	require.True(t, authRepo.SignInWithEmail(context.Background(), "cook@example.com", "password123"))
	got, ok := authRepo.CurrentUser(context.Background())
	assert.True(t, ok)
	assert.Equal(t, id, got)

	assert.False(t, authRepo.SignInWithEmail(context.Background(), "cook@example.com", "wrong-password"))
	got, ok = authRepo.CurrentUser(context.Background())
	assert.True(t, ok, "failed sign-in keeps the session")
	assert.Equal(t, id, got)
}

func TestSQLite_DuplicateSignUpFails(t *testing.T) {
	authRepo, _ := newSQLiteRepos(t)
	signedUp(t, authRepo, "cook@example.com")

	assert.False(t, authRepo.SignUpWithEmail(context.Background(), "cook@example.com", "password123"))
}

func TestSQLite_ConcurrentReadsAndWrites(t *testing.T) {
	authRepo, profiles := newSQLiteRepos(t)
	id := signedUp(t, authRepo, "cook@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			profiles.UpdatePantry(context.Background(), id,
				[]model.PantryItem{{IngredientID: "egg", Name: "Egg", Quantity: float64(i), Unit: "pcs"}})
		}(i)
		go func() {
			defer wg.Done()
			profiles.GetProfile(context.Background(), id)
		}()
	}
	wg.Wait()

	p := profiles.GetProfile(context.Background(), id)
	require.NotNil(t, p)
	assert.Len(t, p.Pantry, 1, "last writer wins, never a mix")
}
