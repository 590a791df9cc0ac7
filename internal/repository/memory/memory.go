// Package memory is an in-process stand-in for the remote repositories.
//
// It honours the same contracts as remote.AuthRepo and remote.ProfileRepo,
// including the owner-only visibility of profile rows, so UI-facing code can
// be exercised without a backend. Nothing is persisted.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/easychef/internal/model"
	"github.com/sakif/easychef/internal/repository"
)

var (
	_ repository.AuthRepository        = (*Repository)(nil)
	_ repository.UserProfileRepository = (*Repository)(nil)
)

type account struct {
	id       uuid.UUID
	password string
}

// Repository implements both capability interfaces over maps.
type Repository struct {
	mu       sync.RWMutex
	accounts map[string]account // by lower-cased email
	profiles map[uuid.UUID]*model.UserProfile
	current  uuid.UUID
	offline  bool

	now func() time.Time
}

func New() *Repository {
	return &Repository{
		accounts: make(map[string]account),
		profiles: make(map[uuid.UUID]*model.UserProfile),
		now:      time.Now,
	}
}

// AddUser registers an account with an empty profile without signing in.
func (r *Repository) AddUser(email, password string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addUser(email, password)
}

func (r *Repository) addUser(email, password string) uuid.UUID {
	id := uuid.New()
	r.accounts[strings.ToLower(email)] = account{id: id, password: password}
	r.profiles[id] = &model.UserProfile{
		UserID:   id.String(),
		Pantry:   []model.PantryItem{},
		Cuisines: []string{},
	}
	return id
}

// SetOffline makes every call that would reach a backend fail, as if the
// network were down. CurrentUser and SignOut keep working locally.
func (r *Repository) SetOffline(offline bool) {
	r.mu.Lock()
	r.offline = offline
	r.mu.Unlock()
}

func (r *Repository) SignInWithEmail(_ context.Context, email, password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.offline {
		return false
	}
	acc, ok := r.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || password == "" || acc.password != password {
		return false
	}
	r.current = acc.id
	return true
}

// SignUpWithEmail auto-confirms and signs the new account in.
func (r *Repository) SignUpWithEmail(_ context.Context, email, password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = strings.TrimSpace(email)
	if r.offline || email == "" || len(password) < 6 {
		return false
	}
	if _, exists := r.accounts[strings.ToLower(email)]; exists {
		return false
	}
	r.current = r.addUser(email, password)
	return true
}

func (r *Repository) SignOut(_ context.Context) {
	r.mu.Lock()
	r.current = uuid.Nil
	r.mu.Unlock()
}

func (r *Repository) CurrentUser(_ context.Context) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.current != uuid.Nil
}

func (r *Repository) GetProfile(ctx context.Context, userID uuid.UUID) *model.UserProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.visible(ctx, userID)
	if !ok {
		return nil
	}
	return clone(p)
}

func (r *Repository) UpdatePantry(ctx context.Context, userID uuid.UUID, pantry []model.PantryItem) bool {
	if userID == uuid.Nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.visible(ctx, userID)
	if !ok {
		// A filter that matches nothing is still a successful update.
		return r.writable(ctx)
	}
	p.Pantry = append([]model.PantryItem{}, pantry...)
	r.stamp(p)
	return true
}

func (r *Repository) UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs model.Preferences) bool {
	if userID == uuid.Nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.visible(ctx, userID)
	if !ok {
		return r.writable(ctx)
	}
	p.Diet = cloneString(prefs.Diet)
	p.Cuisines = append([]string{}, prefs.Cuisines...)
	r.stamp(p)
	return true
}

// visible returns the row of userID if the signed-in user may see it.
// Callers hold r.mu.
func (r *Repository) visible(ctx context.Context, userID uuid.UUID) (*model.UserProfile, bool) {
	if !r.writable(ctx) || userID != r.current {
		return nil, false
	}
	p, ok := r.profiles[userID]
	return p, ok
}

// writable reports whether a data call can reach the "backend".
func (r *Repository) writable(ctx context.Context) bool {
	return ctx.Err() == nil && !r.offline && r.current != uuid.Nil
}

func (r *Repository) stamp(p *model.UserProfile) {
	p.UpdatedDate = model.StringPtr(r.now().UTC().Format(time.RFC3339Nano))
}

func clone(p *model.UserProfile) *model.UserProfile {
	c := *p
	c.UserName = cloneString(p.UserName)
	c.Diet = cloneString(p.Diet)
	c.UpdatedDate = cloneString(p.UpdatedDate)
	c.Pantry = slices.Clone(p.Pantry)
	c.Cuisines = slices.Clone(p.Cuisines)
	if c.Pantry == nil {
		c.Pantry = []model.PantryItem{}
	}
	if c.Cuisines == nil {
		c.Cuisines = []string{}
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
