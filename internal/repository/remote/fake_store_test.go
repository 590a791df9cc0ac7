package remote

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sakif/easychef/internal/store"
)

type updateCall struct {
	collection string
	fields     store.Fields
	filters    []store.Filter
}

// fakeStore is a scriptable store.Client. Each *Err field, when set, is
// returned by the matching method.
type fakeStore struct {
	mu      sync.Mutex
	session *store.Session

	records       []json.RawMessage
	signUpPending bool
	delay         time.Duration

	selectErr error
	updateErr error
	signInErr error
	signUpErr error
	clearErr  error

	selects     [][]store.Filter
	updates     []updateCall
	signIns     []store.Credentials
	inFlight    int
	maxInFlight int
}

var _ store.Client = (*fakeStore)(nil)

func (f *fakeStore) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	time.Sleep(f.delay)
}

func (f *fakeStore) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeStore) Select(_ context.Context, _ string, filters ...store.Filter) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selects = append(f.selects, filters)
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return f.records, nil
}

func (f *fakeStore) Update(_ context.Context, collection string, fields store.Fields, filters ...store.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{collection: collection, fields: fields, filters: filters})
	return f.updateErr
}

func (f *fakeStore) SignIn(_ context.Context, cred store.Credentials) (*store.Session, error) {
	f.enter()
	defer f.leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns = append(f.signIns, cred)
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	f.session = newFakeSession(cred.Email)
	return f.session.Clone(), nil
}

func (f *fakeStore) SignUp(_ context.Context, cred store.Credentials) (*store.Session, error) {
	f.enter()
	defer f.leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	if f.signUpPending {
		return nil, nil
	}
	f.session = newFakeSession(cred.Email)
	return f.session.Clone(), nil
}

func (f *fakeStore) ClearSession(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = nil
	return f.clearErr
}

func (f *fakeStore) CurrentSession() (*store.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil, false
	}
	return f.session.Clone(), true
}

func (f *fakeStore) Ping(_ context.Context) error { return nil }

func newFakeSession(email string) *store.Session {
	return &store.Session{
		UserID: uuid.New(),
		Email:  email,
		Token:  &oauth2.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)},
	}
}
