package guard

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/harmony/client/auth"
	"github.com/trezcool/harmony/core/session"
)

func TestPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		state  auth.State
		want   Decision
	}{
		{name: "admin/uninitialized", policy: Admin, state: auth.Uninitialized, want: Decision{Action: Loading}},
		{name: "admin/checking", policy: Admin, state: auth.Checking, want: Decision{Action: Loading}},
		{name: "admin/anonymous", policy: Admin, state: auth.Anonymous, want: Decision{Action: Redirect, Target: RouteAuth}},
		{name: "admin/authenticated", policy: Admin, state: auth.Authenticated, want: Decision{Action: Render}},
		{name: "sign in/checking", policy: SignIn, state: auth.Checking, want: Decision{Action: Loading}},
		{name: "sign in/anonymous", policy: SignIn, state: auth.Anonymous, want: Decision{Action: Render}},
		{name: "sign in/authenticated", policy: SignIn, state: auth.Authenticated, want: Decision{Action: Redirect, Target: RouteAdmin}},
		{name: "public/checking", policy: Public, state: auth.Checking, want: Decision{Action: Render}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy(tt.state))
		})
	}
}

func TestPage_redirectsOncePerVisit(t *testing.T) {
	page := NewPage(RouteAdmin)

	snaps := []auth.Snapshot{
		{State: auth.Checking, Version: 1},
		{State: auth.Anonymous, Version: 2},
		{State: auth.Anonymous, Version: 2}, // re-render
		{State: auth.Anonymous, Version: 3}, // duplicate event
		{State: auth.Anonymous, Version: 4},
	}
	var (
		redirects int
		rendered  bool
	)
	for _, s := range snaps {
		d, redirect := page.Evaluate(s)
		if redirect {
			redirects++
			assert.Equal(t, RouteAuth, d.Target)
		}
		if d.Action == Render {
			rendered = true
		}
	}
	assert.Equal(t, 1, redirects)
	assert.False(t, rendered)
}

func TestPage_ignoresStaleSnapshots(t *testing.T) {
	page := NewPage(RouteAdmin)
	page.Evaluate(auth.Snapshot{State: auth.Authenticated, Version: 5})
	d, redirect := page.Evaluate(auth.Snapshot{State: auth.Checking, Version: 2})
	assert.False(t, redirect)
	assert.Equal(t, Render, d.Action)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type nopSub struct{}

func (nopSub) Unsubscribe() {}

// stubStore is a session store driven by the test.
type stubStore struct {
	mu    sync.Mutex
	fn    func(session.Event)
	query chan *session.Session
}

func (s *stubStore) GetSession(context.Context) (*session.Session, error) {
	return <-s.query, nil
}

func (s *stubStore) OnSessionChange(fn func(session.Event)) auth.Subscription {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
	return nopSub{}
}

func (s *stubStore) SignOut(context.Context) error { return nil }

func (s *stubStore) emit(kind session.EventKind, sess *session.Session) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	fn(session.Event{Kind: kind, Session: sess})
}

func TestRouter(t *testing.T) {
	store := &stubStore{query: make(chan *session.Session, 1)}
	gate := auth.NewGate(store, nopLogger{})
	defer gate.Close()

	var (
		mu        sync.Mutex
		decisions []Decision
	)
	router := NewRouter(gate, RouteAdmin, func(route string, d Decision) {
		mu.Lock()
		decisions = append(decisions, d)
		mu.Unlock()
	})
	defer router.Close()

	gate.Mount(context.Background())
	assert.Equal(t, RouteAdmin, router.Current())
	assert.Equal(t, Loading, router.Decision().Action)

	// a storm of anonymous events: one redirect to the sign in page
	store.emit(session.EventSignedOut, nil)
	store.emit(session.EventSignedOut, nil)
	store.emit(session.EventSignedOut, nil)
	assert.Equal(t, RouteAuth, router.Current())
	assert.Equal(t, []string{RouteAdmin, RouteAuth}, router.History())
	assert.Equal(t, Render, router.Decision().Action)

	// signing in sends the user to the dashboard
	store.emit(session.EventSignedIn, &session.Session{User: &session.User{ID: "a"}})
	assert.Equal(t, RouteAdmin, router.Current())
	assert.Equal(t, Render, router.Decision().Action)

	store.query <- nil
	mu.Lock()
	defer mu.Unlock()
	for _, d := range decisions {
		assert.NotEqual(t, Redirect, d.Action, "redirects are performed, not reported")
	}
	assert.Equal(t, []string{RouteAdmin, RouteAuth, RouteAdmin}, router.History())
}
