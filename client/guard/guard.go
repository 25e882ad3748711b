// Package guard decides what a route shows for a given auth state.
package guard

import (
	"sync"

	"github.com/trezcool/harmony/client/auth"
)

// Routes
const (
	RouteHome  = "/"
	RouteAuth  = "/auth"
	RouteAdmin = "/admin"
)

type Action int

const (
	Loading Action = iota
	Render
	Redirect
)

func (a Action) String() string {
	switch a {
	case Loading:
		return "loading"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

type Decision struct {
	Action Action
	Target string // Redirect only
}

// Policy maps an auth state to what the page must do.
type Policy func(state auth.State) Decision

// Admin renders the dashboard to signed in users only. Nothing happens until the state is resolved.
func Admin(state auth.State) Decision {
	switch state {
	case auth.Authenticated:
		return Decision{Action: Render}
	case auth.Anonymous:
		return Decision{Action: Redirect, Target: RouteAuth}
	}
	return Decision{Action: Loading}
}

// SignIn renders the sign in form to anonymous users only.
func SignIn(state auth.State) Decision {
	switch state {
	case auth.Anonymous:
		return Decision{Action: Render}
	case auth.Authenticated:
		return Decision{Action: Redirect, Target: RouteAdmin}
	}
	return Decision{Action: Loading}
}

// Public renders whatever the state.
func Public(auth.State) Decision {
	return Decision{Action: Render}
}

// PolicyFor returns the policy guarding route.
func PolicyFor(route string) Policy {
	switch route {
	case RouteAdmin:
		return Admin
	case RouteAuth:
		return SignIn
	}
	return Public
}

// Page applies a policy to the snapshots of one visit of a route.
// It issues at most one redirect; a new visit (a new Page) is needed for another.
type Page struct {
	Route  string
	policy Policy

	mu         sync.Mutex
	redirected bool
	decision   Decision
	version    uint64
}

func NewPage(route string) *Page {
	return &Page{Route: route, policy: PolicyFor(route)}
}

// Evaluate returns the decision for snap & whether a redirect must be performed now.
// Snapshots older than the last one evaluated are ignored.
func (p *Page) Evaluate(snap auth.Snapshot) (d Decision, redirect bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Version != 0 && snap.Version < p.version {
		return p.decision, false
	}
	p.version = snap.Version

	d = p.policy(snap.State)
	p.decision = d
	if d.Action != Redirect || p.redirected {
		return d, false
	}
	p.redirected = true
	return d, true
}

// Decision returns the last decision taken.
func (p *Page) Decision() Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.decision
}
