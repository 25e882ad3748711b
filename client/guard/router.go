package guard

import (
	"sync"

	"github.com/trezcool/harmony/client/auth"
)

// Router tracks the current route & applies its guard to every gate snapshot.
type Router struct {
	gate *auth.Gate

	mu       sync.Mutex
	page     *Page
	history  []string
	onChange func(route string, d Decision)
	unsub    func()
}

// NewRouter starts on route. onChange is called whenever the route or its decision changes; it may be nil.
func NewRouter(gate *auth.Gate, route string, onChange func(route string, d Decision)) *Router {
	r := &Router{gate: gate, onChange: onChange}
	r.mu.Lock()
	r.page = NewPage(route)
	r.history = append(r.history, route)
	r.mu.Unlock()

	r.unsub = gate.OnChange(r.apply)
	r.evaluate(gate.Snapshot(), true)
	return r
}

// Navigate leaves the current route for route, with a fresh redirect latch.
func (r *Router) Navigate(route string) {
	r.mu.Lock()
	r.page = NewPage(route)
	r.history = append(r.history, route)
	r.mu.Unlock()

	r.evaluate(r.gate.Snapshot(), true)
}

func (r *Router) apply(snap auth.Snapshot) {
	r.evaluate(snap, false)
}

// evaluate runs the guard of the current page. fresh is set on a route change.
func (r *Router) evaluate(snap auth.Snapshot, fresh bool) {
	r.mu.Lock()
	page := r.page
	r.mu.Unlock()

	prev := page.Decision()
	d, redirect := page.Evaluate(snap)
	if redirect {
		r.Navigate(d.Target)
		return
	}
	if r.onChange != nil && (fresh || d != prev) {
		r.onChange(page.Route, d)
	}
}

func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.page.Route
}

// Decision returns the decision of the current route.
func (r *Router) Decision() Decision {
	r.mu.Lock()
	page := r.page
	r.mu.Unlock()
	return page.Decision()
}

// History returns the routes visited, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

func (r *Router) Close() {
	if r.unsub != nil {
		r.unsub()
	}
}
