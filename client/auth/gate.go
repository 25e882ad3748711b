// Package auth holds the Auth Gate: the single owner of the session seen by the client.
//
// The gate resolves its state from two racing sources, the direct session query and the
// change-event stream of the session store. Events always win over a late "no session"
// answer from the query, so the state never regresses to Anonymous because of the slower source.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/session"
)

type State int

const (
	Uninitialized State = iota
	Checking
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Checking:
		return "checking"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Resolved reports whether the gate knows if a user is signed in.
func (s State) Resolved() bool { return s == Anonymous || s == Authenticated }

type (
	Subscription interface {
		Unsubscribe()
	}

	// SessionStore is the identity provider as seen by the client.
	SessionStore interface {
		GetSession(ctx context.Context) (*session.Session, error)
		// OnSessionChange subscribes fn to session changes. Stores may call fn
		// before OnSessionChange returns (eg. with an INITIAL_SESSION event).
		OnSessionChange(fn func(session.Event)) Subscription
		SignOut(ctx context.Context) error
	}

	// Snapshot is a read-only view of the gate. Versions grow with every change.
	Snapshot struct {
		State           State
		User            *session.User
		IsAuthenticated bool
		Loading         bool
		Initialized     bool
		Version         uint64
	}
)

type Gate struct {
	store  SessionStore
	logger core.Logger

	mu         sync.Mutex
	state      State
	usr        *session.User
	eventSeen  bool // an event resolved the gate
	epoch      uint64
	mounted    bool
	closed     bool
	cancel     context.CancelFunc
	version    uint64
	sub        Subscription
	listeners  map[int]func(Snapshot)
	listenerID int

	notifyMu     sync.Mutex
	lastNotified uint64

	ready     chan struct{}
	readyOnce sync.Once
	inflight  sync.WaitGroup
}

func NewGate(store SessionStore, logger core.Logger) *Gate {
	return &Gate{
		store:     store,
		logger:    logger,
		listeners: make(map[int]func(Snapshot)),
		ready:     make(chan struct{}),
	}
}

// Mount moves an uninitialized gate to Checking, subscribes to the store & queries the current session.
// A gate already resolved by SignOut keeps its state until the store says otherwise.
// It returns without waiting for the query; use Ready to wait for the first resolution.
// Mounting twice is a no-op.
func (g *Gate) Mount(ctx context.Context) {
	g.mu.Lock()
	if g.mounted || g.closed {
		g.mu.Unlock()
		return
	}
	g.mounted = true
	var snap Snapshot
	if g.state == Uninitialized {
		g.state = Checking
		snap = g.changed()
	}
	epoch := g.epoch
	g.mu.Unlock()
	if snap.Version > 0 {
		g.publish(snap)
	}

	sub := g.store.OnSessionChange(g.handleEvent)
	ctx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		cancel()
		sub.Unsubscribe()
		return
	}
	g.sub = sub
	g.cancel = cancel
	g.inflight.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.inflight.Done()
		sess, err := g.store.GetSession(ctx)
		g.handleQuery(epoch, sess, err)
	}()
}

func (g *Gate) handleEvent(ev session.Event) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	switch {
	case session.HasUser(ev.Session):
		g.state = Authenticated
		g.usr = ev.Session.User
		g.eventSeen = true
	case !ev.Kind.Synthetic():
		g.state = Anonymous
		g.usr = nil
		g.eventSeen = true
	default:
		// an initial replay without a user: the direct query decides
		g.mu.Unlock()
		return
	}
	snap := g.changed()
	g.mu.Unlock()
	g.publish(snap)
}

func (g *Gate) handleQuery(epoch uint64, sess *session.Session, err error) {
	g.mu.Lock()
	if g.closed || epoch != g.epoch {
		g.mu.Unlock()
		return
	}
	if err != nil {
		g.logger.Error(fmt.Sprintf("getting session: %v", err), err)
	}
	switch {
	case err == nil && session.HasUser(sess):
		g.state = Authenticated
		g.usr = sess.User
	case !g.eventSeen:
		g.state = Anonymous
		g.usr = nil
	default:
		g.mu.Unlock()
		return
	}
	snap := g.changed()
	g.mu.Unlock()
	g.publish(snap)
}

// SignOut signs out of the store. The gate ends Anonymous whatever the outcome;
// the store error, if any, is logged & returned.
// Session queries started before SignOut are ignored.
func (g *Gate) SignOut(ctx context.Context) error {
	g.mu.Lock()
	g.epoch++
	g.mu.Unlock()

	err := g.store.SignOut(ctx)
	if err != nil {
		err = errors.Wrap(err, "signing out")
		g.logger.Error(err.Error(), err)
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return err
	}
	g.state = Anonymous
	g.usr = nil
	snap := g.changed()
	g.mu.Unlock()
	g.publish(snap)
	return err
}

// Close unsubscribes from the store, cancels the session query & waits for it to return.
// Results arriving afterwards are dropped. Close must not be called from an OnChange listener.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	sub, cancel := g.sub, g.cancel
	g.sub, g.cancel = nil, nil
	g.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	g.inflight.Wait()
}

func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

// Ready is closed once the gate is resolved for the first time.
func (g *Gate) Ready() <-chan struct{} {
	return g.ready
}

// OnChange registers fn to receive every new snapshot, in version order.
// fn runs outside the gate lock but must not call SignOut synchronously.
func (g *Gate) OnChange(fn func(Snapshot)) (unsubscribe func()) {
	g.mu.Lock()
	id := g.listenerID
	g.listenerID++
	g.listeners[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// changed bumps the version & returns the new snapshot. Callers must hold mu.
func (g *Gate) changed() Snapshot {
	g.version++
	if g.state.Resolved() {
		g.readyOnce.Do(func() { close(g.ready) })
	}
	return g.snapshot()
}

// snapshot must be called with mu held.
func (g *Gate) snapshot() Snapshot {
	var usr *session.User
	if g.usr != nil {
		u := *g.usr
		usr = &u
	}
	return Snapshot{
		State:           g.state,
		User:            usr,
		IsAuthenticated: g.state == Authenticated,
		Loading:         !g.state.Resolved(),
		Initialized:     g.state.Resolved(),
		Version:         g.version,
	}
}

// publish delivers snap to the listeners unless a newer snapshot was already delivered.
func (g *Gate) publish(snap Snapshot) {
	g.notifyMu.Lock()
	defer g.notifyMu.Unlock()
	if snap.Version <= g.lastNotified {
		return
	}
	g.lastNotified = snap.Version

	g.mu.Lock()
	fns := make([]func(Snapshot), 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
