// Package dashboard holds the admin dashboard: the only owner of the cached registrations & messages.
//
// Mutations patch the cache with the registration/message reducers once the record store
// accepted them; the cache is never re-fetched after a mutation and never touched on failure.
package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/harmony/client/notify"
	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/message"
	"github.com/trezcool/harmony/core/registration"
)

var (
	// errors
	ErrClosed     = errors.New("dashboard closed")
	ErrNotAllowed = errors.New("action not allowed")
)

// RecordStore is the data backend of the dashboard.
type RecordStore interface {
	// ListRegistrations returns all registrations, newest first.
	ListRegistrations(ctx context.Context) ([]registration.Registration, error)
	// ListMessages returns all contact messages, newest first.
	ListMessages(ctx context.Context) ([]message.Message, error)
	UpdateRegistrationStatus(ctx context.Context, id string, status registration.Status) error
	MarkMessageRead(ctx context.Context, id string) error
}

type Dashboard struct {
	store    RecordStore
	notifier notify.Notifier
	logger   core.Logger

	mu       sync.Mutex
	regs     []registration.Registration
	msgs     []message.Message
	inflight map[string]bool // ids being updated
	closed   bool

	// bumped by every successful mutation; a load started before one is stale
	regsGen, msgsGen uint64
}

func New(store RecordStore, notifier notify.Notifier, logger core.Logger) *Dashboard {
	return &Dashboard{
		store:    store,
		notifier: notifier,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// Load fetches registrations & messages concurrently & waits for both.
// A failed fetch is reported on its own; the other collection still lands.
// A collection mutated while its fetch was in flight keeps the patched cache.
func (d *Dashboard) Load(ctx context.Context) {
	d.mu.Lock()
	regsGen, msgsGen := d.regsGen, d.msgsGen
	d.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		regs, err := d.store.ListRegistrations(ctx)
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return
		}
		if err != nil {
			d.fail("Failed to load registrations", err)
			return
		}
		if d.regsGen != regsGen {
			return
		}
		d.regs = regs
	}()

	go func() {
		defer wg.Done()
		msgs, err := d.store.ListMessages(ctx)
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return
		}
		if err != nil {
			d.fail("Failed to load messages", err)
			return
		}
		if d.msgsGen != msgsGen {
			return
		}
		d.msgs = msgs
	}()

	wg.Wait()
}

// CanSetStatus reports whether the registration matching id can move to status.
// Setting the current status again is not allowed.
func (d *Dashboard) CanSetStatus(id string, status registration.Status) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.canSetStatus(id, status)
}

func (d *Dashboard) canSetStatus(id string, status registration.Status) bool {
	if d.closed || !status.Decided() || d.inflight[id] {
		return false
	}
	for _, reg := range d.regs {
		if reg.ID == id {
			return reg.Status != status
		}
	}
	return false
}

// SetStatus updates the status of a registration & patches the cache on success.
// On failure the cache is left as is & one error notification is sent.
func (d *Dashboard) SetStatus(ctx context.Context, id string, status registration.Status) error {
	d.mu.Lock()
	if !d.canSetStatus(id, status) {
		closed := d.closed
		d.mu.Unlock()
		if closed {
			return ErrClosed
		}
		return ErrNotAllowed
	}
	d.inflight[id] = true
	d.mu.Unlock()

	err := d.store.UpdateRegistrationStatus(ctx, id, status)

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, id)
	if d.closed {
		return ErrClosed
	}
	if err != nil {
		d.fail("Failed to update registration status", err)
		return err
	}
	d.regs, _ = registration.Replace(d.regs, id, registration.WithStatus(status))
	d.regsGen++
	d.notifier.Notify(notify.LevelSuccess, "Registration "+string(status), "")
	return nil
}

// CanMarkRead reports whether the message matching id is loaded & unread.
func (d *Dashboard) CanMarkRead(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.canMarkRead(id)
}

func (d *Dashboard) canMarkRead(id string) bool {
	if d.closed || d.inflight[id] {
		return false
	}
	for _, msg := range d.msgs {
		if msg.ID == id {
			return !msg.IsRead
		}
	}
	return false
}

// MarkRead marks a message as read. There is no way back.
func (d *Dashboard) MarkRead(ctx context.Context, id string) error {
	d.mu.Lock()
	if !d.canMarkRead(id) {
		closed := d.closed
		d.mu.Unlock()
		if closed {
			return ErrClosed
		}
		return ErrNotAllowed
	}
	d.inflight[id] = true
	d.mu.Unlock()

	err := d.store.MarkMessageRead(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, id)
	if d.closed {
		return ErrClosed
	}
	if err != nil {
		d.fail("Failed to mark message as read", err)
		return err
	}
	d.msgs, _ = message.Replace(d.msgs, id, message.MarkedRead)
	d.msgsGen++
	return nil
}

// Registrations returns the cached registrations matching search.
func (d *Dashboard) Registrations(search string) []registration.Registration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyRegs(registration.Filter(d.regs, search))
}

// Pending returns the cached registrations awaiting a decision.
func (d *Dashboard) Pending() []registration.Registration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return registration.Pending(d.regs)
}

func (d *Dashboard) Messages(search string) []message.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyMsgs(message.Filter(d.msgs, search))
}

type Stats struct {
	Registrations  registration.Stats
	Messages       int
	UnreadMessages int
}

func (d *Dashboard) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Registrations:  registration.Count(d.regs),
		Messages:       len(d.msgs),
		UnreadMessages: message.CountUnread(d.msgs),
	}
}

// InFlight reports whether an update of the record matching id is pending.
func (d *Dashboard) InFlight(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight[id]
}

// Close discards the results of requests still in flight.
func (d *Dashboard) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// fail logs err & notifies the user once. Callers must hold mu.
func (d *Dashboard) fail(title string, err error) {
	d.logger.Error(fmt.Sprintf("%s: %v", title, err), err)
	d.notifier.Notify(notify.LevelError, title, err.Error())
}

func copyRegs(regs []registration.Registration) []registration.Registration {
	return append([]registration.Registration(nil), regs...)
}

func copyMsgs(msgs []message.Message) []message.Message {
	return append([]message.Message(nil), msgs...)
}
