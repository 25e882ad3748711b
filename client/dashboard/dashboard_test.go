package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/harmony/client/notify"
	"github.com/trezcool/harmony/core/message"
	"github.com/trezcool/harmony/core/registration"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeStore struct {
	mu        sync.Mutex
	regs      []registration.Registration
	msgs      []message.Message
	regsErr   error
	msgsErr   error
	updateErr error
	updates   []string
	block     chan struct{} // when set, updates wait on it

	listing   chan struct{} // when set, registration lists signal it, then wait on listBlock
	listBlock chan struct{}
}

func (s *fakeStore) ListRegistrations(context.Context) ([]registration.Registration, error) {
	if s.listing != nil {
		s.listing <- struct{}{}
		<-s.listBlock
	}
	return s.regs, s.regsErr
}

func (s *fakeStore) ListMessages(context.Context) ([]message.Message, error) {
	return s.msgs, s.msgsErr
}

func (s *fakeStore) UpdateRegistrationStatus(_ context.Context, id string, status registration.Status) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, id+"="+string(status))
	return s.updateErr
}

func (s *fakeStore) MarkMessageRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, id+"=read")
	return s.updateErr
}

func fixtures() ([]registration.Registration, []message.Message) {
	created := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	regs := []registration.Registration{
		{
			ID: "43", StudentName: "Emma Wilson", Age: 15, Email: "emma.w@email.com", Phone: "0721 678 901",
			Instrument: "voice", Experience: "intermediate", Status: registration.StatusPending,
			CreatedAt: created.Add(2 * time.Hour), UpdatedAt: created.Add(2 * time.Hour),
		},
		{
			ID: "42", StudentName: "Sarah Johnson", Age: 12, Email: "sarah.j@email.com", Phone: "0701 234 567",
			ParentName: null.StringFrom("Paul Johnson"), Instrument: "piano", Experience: "beginner",
			Status: registration.StatusPending, CreatedAt: created.Add(time.Hour), UpdatedAt: created.Add(time.Hour),
		},
		{
			ID: "41", StudentName: "Michael Chen", Age: 8, Email: "m.chen@email.com", Phone: "0735 456 789",
			Instrument: "guitar", Experience: "some-experience", Status: registration.StatusApproved,
			CreatedAt: created, UpdatedAt: created,
		},
	}
	msgs := []message.Message{
		{ID: "7", Name: "John Doe", Email: "john@email.com", Subject: "Group lessons inquiry", Message: "Hi", CreatedAt: created},
		{ID: "6", Name: "Mary Smith", Email: "mary@email.com", Subject: "Pricing information", Message: "Hello", IsRead: true, CreatedAt: created},
	}
	return regs, msgs
}

func newLoaded(t *testing.T, store *fakeStore) (*Dashboard, *notify.Queue) {
	t.Helper()
	queue := notify.NewQueue(nil)
	d := New(store, queue, nopLogger{})
	d.Load(context.Background())
	return d, queue
}

func TestDashboard_Load(t *testing.T) {
	regs, msgs := fixtures()

	tests := []struct {
		name       string
		store      *fakeStore
		wantRegs   int
		wantMsgs   int
		wantErrors int
	}{
		{name: "both", store: &fakeStore{regs: regs, msgs: msgs}, wantRegs: 3, wantMsgs: 2},
		{name: "registrations fail", store: &fakeStore{regsErr: errors.New("boom"), msgs: msgs}, wantMsgs: 2, wantErrors: 1},
		{name: "messages fail", store: &fakeStore{regs: regs, msgsErr: errors.New("boom")}, wantRegs: 3, wantErrors: 1},
		{
			name:       "both fail",
			store:      &fakeStore{regsErr: errors.New("boom"), msgsErr: errors.New("bang")},
			wantErrors: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, queue := newLoaded(t, tt.store)
			assert.Len(t, d.Registrations(""), tt.wantRegs)
			assert.Len(t, d.Messages(""), tt.wantMsgs)
			assert.Equal(t, tt.wantErrors, queue.Count(notify.LevelError))
		})
	}
}

func TestDashboard_SetStatus_onlyPatchesTarget(t *testing.T) {
	regs, msgs := fixtures()
	d, _ := newLoaded(t, &fakeStore{regs: regs, msgs: msgs})
	before := d.Registrations("")

	require.NoError(t, d.SetStatus(context.Background(), "42", registration.StatusApproved))

	after := d.Registrations("")
	require.Len(t, after, len(before))
	for i := range before {
		if before[i].ID == "42" {
			want := before[i]
			want.Status = registration.StatusApproved
			assert.Equal(t, want, after[i])
			continue
		}
		assert.Equal(t, before[i], after[i])
	}
	assert.False(t, d.InFlight("42"))
}

func TestDashboard_SetStatus_failure(t *testing.T) {
	regs, msgs := fixtures()
	store := &fakeStore{regs: regs, msgs: msgs, updateErr: errors.New("network down")}
	d, queue := newLoaded(t, store)
	before := d.Registrations("")

	err := d.SetStatus(context.Background(), "42", registration.StatusApproved)
	assert.Error(t, err)
	assert.Equal(t, before, d.Registrations(""))
	assert.Equal(t, 1, queue.Count(notify.LevelError))
	assert.Len(t, queue.Pending(), 1)

	// still actionable
	assert.True(t, d.CanSetStatus("42", registration.StatusApproved))
}

func TestDashboard_SetStatus_redundant(t *testing.T) {
	regs, msgs := fixtures()
	store := &fakeStore{regs: regs, msgs: msgs}
	d, _ := newLoaded(t, store)

	tests := []struct {
		name   string
		id     string
		status registration.Status
	}{
		{name: "already approved", id: "41", status: registration.StatusApproved},
		{name: "back to pending", id: "42", status: registration.StatusPending},
		{name: "unknown id", id: "99", status: registration.StatusApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, d.CanSetStatus(tt.id, tt.status))
			assert.Equal(t, ErrNotAllowed, d.SetStatus(context.Background(), tt.id, tt.status))
		})
	}
	assert.Empty(t, store.updates)
}

func TestDashboard_SetStatus_inFlight(t *testing.T) {
	regs, msgs := fixtures()
	store := &fakeStore{regs: regs, msgs: msgs, block: make(chan struct{})}
	d, _ := newLoaded(t, store)

	done := make(chan error)
	go func() { done <- d.SetStatus(context.Background(), "42", registration.StatusRejected) }()

	require.Eventually(t, func() bool { return d.InFlight("42") }, time.Second, time.Millisecond)
	assert.False(t, d.CanSetStatus("42", registration.StatusApproved))

	close(store.block)
	assert.NoError(t, <-done)
	assert.False(t, d.InFlight("42"))
	assert.True(t, d.CanSetStatus("42", registration.StatusApproved))
}

func TestDashboard_Load_keepsMutationsMadeMeanwhile(t *testing.T) {
	regs, msgs := fixtures()
	store := &fakeStore{regs: regs, msgs: msgs}
	d, _ := newLoaded(t, store)

	// the reload answers with the rows as they were before the update
	store.regs, _ = fixtures()
	store.listing = make(chan struct{})
	store.listBlock = make(chan struct{})
	done := make(chan struct{})
	go func() {
		d.Load(context.Background())
		close(done)
	}()
	<-store.listing

	require.NoError(t, d.SetStatus(context.Background(), "42", registration.StatusApproved))
	close(store.listBlock)
	<-done

	for _, reg := range d.Registrations("") {
		if reg.ID == "42" {
			assert.Equal(t, registration.StatusApproved, reg.Status)
		}
	}
	assert.Equal(t, 2, d.Stats().Registrations.Approved, "41 & 42 approved")

	// a reload with no mutation in between lands
	store.listing = nil
	d.Load(context.Background())
	assert.Equal(t, registration.StatusPending, d.Registrations("sarah")[0].Status)
}

func TestDashboard_MarkRead_irreversible(t *testing.T) {
	regs, msgs := fixtures()
	store := &fakeStore{regs: regs, msgs: msgs}
	d, _ := newLoaded(t, store)

	require.True(t, d.CanMarkRead("7"))
	require.NoError(t, d.MarkRead(context.Background(), "7"))

	got := d.Messages("")
	assert.True(t, got[0].IsRead)
	assert.Equal(t, msgs[1], got[1])

	assert.False(t, d.CanMarkRead("7"))
	assert.Equal(t, ErrNotAllowed, d.MarkRead(context.Background(), "7"))
	assert.Equal(t, []string{"7=read"}, store.updates)
	assert.Equal(t, 0, d.Stats().UnreadMessages)
}

func TestDashboard_Close_discardsInFlight(t *testing.T) {
	regs, msgs := fixtures()
	store := &fakeStore{regs: regs, msgs: msgs, block: make(chan struct{})}
	d, queue := newLoaded(t, store)
	before := d.Registrations("")

	done := make(chan error)
	go func() { done <- d.SetStatus(context.Background(), "42", registration.StatusApproved) }()
	require.Eventually(t, func() bool { return d.InFlight("42") }, time.Second, time.Millisecond)

	d.Close()
	close(store.block)
	assert.Equal(t, ErrClosed, <-done)
	assert.Equal(t, before, d.Registrations(""))
	assert.Empty(t, queue.Pending())
}

func TestDashboard_views(t *testing.T) {
	regs, msgs := fixtures()
	d, _ := newLoaded(t, &fakeStore{regs: regs, msgs: msgs})

	assert.Len(t, d.Pending(), 2)
	assert.Len(t, d.Registrations("PIAN"), 1)
	assert.Len(t, d.Messages("pricing"), 1)
	assert.Equal(t, Stats{
		Registrations:  registration.Stats{Total: 3, Pending: 2, Approved: 1},
		Messages:       2,
		UnreadMessages: 1,
	}, d.Stats())

	// filtering never touches the cache
	d.Registrations("nobody")
	assert.Len(t, d.Registrations(""), 3)
}
