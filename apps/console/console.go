package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/harmony/client/api"
	"github.com/trezcool/harmony/client/auth"
	"github.com/trezcool/harmony/client/dashboard"
	"github.com/trezcool/harmony/client/forms"
	"github.com/trezcool/harmony/client/guard"
	"github.com/trezcool/harmony/client/notify"
	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/registration"
)

var (
	errQuit          = errors.New("quit")
	errNotSignedIn   = errors.New("sign in to access the dashboard")
	errAmbiguousID   = errors.New("ambiguous id")
	errUnknownRecord = errors.New("no such record")
)

const usage = `Commands:
  goto ROUTE              visit / , /auth or /admin
  login EMAIL             sign in; the password is prompted
  logout                  sign out
  list [SEARCH]           list registrations, filtered by student name or instrument
  pending                 list pending registrations
  messages [SEARCH]       list contact messages, filtered by name or subject
  approve ID | reject ID  decide a registration (an unambiguous id prefix is enough)
  read ID                 mark a message as read
  register                fill in the registration form
  contact                 fill in the contact form
  stats                   dashboard counters
  help                    this text
  quit`

// syncWriter serializes writes from the REPL & the gate listeners.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

type consoleDeps struct {
	Client       *api.Client
	Forms        forms.Deps // Submitter & Notifier are set by the console
	Logger       core.Logger
	In           io.Reader
	Out          io.Writer
	ReadPassword func() (string, error) // nil reads the next input line
}

type console struct {
	client       *api.Client
	logger       core.Logger
	in           *bufio.Scanner
	out          io.Writer
	readPassword func() (string, error)

	gate    *auth.Gate
	router  *guard.Router
	queue   *notify.Queue
	dash    *dashboard.Dashboard
	regForm *forms.RegistrationForm
	msgForm *forms.ContactForm
}

func newConsole(deps consoleDeps) *console {
	c := &console{
		client:       deps.Client,
		logger:       deps.Logger,
		in:           bufio.NewScanner(deps.In),
		out:          &syncWriter{w: deps.Out},
		readPassword: deps.ReadPassword,
	}
	if c.readPassword == nil {
		c.readPassword = func() (string, error) { return c.readLine() }
	}

	c.queue = notify.NewQueue(func(n notify.Notification) {
		if n.Message == "" {
			c.printf("[%s] %s\n", n.Level, n.Title)
			return
		}
		c.printf("[%s] %s: %s\n", n.Level, n.Title, n.Message)
	})
	c.dash = dashboard.New(c.client, c.queue, c.logger)

	formDeps := deps.Forms
	formDeps.Submitter = c.client
	formDeps.Notifier = c.queue
	formDeps.Logger = c.logger
	c.regForm = forms.NewRegistrationForm(formDeps)
	c.msgForm = forms.NewContactForm(formDeps)

	c.gate = auth.NewGate(c.client, c.logger)
	return c
}

func (c *console) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// run mounts the gate, then executes commands until quit or the end of the input.
func (c *console) run(ctx context.Context) error {
	c.router = guard.NewRouter(c.gate, guard.RouteHome, func(route string, d guard.Decision) {
		c.routeChanged(ctx, route, d)
	})
	defer c.close()

	c.gate.Mount(ctx)
	select {
	case <-c.gate.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	c.printf("Welcome! Type help to list the commands.\n")

	for {
		c.printf("%s> ", c.router.Current())
		line, err := c.readLine()
		if err == io.EOF {
			c.printf("\n")
			return nil
		}
		if err != nil {
			return err
		}
		if err = c.exec(ctx, line); err == errQuit {
			return nil
		} else if err != nil {
			c.printf("error: %v\n", err)
		}
		c.queue.Drain()
	}
}

func (c *console) close() {
	c.dash.Close()
	c.router.Close()
	c.gate.Close()
}

func (c *console) readLine() (string, error) {
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *console) routeChanged(ctx context.Context, route string, d guard.Decision) {
	switch d.Action {
	case guard.Loading:
		c.printf("%s: checking session...\n", route)
	case guard.Render:
		if route == guard.RouteAdmin {
			c.dash.Load(ctx)
			if usr := c.gate.Snapshot().User; usr != nil {
				c.printf("Signed in as %s <%s>\n", usr.Name, usr.Email)
			}
			c.printStats()
		}
	}
}

func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))

	switch cmd {
	case "help":
		c.printf("%s\n", usage)
	case "quit", "exit":
		return errQuit
	case "goto":
		if len(args) != 1 {
			return errors.New("usage: goto ROUTE")
		}
		c.router.Navigate(args[0])
	case "login":
		if len(args) != 1 {
			return errors.New("usage: login EMAIL")
		}
		return c.login(ctx, args[0])
	case "logout":
		return c.logout(ctx)
	case "list":
		return c.listRegistrations(rest, false)
	case "pending":
		return c.listRegistrations("", true)
	case "messages":
		return c.listMessages(rest)
	case "approve", "reject":
		if len(args) != 1 {
			return errors.Errorf("usage: %s ID", cmd)
		}
		status := registration.StatusApproved
		if cmd == "reject" {
			status = registration.StatusRejected
		}
		return c.setStatus(ctx, args[0], status)
	case "read":
		if len(args) != 1 {
			return errors.New("usage: read ID")
		}
		return c.markRead(ctx, args[0])
	case "stats":
		if err := c.requireDashboard(); err != nil {
			return err
		}
		c.printStats()
	case "register":
		return c.fill(ctx, forms.RegistrationFields, c.regForm.Set, c.regForm.Submit, c.regForm.Errors)
	case "contact":
		return c.fill(ctx, forms.ContactFields, c.msgForm.Set, c.msgForm.Submit, c.msgForm.Errors)
	default:
		return errors.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (c *console) login(ctx context.Context, email string) error {
	if c.router.Current() != guard.RouteAuth {
		c.router.Navigate(guard.RouteAuth)
	}
	if c.router.Current() != guard.RouteAuth {
		return errors.New("already signed in")
	}

	c.printf("Password: ")
	pwd, err := c.readPassword()
	c.printf("\n")
	if err != nil {
		return errors.Wrap(err, "reading password")
	}
	if email == "" || pwd == "" {
		return errors.New("please enter your email and password")
	}
	_, err = c.client.SignIn(ctx, email, pwd)
	switch {
	case api.IsStatus(err, http.StatusForbidden):
		return errors.New("this account has been deactivated")
	case api.IsStatus(err, http.StatusBadRequest):
		return errors.New("invalid email or password")
	}
	return err
}

func (c *console) logout(ctx context.Context) error {
	if !c.gate.Snapshot().IsAuthenticated {
		return errors.New("not signed in")
	}
	err := c.gate.SignOut(ctx)
	c.printf("Signed out\n")
	return err
}

func (c *console) requireDashboard() error {
	if c.router.Current() != guard.RouteAdmin || c.router.Decision().Action != guard.Render {
		return errNotSignedIn
	}
	return nil
}

func (c *console) listRegistrations(search string, pendingOnly bool) error {
	if err := c.requireDashboard(); err != nil {
		return err
	}
	regs := c.dash.Registrations(search)
	if pendingOnly {
		regs = c.dash.Pending()
	}
	if len(regs) == 0 {
		c.printf("No registrations found\n")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTUDENT\tAGE\tINSTRUMENT\tLEVEL\tSTATUS\tSUBMITTED")
	for _, reg := range regs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			shortID(reg.ID), reg.StudentName, reg.Age, reg.InstrumentLabel(), reg.ExperienceLabel(),
			reg.Status, reg.CreatedAt.Format("2006-01-02"),
		)
	}
	return tw.Flush()
}

func (c *console) listMessages(search string) error {
	if err := c.requireDashboard(); err != nil {
		return err
	}
	msgs := c.dash.Messages(search)
	if len(msgs) == 0 {
		c.printf("No messages found\n")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tFROM\tSUBJECT\tREAD\tRECEIVED")
	for _, msg := range msgs {
		read := "no"
		if msg.IsRead {
			read = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s <%s>\t%s\t%s\t%s\n",
			shortID(msg.ID), msg.Name, msg.Email, msg.Subject, read, msg.CreatedAt.Format("2006-01-02"),
		)
	}
	return tw.Flush()
}

func (c *console) printStats() {
	s := c.dash.Stats()
	c.printf("Registrations: %d total, %d pending, %d approved, %d rejected\n",
		s.Registrations.Total, s.Registrations.Pending, s.Registrations.Approved, s.Registrations.Rejected)
	c.printf("Messages: %d total, %d unread\n", s.Messages, s.UnreadMessages)
}

func (c *console) setStatus(ctx context.Context, prefix string, status registration.Status) error {
	if err := c.requireDashboard(); err != nil {
		return err
	}
	regs := c.dash.Registrations("")
	ids := make([]string, 0, len(regs))
	for _, reg := range regs {
		ids = append(ids, reg.ID)
	}
	id, err := resolveID(prefix, ids)
	if err != nil {
		return err
	}
	if !c.dash.CanSetStatus(id, status) {
		return errors.Errorf("registration is already %s", status)
	}
	return notified(c.dash.SetStatus(ctx, id, status))
}

func (c *console) markRead(ctx context.Context, prefix string) error {
	if err := c.requireDashboard(); err != nil {
		return err
	}
	msgs := c.dash.Messages("")
	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		ids = append(ids, msg.ID)
	}
	id, err := resolveID(prefix, ids)
	if err != nil {
		return err
	}
	if !c.dash.CanMarkRead(id) {
		return errors.New("message is already read")
	}
	return notified(c.dash.MarkRead(ctx, id))
}

// notified drops the store failures the dashboard already notified.
func notified(err error) error {
	if err == nil || err == dashboard.ErrClosed || err == dashboard.ErrNotAllowed {
		return err
	}
	return nil
}

// fill prompts every field of a form, then submits it.
func (c *console) fill(
	ctx context.Context,
	fields []forms.Field,
	set func(field, value string) error,
	submit func(ctx context.Context) error,
	errs func() map[string]string,
) error {
	for _, f := range fields {
		prompt := f.Label
		if len(f.Options) > 0 {
			opts := make([]string, 0, len(f.Options))
			for _, opt := range f.Options {
				opts = append(opts, opt.Value)
			}
			prompt += " [" + strings.Join(opts, "|") + "]"
		}
		if !f.Required {
			prompt += " (optional)"
		}
		c.printf("%s: ", prompt)

		value, err := c.readLine()
		if err != nil {
			return errors.Wrap(err, "reading "+f.Name)
		}
		if err = set(f.Name, value); err != nil {
			c.printf("  %s %v\n", f.Name, err)
		}
	}

	err := submit(ctx)
	if core.IsValidationError(err) {
		fieldErrs := errs()
		names := make([]string, 0, len(fieldErrs))
		for name := range fieldErrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c.printf("  %s: %s\n", name, fieldErrs[name])
		}
		return nil
	}
	if err == forms.ErrSubmitting {
		return err
	}
	// other failures are notified
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveID returns the only id starting with prefix.
func resolveID(prefix string, ids []string) (string, error) {
	var found string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			if found != "" {
				return "", errors.Wrap(errAmbiguousID, prefix)
			}
			found = id
		}
	}
	if found == "" {
		return "", errors.Wrap(errUnknownRecord, prefix)
	}
	return found, nil
}
