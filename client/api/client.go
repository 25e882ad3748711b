// Package api is the client of the JSON API. It keeps the current session locally
// & reports its changes to subscribers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/harmony/client/auth"
	"github.com/trezcool/harmony/client/dashboard"
	"github.com/trezcool/harmony/client/forms"
	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/message"
	"github.com/trezcool/harmony/core/registration"
	"github.com/trezcool/harmony/core/session"
)

// Error is a non 2xx response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsStatus reports whether err is a response with the given status code.
func IsStatus(err error, code int) bool {
	apiErr, ok := errors.Cause(err).(*Error)
	return ok && apiErr.StatusCode == code
}

type subscriber struct {
	id int
	fn func(session.Event)
}

type Client struct {
	baseURL string
	rest    *rest.Client
	logger  core.Logger

	mu     sync.Mutex
	sess   *session.Session
	subs   []subscriber
	nextID int
}

var (
	_ auth.SessionStore     = (*Client)(nil)
	_ dashboard.RecordStore = (*Client)(nil)
	_ forms.Submitter       = (*Client)(nil)
)

// New returns a client of the API served at baseURL.
func New(baseURL string, httpClient *http.Client, logger core.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: httpClient},
		logger:  logger,
	}
}

func NewFromConfig(conf *core.Config, logger core.Logger) *Client {
	return New(conf.Client.BaseURL, &http.Client{Timeout: conf.Client.Timeout}, logger)
}

// Session returns the session kept locally, if any.
func (c *Client) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.Token
}

// do sends a request & decodes the response body into out, if not nil.
func (c *Client) do(ctx context.Context, method rest.Method, path string, query map[string]string, in, out interface{}) error {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: query,
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}
	if token := c.token(); token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if out == nil || resp.Body == "" {
		return nil
	}
	return errors.Wrapf(json.Unmarshal([]byte(resp.Body), out), "decoding %s %s", method, path)
}

// responseError turns an error response into an Error, or a core.ValidationError for field errors.
func responseError(resp *rest.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode, Message: resp.Body}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		return apiErr
	}

	var fields map[string]string
	if resp.StatusCode == http.StatusBadRequest && json.Unmarshal([]byte(resp.Body), &fields) == nil && len(fields) > 0 {
		flds := make([]core.FieldError, 0, len(fields))
		for name, msg := range fields {
			flds = append(flds, core.FieldError{Field: name, Error: msg})
		}
		return core.NewValidationError(apiErr, flds...)
	}
	return apiErr
}

// Session store

type subscription struct {
	c  *Client
	id int
}

func (s subscription) Unsubscribe() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	for i, sub := range s.c.subs {
		if sub.id == s.id {
			s.c.subs = append(s.c.subs[:i:i], s.c.subs[i+1:]...)
			return
		}
	}
}

// OnSessionChange subscribes fn, which is called right away with an INITIAL_SESSION event.
func (c *Client) OnSessionChange(fn func(session.Event)) auth.Subscription {
	c.mu.Lock()
	c.nextID++
	sub := subscriber{id: c.nextID, fn: fn}
	c.subs = append(c.subs, sub)
	sess := c.sess
	c.mu.Unlock()

	fn(session.Event{Kind: session.EventInitialSession, Session: sess})
	return subscription{c: c, id: sub.id}
}

// setSession replaces the local session & notifies subscribers, in subscription order.
func (c *Client) setSession(kind session.EventKind, sess *session.Session) {
	c.mu.Lock()
	c.sess = sess
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	ev := session.Event{Kind: kind, Session: sess}
	for _, sub := range subs {
		sub.fn(ev)
	}
}

// GetSession checks the local session against the server. A session the server
// does not know anymore is dropped & reported as signed out.
func (c *Client) GetSession(ctx context.Context) (*session.Session, error) {
	if c.token() == "" {
		return nil, nil
	}
	var sess *session.Session
	if err := c.do(ctx, rest.Get, "/v1/auth/session", nil, nil, &sess); err != nil {
		return nil, errors.Wrap(err, "getting session")
	}
	if !session.HasUser(sess) {
		c.setSession(session.EventSignedOut, nil)
		return nil, nil
	}
	return sess, nil
}

func (c *Client) SignIn(ctx context.Context, email, pwd string) (*session.Session, error) {
	var resp struct {
		Token   string           `json:"token"`
		Session *session.Session `json:"session"`
	}
	in := map[string]string{"email": email, "password": pwd}
	if err := c.do(ctx, rest.Post, "/v1/auth/login", nil, in, &resp); err != nil {
		return nil, errors.Wrap(err, "signing in")
	}
	c.setSession(session.EventSignedIn, resp.Session)
	return resp.Session, nil
}

// SignOut revokes the session on the server. The local session is dropped even if that fails.
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if c.token() != "" {
		err = c.do(ctx, rest.Post, "/v1/auth/logout", nil, nil, nil)
	}
	c.setSession(session.EventSignedOut, nil)
	return errors.Wrap(err, "signing out")
}

// Refresh swaps the current token for a new one.
func (c *Client) Refresh(ctx context.Context) (*session.Session, error) {
	var resp struct {
		Session *session.Session `json:"session"`
	}
	if err := c.do(ctx, rest.Post, "/v1/auth/token-refresh", nil, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "refreshing token")
	}
	c.setSession(session.EventTokenRefreshed, resp.Session)
	return resp.Session, nil
}

// Record store

func (c *Client) ListRegistrations(ctx context.Context) ([]registration.Registration, error) {
	return c.QueryRegistrations(ctx, "")
}

// QueryRegistrations returns the registrations matching search, newest first.
func (c *Client) QueryRegistrations(ctx context.Context, search string) ([]registration.Registration, error) {
	var regs []registration.Registration
	err := c.do(ctx, rest.Get, "/v1/registrations", searchQuery(search), nil, &regs)
	return regs, errors.Wrap(err, "listing registrations")
}

func (c *Client) ListMessages(ctx context.Context) ([]message.Message, error) {
	var msgs []message.Message
	err := c.do(ctx, rest.Get, "/v1/messages", nil, nil, &msgs)
	return msgs, errors.Wrap(err, "listing messages")
}

func (c *Client) UpdateRegistrationStatus(ctx context.Context, id string, status registration.Status) error {
	in := registration.UpdateStatus{Status: status}
	return errors.Wrap(c.do(ctx, rest.Patch, "/v1/registrations/"+id, nil, in, nil), "updating registration status")
}

func (c *Client) MarkMessageRead(ctx context.Context, id string) error {
	read := true
	in := message.UpdateMessage{IsRead: &read}
	return errors.Wrap(c.do(ctx, rest.Patch, "/v1/messages/"+id, nil, in, nil), "marking message as read")
}

// Submitter

func (c *Client) SubmitRegistration(ctx context.Context, nr registration.NewRegistration) error {
	return errors.Wrap(c.do(ctx, rest.Post, "/v1/registrations", nil, nr, nil), "submitting registration")
}

func (c *Client) SubmitMessage(ctx context.Context, nm message.NewMessage) error {
	return errors.Wrap(c.do(ctx, rest.Post, "/v1/messages", nil, nm, nil), "submitting message")
}

func searchQuery(search string) map[string]string {
	if search = strings.TrimSpace(search); search == "" {
		return nil
	}
	return map[string]string{"search": search}
}
