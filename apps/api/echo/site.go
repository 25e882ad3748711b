package echoapi

import (
	"encoding/gob"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/harmony/client/auth"
	"github.com/trezcool/harmony/client/guard"
	"github.com/trezcool/harmony/client/notify"
	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/message"
	"github.com/trezcool/harmony/core/registration"
	"github.com/trezcool/harmony/core/session"
	"github.com/trezcool/harmony/core/user"
)

const cookieTokenKey = "token"

type (
	// flash is a one-time notification carried by the cookie to the next page.
	flash struct {
		Level   notify.Level
		Title   string
		Message string
	}

	pageData struct {
		AppName string
		Route   string
		User    *session.User
		Flashes []flash
	}

	homePage struct {
		pageData
		Content          SiteContent
		Instruments      []registration.Option
		ExperienceLevels []registration.Option
		Registration     registration.NewRegistration
		RegErrors        map[string]string
		Message          message.NewMessage
		MsgErrors        map[string]string
	}

	authPage struct {
		pageData
		Email string
		Error string
	}

	adminPage struct {
		pageData
		Query         string
		View          string
		Stats         registration.Stats
		Registrations []registration.Registration
		RegError      string
		Messages      []message.Message
		Unread        int
		MsgError      string
	}
)

func init() {
	gob.Register(flash{})
}

func newCookieStore(conf *core.Config) sessions.Store {
	store := sessions.NewCookieStore([]byte(conf.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(conf.Server.JWTExpirationDelta.Seconds()),
		HttpOnly: true,
		Secure:   !(conf.Debug || conf.TestMode),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

type site struct {
	*server
}

func registerSite(e *echo.Echo, s *server) {
	st := site{server: s}

	e.GET(guard.RouteHome, st.home)
	e.POST("/register", st.register)
	e.POST("/contact", st.contact)

	e.GET(guard.RouteAuth, st.signInPage)
	e.POST(guard.RouteAuth, st.signIn)

	e.GET(guard.RouteAdmin, st.dashboard)
	e.POST("/admin/registrations/:id/status", st.setStatus)
	e.POST("/admin/messages/:id/read", st.markRead)
	e.POST("/admin/logout", st.signOut)
}

func (st site) cookie(ctx echo.Context) *sessions.Session {
	// a cookie that cannot be decoded (eg. after a key rotation) is replaced by a new one
	cs, _ := st.cookies.Get(ctx.Request(), st.Conf.Server.CookieName)
	return cs
}

// state resolves the session of the cookie. Any failure counts as Anonymous.
func (st site) state(ctx echo.Context, cs *sessions.Session) (auth.State, *session.Session) {
	token, _ := cs.Values[cookieTokenKey].(string)
	if token == "" {
		return auth.Anonymous, nil
	}
	sess, err := st.SessionSvc.Resolve(ctx.Request().Context(), token)
	if err != nil {
		if errors.Cause(err) != session.ErrNoSession {
			st.Logger.Error(fmt.Sprintf("resolving cookie session: %v", err), err)
		}
		return auth.Anonymous, nil
	}
	return auth.Authenticated, sess
}

func (st site) addFlash(ctx echo.Context, cs *sessions.Session, level notify.Level, title, msg string) {
	cs.AddFlash(flash{Level: level, Title: title, Message: msg})
	st.save(ctx, cs)
}

func (st site) save(ctx echo.Context, cs *sessions.Session) {
	if err := cs.Save(ctx.Request(), ctx.Response()); err != nil {
		st.Logger.Error(fmt.Sprintf("saving cookie: %v", err), err)
	}
}

func (st site) page(ctx echo.Context, cs *sessions.Session, route string, sess *session.Session) pageData {
	pd := pageData{AppName: st.Conf.AppName, Route: route}
	if sess != nil {
		pd.User = sess.User
	}
	if raw := cs.Flashes(); len(raw) > 0 {
		for _, f := range raw {
			if fl, ok := f.(flash); ok {
				pd.Flashes = append(pd.Flashes, fl)
			}
		}
		st.save(ctx, cs)
	}
	return pd
}

// guard applies the policy of route. It returns false when the request was redirected.
func (st site) guard(ctx echo.Context, route string, state auth.State) (bool, error) {
	d := guard.PolicyFor(route)(state)
	if d.Action == guard.Redirect {
		return false, ctx.Redirect(http.StatusSeeOther, d.Target)
	}
	return true, nil
}

// Public pages

func (st site) homePage(ctx echo.Context, cs *sessions.Session) homePage {
	_, sess := st.state(ctx, cs)
	return homePage{
		pageData:         st.page(ctx, cs, guard.RouteHome, sess),
		Content:          siteContent,
		Instruments:      registration.Instruments,
		ExperienceLevels: registration.ExperienceLevels,
	}
}

func (st site) home(ctx echo.Context) error {
	cs := st.cookie(ctx)
	return ctx.Render(http.StatusOK, "home", st.homePage(ctx, cs))
}

func (st site) register(ctx echo.Context) error {
	cs := st.cookie(ctx)

	var data registration.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	if err := data.Validate(st.Validate); err != nil {
		page := st.homePage(ctx, cs)
		page.Registration = data
		page.RegErrors = fieldErrors(core.TranslateErrors(err, st.Translator))
		page.Flashes = append(page.Flashes, flash{Level: notify.LevelError, Title: "Please check the registration form"})
		return ctx.Render(http.StatusBadRequest, "home", page)
	}

	if _, err := st.RegistrationSvc.Create(ctx.Request().Context(), data); err != nil {
		st.Logger.Error(fmt.Sprintf("creating registration: %v", err), err)
		st.addFlash(ctx, cs, notify.LevelError, "Registration failed", "Please try again later.")
		return ctx.Redirect(http.StatusSeeOther, "/#register")
	}
	st.metrics.submissions.WithLabelValues("registration").Inc()
	st.addFlash(ctx, cs, notify.LevelSuccess, "Registration Submitted!",
		"Thank you for registering! We'll contact you within 24 hours to schedule your first lesson.")
	return ctx.Redirect(http.StatusSeeOther, "/#register")
}

func (st site) contact(ctx echo.Context) error {
	cs := st.cookie(ctx)

	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(st.Validate); err != nil {
		page := st.homePage(ctx, cs)
		page.Message = data
		page.MsgErrors = fieldErrors(core.TranslateErrors(err, st.Translator))
		page.Flashes = append(page.Flashes, flash{Level: notify.LevelError, Title: "Please check the contact form"})
		return ctx.Render(http.StatusBadRequest, "home", page)
	}

	if _, err := st.MessageSvc.Create(ctx.Request().Context(), data); err != nil {
		st.Logger.Error(fmt.Sprintf("creating message: %v", err), err)
		st.addFlash(ctx, cs, notify.LevelError, "Message not sent", "Please try again later.")
		return ctx.Redirect(http.StatusSeeOther, "/#contact")
	}
	st.metrics.submissions.WithLabelValues("message").Inc()
	st.addFlash(ctx, cs, notify.LevelSuccess, "Message Sent!", "We'll get back to you as soon as possible.")
	return ctx.Redirect(http.StatusSeeOther, "/#contact")
}

// Sign in

func (st site) signInPage(ctx echo.Context) error {
	cs := st.cookie(ctx)
	state, sess := st.state(ctx, cs)
	if ok, err := st.guard(ctx, guard.RouteAuth, state); !ok {
		return err
	}
	return ctx.Render(http.StatusOK, "auth", authPage{pageData: st.page(ctx, cs, guard.RouteAuth, sess)})
}

func (st site) signIn(ctx echo.Context) error {
	cs := st.cookie(ctx)
	state, sess := st.state(ctx, cs)
	if ok, err := st.guard(ctx, guard.RouteAuth, state); !ok {
		return err
	}

	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	page := authPage{pageData: st.page(ctx, cs, guard.RouteAuth, sess), Email: data.Email}
	if err := data.Validate(st.server); err != nil {
		page.Error = "Please enter your email and password."
		return ctx.Render(http.StatusBadRequest, "auth", page)
	}

	sess, err := st.SessionSvc.SignIn(ctx.Request().Context(), data.Email, data.Password)
	switch errors.Cause(err) {
	case nil:
	case user.ErrAuthenticationFailed:
		page.Error = "Invalid email or password."
		return ctx.Render(http.StatusBadRequest, "auth", page)
	case user.ErrAccountDeactivated:
		page.Error = "This account has been deactivated."
		return ctx.Render(http.StatusForbidden, "auth", page)
	default:
		return errors.Wrap(err, "signing in")
	}

	cs.Values[cookieTokenKey] = sess.Token
	st.save(ctx, cs)
	return ctx.Redirect(http.StatusSeeOther, guard.RouteAdmin)
}

func (st site) signOut(ctx echo.Context) error {
	cs := st.cookie(ctx)
	if token, _ := cs.Values[cookieTokenKey].(string); token != "" {
		// the cookie is cleared whatever the outcome
		if err := st.SessionSvc.SignOut(ctx.Request().Context(), token); err != nil {
			st.Logger.Error(fmt.Sprintf("signing out: %v", err), err)
		}
	}
	delete(cs.Values, cookieTokenKey)
	st.addFlash(ctx, cs, notify.LevelSuccess, "Signed out", "")
	return ctx.Redirect(http.StatusSeeOther, guard.RouteAuth)
}

// Dashboard

func (st site) dashboard(ctx echo.Context) error {
	cs := st.cookie(ctx)
	state, sess := st.state(ctx, cs)
	if ok, err := st.guard(ctx, guard.RouteAdmin, state); !ok {
		return err
	}

	page := adminPage{
		pageData: st.page(ctx, cs, guard.RouteAdmin, sess),
		Query:    ctx.QueryParam("q"),
		View:     ctx.QueryParam("view"),
	}
	reqCtx := ctx.Request().Context()

	// each collection fails on its own
	if regs, err := st.RegistrationSvc.Query(reqCtx, ""); err != nil {
		st.Logger.Error(fmt.Sprintf("querying registrations: %v", err), err, sess.User)
		page.RegError = "Failed to load registrations"
	} else {
		page.Stats = registration.Count(regs)
		page.Registrations = registration.Filter(regs, page.Query)
		if page.View == "pending" {
			page.Registrations = registration.Pending(page.Registrations)
		}
	}
	if msgs, err := st.MessageSvc.Query(reqCtx, ""); err != nil {
		st.Logger.Error(fmt.Sprintf("querying messages: %v", err), err, sess.User)
		page.MsgError = "Failed to load messages"
	} else {
		page.Unread = message.CountUnread(msgs)
		page.Messages = message.Filter(msgs, page.Query)
	}

	return ctx.Render(http.StatusOK, "admin", page)
}

// dashboardURL returns to the dashboard with the filters of the submitted form.
func dashboardURL(ctx echo.Context) string {
	v := make(url.Values)
	if q := ctx.FormValue("q"); q != "" {
		v.Set("q", q)
	}
	if view := ctx.FormValue("view"); view != "" {
		v.Set("view", view)
	}
	if len(v) == 0 {
		return guard.RouteAdmin
	}
	return guard.RouteAdmin + "?" + v.Encode()
}

func (st site) setStatus(ctx echo.Context) error {
	cs := st.cookie(ctx)
	state, sess := st.state(ctx, cs)
	if ok, err := st.guard(ctx, guard.RouteAdmin, state); !ok {
		return err
	}
	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")

	status := registration.Status(core.CleanString(ctx.FormValue("status"), true /* lower */))
	reg, err := st.RegistrationSvc.Get(reqCtx, id)
	switch {
	case err != nil:
		if errors.Cause(err) != registration.ErrNotFound {
			st.Logger.Error(fmt.Sprintf("getting registration: %v", err), err, sess.User)
		}
		st.addFlash(ctx, cs, notify.LevelError, "Failed to update registration status", "")
	case reg.Status == status:
		// redundant submission: the button was disabled
	default:
		if _, err = st.RegistrationSvc.UpdateStatus(reqCtx, id, status); err != nil {
			if errors.Cause(err) != registration.ErrInvalidStatus {
				st.Logger.Error(fmt.Sprintf("updating registration status: %v", err), err, sess.User)
			}
			st.addFlash(ctx, cs, notify.LevelError, "Failed to update registration status", "")
			break
		}
		st.metrics.adminUpdates.WithLabelValues("status").Inc()
		st.addFlash(ctx, cs, notify.LevelSuccess, "Registration "+string(status), reg.StudentName)
	}
	return ctx.Redirect(http.StatusSeeOther, dashboardURL(ctx))
}

func (st site) markRead(ctx echo.Context) error {
	cs := st.cookie(ctx)
	state, sess := st.state(ctx, cs)
	if ok, err := st.guard(ctx, guard.RouteAdmin, state); !ok {
		return err
	}
	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")

	msg, err := st.MessageSvc.Get(reqCtx, id)
	switch {
	case err != nil:
		if errors.Cause(err) != message.ErrNotFound {
			st.Logger.Error(fmt.Sprintf("getting message: %v", err), err, sess.User)
		}
		st.addFlash(ctx, cs, notify.LevelError, "Failed to mark message as read", "")
	case msg.IsRead:
		// already read
	default:
		if _, err = st.MessageSvc.MarkRead(reqCtx, id); err != nil {
			st.Logger.Error(fmt.Sprintf("marking message as read: %v", err), err, sess.User)
			st.addFlash(ctx, cs, notify.LevelError, "Failed to mark message as read", "")
			break
		}
		st.metrics.adminUpdates.WithLabelValues("read").Inc()
	}
	return ctx.Redirect(http.StatusSeeOther, dashboardURL(ctx))
}

func fieldErrors(err error) map[string]string {
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
		return vErr.FieldMap()
	}
	if err != nil {
		return map[string]string{"": err.Error()}
	}
	return nil
}
