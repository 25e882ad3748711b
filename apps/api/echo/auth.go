package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/session"
)

const (
	contextSessionKey = "session"
	bearerPrefix      = "Bearer "
)

type (
	LoginRequest struct {
		Email    string `json:"email" form:"email" validate:"required,email"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string           `json:"token"`
		Session *session.Session `json:"session"`
	}
)

func (lr *LoginRequest) Validate(s *server) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return s.Validate.Struct(lr)
}

// bearerSession resolves the session of the bearer token, if any.
// Requests without a valid token go through anonymously.
func (s *server) bearerSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token := bearerToken(ctx)
		if token == "" {
			return next(ctx)
		}
		sess, err := s.SessionSvc.Resolve(ctx.Request().Context(), token)
		if err != nil {
			if errors.Cause(err) == session.ErrNoSession {
				return next(ctx)
			}
			return errors.Wrap(err, "resolving session")
		}
		ctx.Set(contextSessionKey, sess)
		return next(ctx)
	}
}

// adminMiddleware rejects requests without a session. Every signed in user is an admin.
func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if contextSession(ctx) == nil {
			return errUnauthorized
		}
		return next(ctx)
	}
}

func bearerToken(ctx echo.Context) string {
	hdr := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(hdr, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(hdr[len(bearerPrefix):])
}

func contextSession(ctx echo.Context) *session.Session {
	sess, _ := ctx.Get(contextSessionKey).(*session.Session)
	return sess
}

func contextUser(ctx echo.Context) *session.User {
	if sess := contextSession(ctx); sess != nil {
		return sess.User
	}
	return nil
}

type authApi struct {
	*server
}

func registerAuthAPI(g *echo.Group, s *server) {
	api := authApi{server: s}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.GET("/session", api.session)
	ag.POST("/logout", api.logout)
	ag.POST("/token-refresh", api.refreshToken, adminMiddleware)
}

func (api authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.server); err != nil {
		return err
	}

	sess, err := api.SessionSvc.SignIn(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "signing in")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: sess.Token, Session: sess})
}

// session returns the current session, or null.
func (api authApi) session(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextSession(ctx))
}

func (api authApi) logout(ctx echo.Context) error {
	if token := bearerToken(ctx); token != "" {
		if err := api.SessionSvc.SignOut(ctx.Request().Context(), token); err != nil {
			return errors.Wrap(err, "signing out")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api authApi) refreshToken(ctx echo.Context) error {
	sess, err := api.SessionSvc.Refresh(ctx.Request().Context(), contextSession(ctx).Token)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: sess.Token, Session: sess})
}
