package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/message"
	"github.com/trezcool/harmony/core/registration"
	"github.com/trezcool/harmony/core/session"
	"github.com/trezcool/harmony/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var body interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			body = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			body = fldErrs
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				body = origErr.FieldMap()
			} else {
				body = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if herr, ok := domainHTTPError(origErr); ok {
				code = herr.Code
				body = herr.Message
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			body = msg

			logger.Error(msg, errors.Wrap(err, msg), contextUser(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			body = err.Error()
		}
		if m, ok := body.(string); ok {
			body = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// domainHTTPError maps the sentinel errors of the core packages.
func domainHTTPError(err error) (*echo.HTTPError, bool) {
	switch err {
	case registration.ErrNotFound, message.ErrNotFound:
		return errHttpNotFound, true
	case registration.ErrInvalidStatus:
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"status": err.Error()}), true
	case user.ErrAuthenticationFailed:
		return errAuthenticationFailed, true
	case user.ErrAccountDeactivated:
		return errAccountDeactivated, true
	case session.ErrNoSession:
		return errUnauthorized, true
	case session.ErrRefreshExpired:
		return errRefreshExpired, true
	}
	return nil, false
}
