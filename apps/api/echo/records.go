package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/harmony/core"
	"github.com/trezcool/harmony/core/message"
	"github.com/trezcool/harmony/core/registration"
)

type registrationApi struct {
	*server
}

func registerRegistrationAPI(g *echo.Group, s *server) {
	api := registrationApi{server: s}

	rg := g.Group("/registrations")
	rg.POST("", api.create) // public
	rg.GET("", api.query, adminMiddleware)
	rg.PATCH("/:id", api.updateStatus, adminMiddleware)
}

func (api registrationApi) create(ctx echo.Context) error {
	var data registration.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	if err := data.Validate(api.Validate); err != nil {
		return core.TranslateErrors(err, api.Translator)
	}

	reg, err := api.RegistrationSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating registration")
	}
	api.metrics.submissions.WithLabelValues("registration").Inc()
	return ctx.JSON(http.StatusCreated, reg)
}

func (api registrationApi) query(ctx echo.Context) error {
	var filter SearchFilter
	filter.Bind(ctx)

	regs, err := api.RegistrationSvc.Query(ctx.Request().Context(), filter.Search)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api registrationApi) updateStatus(ctx echo.Context) error {
	var data registration.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.Validate); err != nil {
		return core.TranslateErrors(err, api.Translator)
	}

	reg, err := api.RegistrationSvc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "updating registration status")
	}
	api.metrics.adminUpdates.WithLabelValues("status").Inc()
	return ctx.JSON(http.StatusOK, reg)
}

type messageApi struct {
	*server
}

func registerMessageAPI(g *echo.Group, s *server) {
	api := messageApi{server: s}

	mg := g.Group("/messages")
	mg.POST("", api.create) // public
	mg.GET("", api.query, adminMiddleware)
	mg.PATCH("/:id", api.markRead, adminMiddleware)
}

func (api messageApi) create(ctx echo.Context) error {
	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.Validate); err != nil {
		return core.TranslateErrors(err, api.Translator)
	}

	msg, err := api.MessageSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating message")
	}
	api.metrics.submissions.WithLabelValues("message").Inc()
	return ctx.JSON(http.StatusCreated, msg)
}

func (api messageApi) query(ctx echo.Context) error {
	var filter SearchFilter
	filter.Bind(ctx)

	msgs, err := api.MessageSvc.Query(ctx.Request().Context(), filter.Search)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api messageApi) markRead(ctx echo.Context) error {
	var data message.UpdateMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMessage")
	}
	if err := data.Validate(api.Validate); err != nil {
		return core.TranslateErrors(err, api.Translator)
	}

	msg, err := api.MessageSvc.MarkRead(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking message as read")
	}
	api.metrics.adminUpdates.WithLabelValues("read").Inc()
	return ctx.JSON(http.StatusOK, msg)
}
