package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/form"
)

type formApi struct {
	svc      form.Service
	validate *validator.Validate
}

func registerFormAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := formApi{
		svc:      deps.FormSvc,
		validate: deps.Validate,
	}

	fg := g.Group("/forms")

	// un-authed endpoints
	fg.GET("/active", api.active)

	// admin endpoints
	cg := fg.Group("/configurations", jwt, adminMiddleware)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *formApi) active(ctx echo.Context) error {
	schoolID := core.CleanString(ctx.QueryParam("schoolId"))
	af, err := api.svc.GetActive(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "getting active form")
	}
	return ctx.JSON(http.StatusOK, af)
}

func (api *formApi) query(ctx echo.Context) error {
	schoolID := core.CleanString(ctx.QueryParam("schoolId"))
	cfgs, err := api.svc.Query(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "querying configurations")
	}
	if cfgs == nil {
		cfgs = []form.Configuration{}
	}
	return ctx.JSON(http.StatusOK, cfgs)
}

func (api *formApi) create(ctx echo.Context) error {
	var data form.NewConfiguration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConfiguration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cfg, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating configuration")
	}
	return ctx.JSON(http.StatusCreated, cfg)
}

func (api *formApi) retrieve(ctx echo.Context) error {
	cfg, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting configuration")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *formApi) update(ctx echo.Context) error {
	var data form.UpdateConfiguration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateConfiguration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cfg, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating configuration")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *formApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting configuration")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "form configuration deleted"})
}
