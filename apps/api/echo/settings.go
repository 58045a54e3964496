package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/settings"
)

type settingsApi struct {
	svc      settings.Service
	validate *validator.Validate
}

func registerSettingsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := settingsApi{
		svc:      deps.SettingsSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/settings", jwt, adminMiddleware)
	sg.GET("", api.query)
	sg.GET("/:provider", api.retrieve)
	sg.PUT("/:provider", api.update)
}

// Handlers

func (api *settingsApi) query(ctx echo.Context) error {
	all, err := api.svc.LoadAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}
	masked := make([]settings.Settings, 0, len(all))
	for _, s := range all {
		masked = append(masked, settings.Masked(s))
	}
	return ctx.JSON(http.StatusOK, masked)
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Load(ctx.Request().Context(), core.CleanString(ctx.Param("provider"), true /* lower */))
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}
	return ctx.JSON(http.StatusOK, settings.Masked(s))
}

func (api *settingsApi) update(ctx echo.Context) error {
	var data settings.Patch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Patch")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	provider := core.CleanString(ctx.Param("provider"), true /* lower */)
	s, err := api.svc.Save(ctx.Request().Context(), provider, data, contextUsername(ctx))
	if err != nil {
		return errors.Wrap(err, "saving settings")
	}
	return ctx.JSON(http.StatusOK, settings.Masked(s))
}
