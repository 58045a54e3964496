package echoapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/spmb/core/submission"
)

type submissionApi struct {
	svc      submission.Service
	validate *validator.Validate
}

func registerSubmissionAPI(g *echo.Group, jwt, rateLimit echo.MiddlewareFunc, deps Deps) {
	api := submissionApi{
		svc:      deps.SubmissionSvc,
		validate: deps.Validate,
	}

	fg := g.Group("/forms")

	// un-authed endpoints
	fg.POST("/submit", api.submit, rateLimit)
	fg.GET("/status/:registrationNumber", api.status, rateLimit)

	// admin endpoints
	sg := fg.Group("/submissions", jwt, adminMiddleware)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *submissionApi) submit(ctx echo.Context) error {
	req := ctx.Request()
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return errors.Wrap(err, "reading request body")
	}
	req.Body = io.NopCloser(bytes.NewReader(raw))

	var data submission.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	receipt, err := api.svc.Submit(req.Context(), data, raw)
	if err != nil {
		return errors.Wrap(err, "submitting form")
	}
	return ctx.JSON(http.StatusCreated, receipt)
}

func (api *submissionApi) status(ctx echo.Context) error {
	data := StatusRequest{RegistrationNumber: ctx.Param("registrationNumber")}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.GetByNumber(ctx.Request().Context(), data.RegistrationNumber)
	if err != nil {
		return errors.Wrap(err, "getting submission status")
	}
	return ctx.JSON(http.StatusOK, StatusResponse{
		RegistrationNumber: sub.RegistrationNumber,
		FullName:           sub.FullName,
		Status:             sub.Status,
		SubmittedAt:        sub.CreatedAt,
		ReviewedAt:         sub.ReviewedAt,
	})
}

func (api *submissionApi) query(ctx echo.Context) error {
	filter := new(submission.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, submission.OrderingFields); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	subs, err := api.svc.Query(reqCtx, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	stats, err := api.svc.Stats(reqCtx)
	if err != nil {
		return errors.Wrap(err, "counting submissions")
	}
	return ctx.JSON(http.StatusOK, QueryResponse{Submissions: subs, Stats: stats})
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	sub, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) update(ctx echo.Context) error {
	var data submission.UpdateSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "submission deleted"})
}

type (
	StatusRequest struct {
		RegistrationNumber string `json:"registrationNumber" validate:"regnum"`
	}

	// StatusResponse is what applicants may see of their submission.
	StatusResponse struct {
		RegistrationNumber string     `json:"registrationNumber"`
		FullName           string     `json:"namaLengkap"`
		Status             string     `json:"status"`
		SubmittedAt        time.Time  `json:"submittedAt"`
		ReviewedAt         *time.Time `json:"reviewedAt"`
	}

	QueryResponse struct {
		Submissions []submission.Submission `json:"submissions"`
		Stats       submission.Stats        `json:"stats"`
	}
)

func (sr *StatusRequest) Validate(validate *validator.Validate) error {
	sr.RegistrationNumber = strings.ToUpper(strings.TrimSpace(sr.RegistrationNumber))
	return validate.Struct(sr)
}
