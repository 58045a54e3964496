package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/ulule/limiter/v3"
)

const (
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"
)

// rateLimitMiddleware limits requests per client IP.
func rateLimitMiddleware(lim *limiter.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			lctx, err := lim.Get(ctx.Request().Context(), ctx.RealIP())
			if err != nil {
				return errors.Wrap(err, "checking rate limit")
			}

			h := ctx.Response().Header()
			h.Set(headerRateLimitLimit, strconv.FormatInt(lctx.Limit, 10))
			h.Set(headerRateLimitRemaining, strconv.FormatInt(lctx.Remaining, 10))
			h.Set(headerRateLimitReset, strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
