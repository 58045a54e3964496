package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/form"
	"github.com/trezcool/spmb/core/settings"
	"github.com/trezcool/spmb/core/submission"
)

const bodyLimit = "2M"

type (
	Deps struct {
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		SubmissionSvc submission.Service
		FormSvc       form.Service
		SettingsSvc   settings.Service
		LimiterStore  limiter.Store
	}

	Server struct {
		app      *echo.Echo
		addr     string
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps Deps) (*Server, error) {
	rate, err := limiter.NewRateFromFormatted(deps.Conf.Server.SubmitRateLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing submit rate limit %q", deps.Conf.Server.SubmitRateLimit)
	}

	s := &Server{
		app:      echo.New(),
		addr:     deps.Conf.Server.Address,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.app.HideBanner = true
	// the submit rate limit is keyed on the client IP
	if deps.Conf.Server.TrustProxy {
		s.app.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		s.app.IPExtractor = echo.ExtractIPDirect()
	}
	s.app.Server.ReadTimeout = deps.Conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = deps.Conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(deps.Conf.Debug || deps.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{deps.Conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.app.Use(middleware.BodyLimit(bodyLimit))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = deps.Conf.Debug

	s.app.GET("/", home(deps.Conf))
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.app.Group("/api")
	jwt := jwtMiddleware(deps.Conf)
	rateLimit := rateLimitMiddleware(limiter.New(deps.LimiterStore, rate))

	registerFormAPI(api, jwt, deps)
	registerSubmissionAPI(api, jwt, rateLimit, deps)
	registerSettingsAPI(api, jwt, deps)

	return s, nil
}

// Start listens on the configured address; listener failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+conf.AppName+" API!")
	}
}
