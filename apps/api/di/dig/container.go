package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/spmb/apps/api/echo"
	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/form"
	"github.com/trezcool/spmb/core/school"
	"github.com/trezcool/spmb/core/settings"
	"github.com/trezcool/spmb/core/submission"
	emailsvc "github.com/trezcool/spmb/services/email"
	logsvc "github.com/trezcool/spmb/services/logger"
	"github.com/trezcool/spmb/storage/database"
	inmemdb "github.com/trezcool/spmb/storage/database/inmem"
	boiledrepos "github.com/trezcool/spmb/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/spmb/storage/database/sqlx"
)

const (
	limiterPrefix  = "spmb:ratelimit"
	demoSchoolName = "Sekolah Demo"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf, "api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf, "db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

// Storage holds the repositories backing the services. Closer releases the underlying store.
type Storage struct {
	dig.Out

	Closer     io.Closer
	School     school.Repository
	Submission submission.Repository
	Form       form.Repository
	Settings   settings.Repository
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.InMemory {
		return newInMemoryStorage(loggerParam.Logger)
	}

	db := newDB(conf, loggerParam)
	return Storage{
		Closer:     db,
		School:     boiledrepos.NewSchoolRepository(db),
		Submission: boiledrepos.NewSubmissionRepository(db),
		Form:       boiledrepos.NewFormRepository(db),
		Settings:   sqlxrepos.NewSettingsRepository(db),
	}
}

// newInMemoryStorage returns in-memory repositories with a demo school, so submissions can be made right away.
func newInMemoryStorage(logger core.Logger) Storage {
	db := inmemdb.Open()
	schRepo := inmemdb.NewSchoolRepository(db)

	sch, err := school.NewService(schRepo).Create(context.Background(), school.NewSchool{Name: demoSchoolName})
	if err != nil {
		logger.Fatal(fmt.Sprintf("seeding in-memory storage: %v", err), err)
	}
	logger.Info(fmt.Sprintf("using in-memory storage, nothing will be persisted; default school %q: %s", sch.Name, sch.ID))

	return Storage{
		Closer:     nopCloser{},
		School:     schRepo,
		Submission: inmemdb.NewSubmissionRepository(db),
		Form:       inmemdb.NewFormRepository(db),
		Settings:   inmemdb.NewSettingsRepository(db),
	}
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sql.DB {
	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidate(translator ut.Translator) *validator.Validate {
	validate := core.NewValidate(translator)
	submission.InitValidators(validate, translator)
	return validate
}

// newLimiterStore returns a Redis store when a Redis URL is configured, an in-memory one otherwise.
func newLimiterStore(conf *core.Config, logger core.Logger) (limiter.Store, error) {
	if conf.Server.RedisURL == "" {
		return memory.NewStore(), nil
	}
	opts, err := redis.ParseURL(conf.Server.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	store, err := sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{Prefix: limiterPrefix})
	if err != nil {
		return nil, errors.Wrap(err, "creating redis limiter store")
	}
	logger.Info("rate limiting submissions through redis")
	return store, nil
}

type serverParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	SubmissionSvc submission.Service
	FormSvc       form.Service
	SettingsSvc   settings.Service
	LimiterStore  limiter.Store
}

func newServer(p serverParams) (*echoapi.Server, error) {
	return echoapi.NewServer(echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		SubmissionSvc: p.SubmissionSvc,
		FormSvc:       p.FormSvc,
		SettingsSvc:   p.SettingsSvc,
		LimiterStore:  p.LimiterStore,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidate))
	must(c.Provide(submission.NewConfigGenerator))
	must(c.Provide(newLimiterStore))

	// services
	must(c.Provide(school.NewService))
	must(c.Provide(submission.NewService))
	must(c.Provide(form.NewService))
	must(c.Provide(settings.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
