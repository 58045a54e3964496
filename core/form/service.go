package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/school"
	appfs "github.com/trezcool/spmb/fs"
)

const defaultSchemaPath = "forms/default_schema.json"

var (
	// errors
	ErrNotFound = core.NewNotFoundError("form configuration")

	defaultForm     ActiveForm
	defaultFormErr  error
	defaultFormInit sync.Once
)

type (
	Repository interface {
		// GetActiveConfiguration returns the most recently updated active Configuration of the school
		// (ties broken by id). It returns ErrNotFound when the school has none.
		GetActiveConfiguration(ctx context.Context, schoolID string, exec ...core.DBExecutor) (Configuration, error)
		QueryConfigurations(ctx context.Context, schoolID string, exec ...core.DBExecutor) ([]Configuration, error)
		GetConfiguration(ctx context.Context, id string, exec ...core.DBExecutor) (Configuration, error)
		CreateConfiguration(ctx context.Context, cfg Configuration, exec ...core.DBExecutor) (Configuration, error)
		UpdateConfiguration(ctx context.Context, cfg Configuration, exec ...core.DBExecutor) (Configuration, error)
		DeleteConfiguration(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		// GetActive returns the form applicants of the school should fill,
		// falling back to the built-in default form.
		GetActive(ctx context.Context, schoolID string) (ActiveForm, error)
		// Query lists the configurations of a school; all configurations when schoolID is empty.
		Query(ctx context.Context, schoolID string) ([]Configuration, error)
		Get(ctx context.Context, id string) (Configuration, error)
		Create(ctx context.Context, nc NewConfiguration) (Configuration, error)
		Update(ctx context.Context, id string, uc UpdateConfiguration) (Configuration, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo      Repository
		schoolSvc school.Service
		logger    core.Logger
		cache     *cache.Cache
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, schoolSvc school.Service, logger core.Logger) Service {
	ttl := conf.Forms.CacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &service{
		repo:      repo,
		schoolSvc: schoolSvc,
		logger:    logger,
		cache:     cache.New(ttl, 2*ttl),
	}
}

// DefaultForm returns the built-in form served when a school has no active configuration.
func DefaultForm() (ActiveForm, error) {
	defaultFormInit.Do(func() {
		data, err := appfs.FS.ReadFile(defaultSchemaPath)
		if err != nil {
			defaultFormErr = errors.Wrap(err, "reading default form schema")
			return
		}
		var meta struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err = json.Unmarshal(data, &meta); err != nil {
			defaultFormErr = errors.Wrap(err, "parsing default form schema")
			return
		}
		defaultForm = ActiveForm{
			Name:        meta.Name,
			Description: meta.Description,
			Schema:      data,
			IsActive:    false,
		}
	})
	return defaultForm, defaultFormErr
}

func (svc *service) GetActive(ctx context.Context, schoolID string) (ActiveForm, error) {
	sch, err := svc.schoolSvc.Resolve(ctx, schoolID)
	if err != nil {
		if core.IsNotFound(err) {
			return DefaultForm()
		}
		return ActiveForm{}, errors.Wrap(err, "resolving school")
	}

	if cached, ok := svc.cache.Get(sch.ID); ok {
		return cached.(ActiveForm), nil
	}

	var af ActiveForm
	cfg, err := svc.repo.GetActiveConfiguration(ctx, sch.ID)
	switch {
	case err == nil:
		id := cfg.ID
		af = ActiveForm{ID: &id, Name: cfg.Name, Description: cfg.Description, Schema: cfg.Schema, IsActive: true}
	case errors.Cause(err) == ErrNotFound:
		if af, err = DefaultForm(); err != nil {
			return ActiveForm{}, err
		}
	default:
		return ActiveForm{}, errors.Wrap(err, "getting active configuration")
	}

	svc.cache.SetDefault(sch.ID, af)
	return af, nil
}

func (svc *service) Query(ctx context.Context, schoolID string) ([]Configuration, error) {
	cfgs, err := svc.repo.QueryConfigurations(ctx, schoolID)
	return cfgs, errors.Wrap(err, "querying configurations")
}

func (svc *service) Get(ctx context.Context, id string) (Configuration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Configuration{}, ErrNotFound
	}
	cfg, err := svc.repo.GetConfiguration(ctx, id)
	return cfg, errors.Wrap(err, "getting configuration")
}

func (svc *service) Create(ctx context.Context, nc NewConfiguration) (Configuration, error) {
	if _, err := svc.schoolSvc.Resolve(ctx, nc.SchoolID); err != nil {
		return Configuration{}, errors.Wrap(err, "resolving school")
	}

	now := time.Now().UTC()
	cfg, err := svc.repo.CreateConfiguration(ctx, Configuration{
		ID:          uuid.New().String(),
		SchoolID:    nc.SchoolID,
		Name:        nc.Name,
		Description: nc.Description,
		Schema:      nc.Schema,
		IsActive:    nc.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Configuration{}, errors.Wrap(err, "creating configuration")
	}
	svc.cache.Flush()
	return cfg, nil
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateConfiguration) (Configuration, error) {
	orig, err := svc.Get(ctx, id)
	if err != nil {
		return Configuration{}, err
	}

	cfg, err := svc.repo.UpdateConfiguration(ctx, uc.apply(orig, time.Now()))
	if err != nil {
		return Configuration{}, errors.Wrap(err, "updating configuration")
	}
	svc.cache.Flush()

	if len(uc.Schema) > 0 {
		if diff := schemaDiff(orig.Schema, cfg.Schema); diff != "" {
			svc.logger.Info(fmt.Sprintf("form configuration %s schema changed", cfg.ID), map[string]interface{}{
				"configuration": cfg.ID,
				"school":        cfg.SchoolID,
				"diff":          diff,
			})
		}
	}
	return cfg, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	if err := svc.repo.DeleteConfiguration(ctx, id); err != nil {
		return errors.Wrap(err, "deleting configuration")
	}
	svc.cache.Flush()
	return nil
}

// schemaDiff returns a unified diff of the indented schema documents; empty when they are equivalent.
func schemaDiff(a, b json.RawMessage) string {
	indent := func(doc json.RawMessage) string {
		var buf bytes.Buffer
		if err := json.Indent(&buf, doc, "", "  "); err != nil {
			return string(doc)
		}
		return buf.String() + "\n"
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(indent(a)),
		B:        difflib.SplitLines(indent(b)),
		FromFile: "schema (before)",
		ToFile:   "schema (after)",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}
