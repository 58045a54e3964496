package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/spmb/core"
)

var (
	// errors
	ErrUnknownProvider = core.NewNotFoundError("integration provider")
	ErrNotFound        = errors.New("integration settings not found")

	requiredText = "this field is required to enable the integration"
)

type (
	Repository interface {
		// GetSettings returns ErrNotFound when the provider was never saved.
		GetSettings(ctx context.Context, provider string, exec ...core.DBExecutor) (Settings, error)
		QuerySettings(ctx context.Context, exec ...core.DBExecutor) ([]Settings, error)
		// SaveSettings inserts or replaces the settings of s.Provider.
		SaveSettings(ctx context.Context, s Settings, exec ...core.DBExecutor) (Settings, error)
	}

	Service interface {
		// Load returns the stored settings of provider, or its defaults.
		Load(ctx context.Context, provider string) (Settings, error)
		LoadAll(ctx context.Context) ([]Settings, error)
		// Save merges p into the stored settings of provider, validates & persists the result.
		Save(ctx context.Context, provider string, p Patch, updatedBy string) (Settings, error)
	}

	service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate) Service {
	return &service{repo: repo, validate: validate}
}

func defaults(provider string) (Settings, error) {
	cfg, ok := newProviderConfig(provider)
	if !ok {
		return Settings{}, ErrUnknownProvider
	}
	doc, err := json.Marshal(cfg)
	if err != nil {
		return Settings{}, errors.Wrap(err, "marshalling default config")
	}
	return Settings{Provider: provider, Config: doc}, nil
}

func (svc *service) Load(ctx context.Context, provider string) (Settings, error) {
	def, err := defaults(provider)
	if err != nil {
		return Settings{}, err
	}
	s, err := svc.repo.GetSettings(ctx, provider)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return def, nil
		}
		return Settings{}, errors.Wrap(err, "getting settings")
	}
	return s, nil
}

func (svc *service) LoadAll(ctx context.Context) ([]Settings, error) {
	stored, err := svc.repo.QuerySettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}
	byProvider := make(map[string]Settings, len(stored))
	for _, s := range stored {
		byProvider[s.Provider] = s
	}

	all := make([]Settings, 0, len(Providers))
	for _, p := range Providers {
		s, ok := byProvider[p]
		if !ok {
			if s, err = defaults(p); err != nil {
				return nil, err
			}
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Provider < all[j].Provider })
	return all, nil
}

func (svc *service) Save(ctx context.Context, provider string, p Patch, updatedBy string) (Settings, error) {
	s, err := svc.Load(ctx, provider)
	if err != nil {
		return Settings{}, err
	}
	cfg, _ := newProviderConfig(provider)

	if len(p.Config) > 0 {
		patch, err := stripMasked(p.Config, cfg.secrets())
		if err != nil {
			return Settings{}, err
		}
		merged, err := jsonpatch.MergePatch(s.Config, patch)
		if err != nil {
			return Settings{}, core.NewValidationError(err, core.FieldError{Field: "config", Error: "invalid merge patch"})
		}
		s.Config = merged
	}
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}

	dec := json.NewDecoder(bytes.NewReader(s.Config))
	dec.DisallowUnknownFields()
	if err = dec.Decode(cfg); err != nil {
		return Settings{}, core.NewValidationError(err, core.FieldError{Field: "config", Error: err.Error()})
	}
	if err = svc.validate.Struct(cfg); err != nil {
		return Settings{}, err
	}
	if s.Enabled {
		var fldErrs []core.FieldError
		for fld, val := range cfg.requiredWhenEnabled() {
			if val == "" {
				fldErrs = append(fldErrs, core.FieldError{Field: fld, Error: requiredText})
			}
		}
		if len(fldErrs) > 0 {
			sort.Slice(fldErrs, func(i, j int) bool { return fldErrs[i].Field < fldErrs[j].Field })
			return Settings{}, core.NewValidationError(nil, fldErrs...)
		}
	}

	// re-marshal the typed config: the stored document only holds known fields
	if s.Config, err = json.Marshal(cfg); err != nil {
		return Settings{}, errors.Wrap(err, "marshalling config")
	}
	now := time.Now().UTC()
	s.UpdatedAt = &now
	s.UpdatedBy = updatedBy

	saved, err := svc.repo.SaveSettings(ctx, s)
	return saved, errors.Wrap(err, "saving settings")
}

// Masked returns a copy of s with its secret config values hidden.
func Masked(s Settings) Settings {
	cfg, ok := newProviderConfig(s.Provider)
	if !ok {
		return s
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(s.Config, &doc); err != nil {
		return s
	}
	for _, key := range cfg.secrets() {
		if v, ok := doc[key].(string); ok && v != "" {
			doc[key] = secretMask
		}
	}
	if masked, err := json.Marshal(doc); err == nil {
		s.Config = masked
	}
	return s
}

// stripMasked drops secret keys the client echoed back masked, so the stored secrets are kept.
func stripMasked(patch json.RawMessage, secrets []string) (json.RawMessage, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(patch, &doc); err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "config", Error: "must be a JSON object"})
	}
	for _, key := range secrets {
		if v, ok := doc[key].(string); ok && v == secretMask {
			delete(doc, key)
		}
	}
	stripped, err := json.Marshal(doc)
	return stripped, errors.Wrap(err, "marshalling patch")
}
