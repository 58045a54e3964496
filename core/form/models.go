package form

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/spmb/core"
)

// Configuration is a form schema configured by a school.
// The schema document is opaque to the backend; it is rendered by the portal front end.
type Configuration struct {
	ID          string          `json:"id"`
	SchoolID    string          `json:"schoolId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"` // UTC
	UpdatedAt   time.Time       `json:"updatedAt"` // UTC
}

// ActiveForm is the form served to applicants. ID is nil for the built-in default form.
type ActiveForm struct {
	ID          *string         `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
	IsActive    bool            `json:"isActive"`
}

type NewConfiguration struct {
	SchoolID    string          `json:"schoolId" validate:"required,uuid"`
	Name        string          `json:"name" validate:"notblank,max=150"`
	Description string          `json:"description" validate:"max=1000"`
	Schema      json.RawMessage `json:"schema" validate:"required,jsonobject"`
	IsActive    bool            `json:"isActive"`
}

func (nc *NewConfiguration) Validate(validate *validator.Validate) error {
	nc.SchoolID = core.CleanString(nc.SchoolID)
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateConfiguration defines what may be changed on a Configuration. Nil fields are left untouched.
type UpdateConfiguration struct {
	Name        *string         `json:"name" validate:"omitempty,notblank,max=150"`
	Description *string         `json:"description" validate:"omitempty,max=1000"`
	Schema      json.RawMessage `json:"schema" validate:"omitempty,jsonobject"`
	IsActive    *bool           `json:"isActive"`
}

func (uc *UpdateConfiguration) Validate(validate *validator.Validate) error {
	if uc.Name != nil {
		n := core.CleanString(*uc.Name)
		uc.Name = &n
	}
	if uc.Description != nil {
		d := core.CleanString(*uc.Description)
		uc.Description = &d
	}
	return validate.Struct(uc)
}

func (uc *UpdateConfiguration) apply(cfg Configuration, now time.Time) Configuration {
	if uc.Name != nil && *uc.Name != "" {
		cfg.Name = *uc.Name
	}
	if uc.Description != nil {
		cfg.Description = *uc.Description
	}
	if len(uc.Schema) > 0 {
		cfg.Schema = uc.Schema
	}
	if uc.IsActive != nil {
		cfg.IsActive = *uc.IsActive
	}
	cfg.UpdatedAt = now.UTC()
	return cfg
}
