package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/spmb/core"
)

type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NPSN      string    `json:"npsn"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"` // UTC
}

// NewSchool contains information needed to register a School.
type NewSchool struct {
	Name    string `json:"name" validate:"notblank"`
	NPSN    string `json:"npsn" validate:"omitempty,numeric,len=8"`
	Address string `json:"address"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.NPSN = core.CleanString(ns.NPSN)
	ns.Address = core.CleanString(ns.Address)
	return validate.Struct(ns)
}
