package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/spmb/core"
)

const orderingParam = "ordering"

var errInvalidOrdering = errors.New("invalid ordering")

// Ordering binds `?ordering=field,-field` query params.
type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the ordering param, keeping the first occurrence of each field.
// Fields missing from allowed are reported as a validation error.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]bool) error {
	val := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if val == "" {
		return nil
	}

	seen := make(map[string]bool)
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		ascending := !strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" || seen[field] {
			continue
		}
		if !allowed[field] {
			return core.NewValidationError(
				errInvalidOrdering,
				core.FieldError{Field: orderingParam, Error: "cannot order by " + field},
			)
		}
		seen[field] = true
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: ascending})
	}
	return nil
}
