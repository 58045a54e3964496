package school

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/spmb/core"
)

var ErrNotFound = core.NewNotFoundError("school")

type (
	Repository interface {
		CreateSchool(ctx context.Context, sch School, exec ...core.DBExecutor) (School, error)
		GetSchool(ctx context.Context, id string, exec ...core.DBExecutor) (School, error)
		// GetDefaultSchool returns the oldest registered School.
		GetDefaultSchool(ctx context.Context, exec ...core.DBExecutor) (School, error)
		QuerySchools(ctx context.Context, exec ...core.DBExecutor) ([]School, error)
	}

	Service interface {
		// Resolve returns the School identified by id, or the default School when id is empty.
		Resolve(ctx context.Context, id string) (School, error)
		Create(ctx context.Context, ns NewSchool) (School, error)
		Query(ctx context.Context) ([]School, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Resolve(ctx context.Context, id string) (School, error) {
	if id == "" {
		sch, err := svc.repo.GetDefaultSchool(ctx)
		return sch, errors.Wrap(err, "getting default school")
	}
	if _, err := uuid.Parse(id); err != nil {
		return School{}, ErrNotFound
	}
	sch, err := svc.repo.GetSchool(ctx, id)
	return sch, errors.Wrap(err, "getting school")
}

func (svc *service) Create(ctx context.Context, ns NewSchool) (School, error) {
	sch, err := svc.repo.CreateSchool(ctx, School{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		NPSN:      ns.NPSN,
		Address:   ns.Address,
		CreatedAt: time.Now().UTC(),
	})
	return sch, errors.Wrap(err, "creating school")
}

func (svc *service) Query(ctx context.Context) ([]School, error) {
	schools, err := svc.repo.QuerySchools(ctx)
	return schools, errors.Wrap(err, "querying schools")
}
