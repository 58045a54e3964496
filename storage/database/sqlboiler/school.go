package boiledrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/school"
)

type schoolRepository struct {
	exec core.DBExecutor
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(exec core.DBExecutor) *schoolRepository {
	return &schoolRepository{exec: exec}
}

func (repo schoolRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo schoolRepository) unboil(row schoolRow) school.School {
	return school.School{
		ID:        row.ID,
		Name:      row.Name,
		NPSN:      row.NPSN,
		Address:   row.Address,
		CreatedAt: row.CreatedAt.Time.UTC(),
	}
}

// trapNoRowsErr maps psql "no rows" err to school.ErrNotFound
func (repo schoolRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School, exec ...core.DBExecutor) (school.School, error) {
	var row schoolRow
	err := queries.Raw(
		"INSERT INTO "+TableNames.School+" ("+strings.Join(schoolAllColumns, ", ")+") "+
			"VALUES ("+placeholders(1, len(schoolAllColumns))+") "+
			"RETURNING "+strings.Join(schoolAllColumns, ", "),
		sch.ID, sch.Name, sch.NPSN, sch.Address, null.TimeFrom(sch.CreatedAt.UTC()),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return repo.unboil(row), nil
}

func (repo schoolRepository) GetSchool(ctx context.Context, id string, exec ...core.DBExecutor) (school.School, error) {
	var row schoolRow
	err := newQuery(
		qm.Select(schoolAllColumns...),
		qm.From(TableNames.School),
		qm.Where(SchoolColumns.ID+" = ?", id),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return school.School{}, repo.trapNoRowsErr(err, "finding school by ID")
	}
	return repo.unboil(row), nil
}

func (repo schoolRepository) GetDefaultSchool(ctx context.Context, exec ...core.DBExecutor) (school.School, error) {
	var row schoolRow
	err := newQuery(
		qm.Select(schoolAllColumns...),
		qm.From(TableNames.School),
		qm.OrderBy(SchoolColumns.CreatedAt+" ASC, "+SchoolColumns.ID+" ASC"),
		qm.Limit(1),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return school.School{}, repo.trapNoRowsErr(err, "finding default school")
	}
	return repo.unboil(row), nil
}

func (repo schoolRepository) QuerySchools(ctx context.Context, exec ...core.DBExecutor) ([]school.School, error) {
	var rows []schoolRow
	err := newQuery(
		qm.Select(schoolAllColumns...),
		qm.From(TableNames.School),
		qm.OrderBy(SchoolColumns.CreatedAt+" ASC, "+SchoolColumns.ID+" ASC"),
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, repo.unboil(row))
	}
	return schools, nil
}
