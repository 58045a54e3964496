package boiledrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/form"
)

type formRepository struct {
	exec core.DBExecutor
}

var _ form.Repository = (*formRepository)(nil) // interface compliance check

func NewFormRepository(exec core.DBExecutor) *formRepository {
	return &formRepository{exec: exec}
}

func (repo formRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo formRepository) unboil(row formConfigurationRow) form.Configuration {
	return form.Configuration{
		ID:          row.ID,
		SchoolID:    row.SchoolID,
		Name:        row.Name,
		Description: row.Description,
		Schema:      json.RawMessage(row.Schema),
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.Time.UTC(),
		UpdatedAt:   row.UpdatedAt.Time.UTC(),
	}
}

func (repo formRepository) unboilSlice(rows []formConfigurationRow) []form.Configuration {
	cfgs := make([]form.Configuration, 0, len(rows))
	for _, row := range rows {
		cfgs = append(cfgs, repo.unboil(row))
	}
	return cfgs
}

// trapNoRowsErr maps psql "no rows" err to form.ErrNotFound
func (repo formRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return form.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

var latestFirst = qm.OrderBy(FormConfigurationColumns.UpdatedAt + " DESC, " + FormConfigurationColumns.ID + " DESC")

func (repo formRepository) GetActiveConfiguration(ctx context.Context, schoolID string, exec ...core.DBExecutor) (form.Configuration, error) {
	var row formConfigurationRow
	err := newQuery(
		qm.Select(formConfigurationAllColumns...),
		qm.From(TableNames.FormConfiguration),
		qm.Where(FormConfigurationColumns.SchoolID+" = ?", schoolID),
		qm.And(FormConfigurationColumns.IsActive+" = ?", true),
		latestFirst,
		qm.Limit(1),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return form.Configuration{}, repo.trapNoRowsErr(err, "finding active configuration")
	}
	return repo.unboil(row), nil
}

func (repo formRepository) QueryConfigurations(ctx context.Context, schoolID string, exec ...core.DBExecutor) ([]form.Configuration, error) {
	mods := []qm.QueryMod{
		qm.Select(formConfigurationAllColumns...),
		qm.From(TableNames.FormConfiguration),
	}
	if schoolID != "" {
		mods = append(mods, qm.Where(FormConfigurationColumns.SchoolID+"::text = ?", schoolID))
	}
	mods = append(mods, latestFirst)

	var rows []formConfigurationRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying configurations")
	}
	return repo.unboilSlice(rows), nil
}

func (repo formRepository) GetConfiguration(ctx context.Context, id string, exec ...core.DBExecutor) (form.Configuration, error) {
	var row formConfigurationRow
	err := newQuery(
		qm.Select(formConfigurationAllColumns...),
		qm.From(TableNames.FormConfiguration),
		qm.Where(FormConfigurationColumns.ID+" = ?", id),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return form.Configuration{}, repo.trapNoRowsErr(err, "finding configuration by ID")
	}
	return repo.unboil(row), nil
}

func (repo formRepository) CreateConfiguration(ctx context.Context, cfg form.Configuration, exec ...core.DBExecutor) (form.Configuration, error) {
	cols := strings.Join(formConfigurationAllColumns, ", ")
	var row formConfigurationRow
	err := queries.Raw(
		"INSERT INTO "+TableNames.FormConfiguration+" ("+cols+") "+
			"VALUES ("+placeholders(1, len(formConfigurationAllColumns))+") "+
			"RETURNING "+cols,
		cfg.ID, cfg.SchoolID, cfg.Name, cfg.Description, types.JSON(cfg.Schema), cfg.IsActive,
		null.TimeFrom(cfg.CreatedAt.UTC()), null.TimeFrom(cfg.UpdatedAt.UTC()),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return form.Configuration{}, errors.Wrap(err, "inserting configuration")
	}
	return repo.unboil(row), nil
}

func (repo formRepository) UpdateConfiguration(ctx context.Context, cfg form.Configuration, exec ...core.DBExecutor) (form.Configuration, error) {
	var row formConfigurationRow
	err := queries.Raw(
		fmt.Sprintf(
			"UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5 WHERE %s = $6 RETURNING %s",
			TableNames.FormConfiguration,
			FormConfigurationColumns.Name, FormConfigurationColumns.Description, FormConfigurationColumns.Schema,
			FormConfigurationColumns.IsActive, FormConfigurationColumns.UpdatedAt, FormConfigurationColumns.ID,
			strings.Join(formConfigurationAllColumns, ", "),
		),
		cfg.Name, cfg.Description, types.JSON(cfg.Schema), cfg.IsActive, null.TimeFrom(cfg.UpdatedAt.UTC()), cfg.ID,
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return form.Configuration{}, repo.trapNoRowsErr(err, "updating configuration")
	}
	return repo.unboil(row), nil
}

func (repo formRepository) DeleteConfiguration(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := queries.Raw(
		fmt.Sprintf("DELETE FROM %s WHERE %s = $1", TableNames.FormConfiguration, FormConfigurationColumns.ID),
		id,
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return errors.Wrap(err, "deleting configuration")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting configuration")
	}
	if cnt == 0 {
		return form.ErrNotFound
	}
	return nil
}
