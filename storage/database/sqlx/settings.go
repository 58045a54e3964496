package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/settings"
)

const (
	settingsColumns = "provider, enabled, config, updated_by, updated_at"

	upsertSettingsQuery = `
INSERT INTO integration_settings (` + settingsColumns + `)
VALUES (:provider, :enabled, :config, :updated_by, :updated_at)
ON CONFLICT (provider) DO UPDATE SET
    enabled = EXCLUDED.enabled,
    config = EXCLUDED.config,
    updated_by = EXCLUDED.updated_by,
    updated_at = EXCLUDED.updated_at
RETURNING ` + settingsColumns
)

type settingsRow struct {
	Provider  string         `db:"provider"`
	Enabled   bool           `db:"enabled"`
	Config    types.JSONText `db:"config"`
	UpdatedBy string         `db:"updated_by"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type settingsRepository struct {
	db *sqlx.DB
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *sql.DB) *settingsRepository {
	return &settingsRepository{db: sqlx.NewDb(db, "postgres")}
}

// getExec returns the transaction passed by the service when it is a sqlx one.
func (repo settingsRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if ext, ok := svcExec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return repo.db
}

func (repo settingsRepository) unboil(row settingsRow) settings.Settings {
	updatedAt := row.UpdatedAt.UTC()
	return settings.Settings{
		Provider:  row.Provider,
		Enabled:   row.Enabled,
		Config:    json.RawMessage(row.Config),
		UpdatedBy: row.UpdatedBy,
		UpdatedAt: &updatedAt,
	}
}

func (repo settingsRepository) GetSettings(ctx context.Context, provider string, exec ...core.DBExecutor) (settings.Settings, error) {
	var row settingsRow
	err := sqlx.GetContext(
		ctx, repo.getExec(exec), &row,
		"SELECT "+settingsColumns+" FROM integration_settings WHERE provider = $1", provider,
	)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return settings.Settings{}, settings.ErrNotFound
		}
		return settings.Settings{}, errors.Wrap(err, "finding settings by provider")
	}
	return repo.unboil(row), nil
}

func (repo settingsRepository) QuerySettings(ctx context.Context, exec ...core.DBExecutor) ([]settings.Settings, error) {
	var rows []settingsRow
	err := sqlx.SelectContext(
		ctx, repo.getExec(exec), &rows,
		"SELECT "+settingsColumns+" FROM integration_settings ORDER BY provider",
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}
	all := make([]settings.Settings, 0, len(rows))
	for _, row := range rows {
		all = append(all, repo.unboil(row))
	}
	return all, nil
}

func (repo settingsRepository) SaveSettings(ctx context.Context, s settings.Settings, exec ...core.DBExecutor) (settings.Settings, error) {
	cfg := types.JSONText(s.Config)
	if len(cfg) == 0 {
		cfg = types.JSONText("{}")
	}
	updatedAt := time.Now().UTC()
	if s.UpdatedAt != nil {
		updatedAt = s.UpdatedAt.UTC()
	}

	ext := repo.getExec(exec)
	query, args, err := sqlx.Named(upsertSettingsQuery, settingsRow{
		Provider:  s.Provider,
		Enabled:   s.Enabled,
		Config:    cfg,
		UpdatedBy: s.UpdatedBy,
		UpdatedAt: updatedAt,
	})
	if err != nil {
		return settings.Settings{}, errors.Wrap(err, "binding settings")
	}

	var row settingsRow
	if err = sqlx.GetContext(ctx, ext, &row, ext.Rebind(query), args...); err != nil {
		return settings.Settings{}, errors.Wrap(err, "saving settings")
	}
	return repo.unboil(row), nil
}
