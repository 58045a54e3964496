package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/spmb/core/settings"
)

var settingsColumnNames = []string{"provider", "enabled", "config", "updated_by", "updated_at"}

func Test_settingsRepository_GetSettings(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{
			name: "found",
			rows: sqlmock.NewRows(settingsColumnNames).
				AddRow("google", true, []byte(`{"clientId":"abc"}`), "admin", now),
		},
		{
			name:    "never saved",
			rows:    sqlmock.NewRows(settingsColumnNames),
			wantErr: settings.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(`SELECT provider, enabled, config, updated_by, updated_at FROM integration_settings WHERE provider = \$1`).
				WithArgs("google").
				WillReturnRows(tt.rows)

			got, err := NewSettingsRepository(db).GetSettings(context.Background(), "google")
			if err != tt.wantErr {
				t.Fatalf("GetSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				assert.True(t, got.Enabled)
				assert.JSONEq(t, `{"clientId":"abc"}`, string(got.Config))
				if assert.NotNil(t, got.UpdatedAt) {
					assert.True(t, now.Equal(*got.UpdatedAt))
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func Test_settingsRepository_SaveSettings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO integration_settings .+ VALUES \(\$1, \$2, \$3, \$4, \$5\)\s+ON CONFLICT \(provider\) DO UPDATE SET`).
		WithArgs("wordpress", false, sqlmock.AnyArg(), "admin", now).
		WillReturnRows(sqlmock.NewRows(settingsColumnNames).
			AddRow("wordpress", false, []byte(`{"siteUrl":"https://sekolah.sch.id"}`), "admin", now))

	got, err := NewSettingsRepository(db).SaveSettings(context.Background(), settings.Settings{
		Provider:  settings.ProviderWordPress,
		Config:    []byte(`{"siteUrl":"https://sekolah.sch.id"}`),
		UpdatedBy: "admin",
		UpdatedAt: &now,
	})
	require.NoError(t, err)
	assert.Equal(t, settings.ProviderWordPress, got.Provider)
	assert.Equal(t, "admin", got.UpdatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_settingsRepository_QuerySettings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM integration_settings ORDER BY provider`).
		WillReturnRows(sqlmock.NewRows(settingsColumnNames).
			AddRow("academic", false, []byte(`{}`), "", now).
			AddRow("google", true, []byte(`{}`), "admin", now))

	all, err := NewSettingsRepository(db).QuerySettings(context.Background())
	require.NoError(t, err)
	if assert.Len(t, all, 2) {
		assert.Equal(t, settings.ProviderAcademic, all[0].Provider)
		assert.Equal(t, settings.ProviderGoogle, all[1].Provider)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
