package form_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/form"
	"github.com/trezcool/spmb/core/school"
	inmemdb "github.com/trezcool/spmb/storage/database/inmem"
	"github.com/trezcool/spmb/tests"
)

func setup(t *testing.T) (form.Service, school.Repository) {
	t.Helper()
	conf := core.NewTestConfig()
	db := inmemdb.Open()
	schRepo := inmemdb.NewSchoolRepository(db)
	svc := form.NewService(conf, inmemdb.NewFormRepository(db), school.NewService(schRepo), testutil.NewLogger(conf))
	return svc, schRepo
}

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }

func TestDefaultForm(t *testing.T) {
	af, err := form.DefaultForm()
	require.NoError(t, err)
	assert.Nil(t, af.ID)
	assert.False(t, af.IsActive)
	assert.NotEmpty(t, af.Name)

	var schema struct {
		Sections []json.RawMessage `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(af.Schema, &schema))
	assert.NotEmpty(t, schema.Sections)
}

func TestService_GetActive(t *testing.T) {
	svc, schRepo := setup(t)
	ctx := context.Background()

	t.Run("no school", func(t *testing.T) {
		af, err := svc.GetActive(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, af.ID)
	})

	sch := testutil.CreateSchool(t, schRepo, "SMP Negeri 2")

	t.Run("no configuration", func(t *testing.T) {
		af, err := svc.GetActive(ctx, sch.ID)
		require.NoError(t, err)
		assert.Nil(t, af.ID)
	})

	reguler, err := svc.Create(ctx, form.NewConfiguration{
		SchoolID: sch.ID,
		Name:     "Reguler",
		Schema:   json.RawMessage(`{"sections":[{"title":"Data Diri"}]}`),
		IsActive: true,
	})
	require.NoError(t, err)
	prestasi, err := svc.Create(ctx, form.NewConfiguration{
		SchoolID: sch.ID,
		Name:     "Prestasi",
		Schema:   json.RawMessage(`{"sections":[{"title":"Prestasi"}]}`),
		IsActive: false,
	})
	require.NoError(t, err)

	t.Run("active configuration of the default school", func(t *testing.T) {
		af, err := svc.GetActive(ctx, "")
		require.NoError(t, err)
		if assert.NotNil(t, af.ID) {
			assert.Equal(t, reguler.ID, *af.ID)
		}
		assert.True(t, af.IsActive)
		assert.JSONEq(t, string(reguler.Schema), string(af.Schema))
	})

	t.Run("latest active wins after update", func(t *testing.T) {
		_, err := svc.Update(ctx, prestasi.ID, form.UpdateConfiguration{IsActive: boolPtr(true)})
		require.NoError(t, err)

		af, err := svc.GetActive(ctx, sch.ID)
		require.NoError(t, err)
		if assert.NotNil(t, af.ID) {
			assert.Equal(t, prestasi.ID, *af.ID)
		}
	})

	t.Run("deactivating all falls back to the default form", func(t *testing.T) {
		for _, id := range []string{reguler.ID, prestasi.ID} {
			_, err := svc.Update(ctx, id, form.UpdateConfiguration{IsActive: boolPtr(false)})
			require.NoError(t, err)
		}
		af, err := svc.GetActive(ctx, sch.ID)
		require.NoError(t, err)
		assert.Nil(t, af.ID)
	})

	t.Run("unknown school", func(t *testing.T) {
		af, err := svc.GetActive(ctx, uuid.New().String())
		require.NoError(t, err)
		assert.Nil(t, af.ID)
	})
}

func TestService_Update(t *testing.T) {
	svc, schRepo := setup(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, schRepo, "SMA Negeri 3")

	cfg, err := svc.Create(ctx, form.NewConfiguration{
		SchoolID:    sch.ID,
		Name:        "Reguler",
		Description: "Jalur reguler",
		Schema:      json.RawMessage(`{"sections":[]}`),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, cfg.ID, form.UpdateConfiguration{
		Name:   strPtr(""),
		Schema: json.RawMessage(`{"sections":[{"title":"Orang Tua"}]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Reguler", updated.Name)
	assert.Equal(t, "Jalur reguler", updated.Description)
	assert.Equal(t, cfg.CreatedAt, updated.CreatedAt)
	assert.JSONEq(t, `{"sections":[{"title":"Orang Tua"}]}`, string(updated.Schema))
	assert.False(t, updated.UpdatedAt.Before(cfg.UpdatedAt))

	if _, err = svc.Update(ctx, uuid.New().String(), form.UpdateConfiguration{IsActive: boolPtr(true)}); errors.Cause(err) != form.ErrNotFound {
		t.Errorf("Update() error = %v, want %v", err, form.ErrNotFound)
	}
}

func TestService_CreateDelete(t *testing.T) {
	svc, schRepo := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, form.NewConfiguration{
		SchoolID: uuid.New().String(),
		Name:     "Reguler",
		Schema:   json.RawMessage(`{}`),
	})
	if !core.IsNotFound(err) {
		t.Errorf("Create() error = %v, want a not found error", err)
	}

	sch := testutil.CreateSchool(t, schRepo, "SMK Negeri 1")
	cfg, err := svc.Create(ctx, form.NewConfiguration{SchoolID: sch.ID, Name: "Reguler", Schema: json.RawMessage(`{}`)})
	require.NoError(t, err)

	cfgs, err := svc.Query(ctx, sch.ID)
	require.NoError(t, err)
	assert.Len(t, cfgs, 1)

	require.NoError(t, svc.Delete(ctx, cfg.ID))
	if _, err = svc.Get(ctx, cfg.ID); errors.Cause(err) != form.ErrNotFound {
		t.Errorf("Get() error = %v, want %v", err, form.ErrNotFound)
	}
	if err = svc.Delete(ctx, "not-a-uuid"); err != form.ErrNotFound {
		t.Errorf("Delete() error = %v, want %v", err, form.ErrNotFound)
	}
}

func TestNewConfiguration_Validate(t *testing.T) {
	validate, _ := testutil.NewValidate()

	tests := []struct {
		name    string
		nc      form.NewConfiguration
		wantErr bool
	}{
		{name: "valid", nc: form.NewConfiguration{SchoolID: uuid.New().String(), Name: " Reguler ", Schema: json.RawMessage(`{"a":1}`)}},
		{name: "blank name", nc: form.NewConfiguration{SchoolID: uuid.New().String(), Name: "  ", Schema: json.RawMessage(`{}`)}, wantErr: true},
		{name: "schema array", nc: form.NewConfiguration{SchoolID: uuid.New().String(), Name: "A", Schema: json.RawMessage(`[1]`)}, wantErr: true},
		{name: "no schema", nc: form.NewConfiguration{SchoolID: uuid.New().String(), Name: "A"}, wantErr: true},
		{name: "no school", nc: form.NewConfiguration{Name: "A", Schema: json.RawMessage(`{}`)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.nc.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
