package settings_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/settings"
	inmemdb "github.com/trezcool/spmb/storage/database/inmem"
	"github.com/trezcool/spmb/tests"
)

func setup() settings.Service {
	validate, _ := testutil.NewValidate()
	return settings.NewService(inmemdb.NewSettingsRepository(inmemdb.Open()), validate)
}

func boolPtr(b bool) *bool { return &b }

func configOf(t *testing.T, s settings.Settings) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(s.Config, &doc))
	return doc
}

func TestService_LoadAll(t *testing.T) {
	svc := setup()

	all, err := svc.LoadAll(context.Background())
	require.NoError(t, err)
	providers := make([]string, 0, len(all))
	for _, s := range all {
		providers = append(providers, s.Provider)
		assert.False(t, s.Enabled)
		assert.Nil(t, s.UpdatedAt)
	}
	assert.Equal(t, []string{settings.ProviderAcademic, settings.ProviderGoogle, settings.ProviderWordPress}, providers)

	if _, err = svc.Load(context.Background(), "dropbox"); !core.IsNotFound(err) {
		t.Errorf("Load() error = %v, want a not found error", err)
	}
}

func TestService_Save(t *testing.T) {
	svc := setup()
	ctx := context.Background()

	// each step builds on the previous one
	steps := []struct {
		name      string
		patch     settings.Patch
		wantField string
		check     func(t *testing.T, s settings.Settings)
	}{
		{
			name:  "partial config while disabled",
			patch: settings.Patch{Config: json.RawMessage(`{"clientId":"abc.apps.googleusercontent.com"}`)},
			check: func(t *testing.T, s settings.Settings) {
				assert.False(t, s.Enabled)
				assert.Equal(t, "abc.apps.googleusercontent.com", configOf(t, s)["clientId"])
				assert.Equal(t, "admin", s.UpdatedBy)
				assert.NotNil(t, s.UpdatedAt)
			},
		},
		{
			name:      "enable without the secret",
			patch:     settings.Patch{Enabled: boolPtr(true)},
			wantField: "clientSecret",
		},
		{
			name:  "enable with the secret",
			patch: settings.Patch{Enabled: boolPtr(true), Config: json.RawMessage(`{"clientSecret":"s3cret"}`)},
			check: func(t *testing.T, s settings.Settings) {
				assert.True(t, s.Enabled)
				doc := configOf(t, s)
				assert.Equal(t, "s3cret", doc["clientSecret"])
				assert.Equal(t, "abc.apps.googleusercontent.com", doc["clientId"])
				assert.Equal(t, "********", configOf(t, settings.Masked(s))["clientSecret"])
			},
		},
		{
			name:  "masked secret echoed back is kept",
			patch: settings.Patch{Config: json.RawMessage(`{"clientSecret":"********","spreadsheetId":"sheet-1"}`)},
			check: func(t *testing.T, s settings.Settings) {
				doc := configOf(t, s)
				assert.Equal(t, "s3cret", doc["clientSecret"])
				assert.Equal(t, "sheet-1", doc["spreadsheetId"])
			},
		},
		{
			name:      "null removes a required field",
			patch:     settings.Patch{Config: json.RawMessage(`{"clientId":null}`)},
			wantField: "clientId",
		},
		{
			name:      "unknown field",
			patch:     settings.Patch{Config: json.RawMessage(`{"bucket":"x"}`)},
			wantField: "config",
		},
		{
			name:      "not an object",
			patch:     settings.Patch{Config: json.RawMessage(`[1,2]`)},
			wantField: "config",
		},
		{
			name:      "invalid url",
			patch:     settings.Patch{Config: json.RawMessage(`{"redirectUrl":"not a url"}`)},
			wantField: "redirectUrl",
		},
	}
	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Save(ctx, settings.ProviderGoogle, tt.patch, "admin")
			if tt.wantField != "" {
				if !hasFieldError(err, tt.wantField) {
					t.Fatalf("Save() error = %v, want an error on %q", err, tt.wantField)
				}
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}

	// failed saves left the stored settings alone
	s, err := svc.Load(ctx, settings.ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	assert.Equal(t, "abc.apps.googleusercontent.com", configOf(t, s)["clientId"])
}

func hasFieldError(err error, field string) bool {
	switch e := err.(type) {
	case *core.ValidationError:
		for _, f := range e.Fields {
			if f.Field == field {
				return true
			}
		}
	case validator.ValidationErrors:
		for _, f := range e {
			if f.Field() == field {
				return true
			}
		}
	}
	return false
}

func TestService_Save_unknownProvider(t *testing.T) {
	_, err := setup().Save(context.Background(), "dropbox", settings.Patch{Enabled: boolPtr(true)}, "admin")
	if err != settings.ErrUnknownProvider {
		t.Errorf("Save() error = %v, want %v", err, settings.ErrUnknownProvider)
	}
}
