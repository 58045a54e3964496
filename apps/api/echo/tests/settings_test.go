package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/spmb/core/settings"
)

func Test_settingsApi(t *testing.T) {
	f := setup(t, nil)

	tests := []httpTest{
		{
			name:     "retrieve: defaults",
			method:   http.MethodGet,
			path:     "/api/settings/google",
			wantCode: http.StatusOK,
			wantData: []byte(`{
				"provider":"google","enabled":false,"updatedBy":"","updatedAt":null,
				"config":{"clientId":"","clientSecret":"","redirectUrl":"","spreadsheetId":"","syncSubmissions":false}
			}`),
		},
		{
			name:     "retrieve: unknown provider",
			method:   http.MethodGet,
			path:     "/api/settings/facebook",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "integration provider not found"}),
		},
		{
			name:     "update: enable without credentials",
			method:   http.MethodPut,
			path:     "/api/settings/google",
			body:     []byte(`{"enabled":true}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"clientId":"this field is required to enable the integration",
				"clientSecret":"this field is required to enable the integration"
			}`),
		},
		{
			name:     "update: config is not an object",
			method:   http.MethodPut,
			path:     "/api/settings/wordpress",
			body:     []byte(`{"config":["a"]}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"config":"must be a JSON object"}`),
		},
		{
			name:     "update: bad url",
			method:   http.MethodPut,
			path:     "/api/settings/academic",
			body:     []byte(`{"config":{"baseUrl":"not a url"}}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"baseUrl":"baseUrl must be a valid URL"}`),
		},
		{
			name:     "update: unknown provider",
			method:   http.MethodPut,
			path:     "/api/settings/facebook",
			body:     []byte(`{"enabled":true}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "integration provider not found"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, f.do(tt.method, tt.path, f.adminToken, tt.body))
		})
	}

	t.Run("update: enable & mask secret", func(t *testing.T) {
		rec := f.do(http.MethodPut, "/api/settings/google", f.adminToken,
			[]byte(`{"enabled":true,"config":{"clientId":"spmb-client","clientSecret":"s3cr3t"}}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got settings.Settings
		unmarshal(t, rec, &got)
		assert.True(t, got.Enabled)
		assert.Equal(t, "operator", got.UpdatedBy)
		assert.NotNil(t, got.UpdatedAt)
		assert.JSONEq(t,
			`{"clientId":"spmb-client","clientSecret":"********","redirectUrl":"","spreadsheetId":"","syncSubmissions":false}`,
			string(got.Config),
		)

		// the masked secret sent back keeps the stored one
		rec = f.do(http.MethodPut, "/api/settings/google", f.adminToken,
			[]byte(`{"config":{"clientSecret":"********","spreadsheetId":"1AbC"}}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		stored, err := f.setRepo.GetSettings(context.Background(), settings.ProviderGoogle)
		require.NoError(t, err)
		assert.Contains(t, string(stored.Config), `"clientSecret":"s3cr3t"`)
		assert.Contains(t, string(stored.Config), `"spreadsheetId":"1AbC"`)
	})

	t.Run("query", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/settings", f.adminToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var all []settings.Settings
		unmarshal(t, rec, &all)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"academic", "google", "wordpress"}, []string{all[0].Provider, all[1].Provider, all[2].Provider})
		assert.NotContains(t, rec.Body.String(), "s3cr3t")
	})
}
