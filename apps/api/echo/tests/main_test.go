package tests

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	echoapi "github.com/trezcool/spmb/apps/api/echo"
	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/tests"
)

func TestServer_home(t *testing.T) {
	f := setup(t, nil)

	rec := f.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to SPMB API!", rec.Body.String())
}

func TestServer_metrics(t *testing.T) {
	f := setup(t, nil)

	rec := f.do(http.MethodPost, "/api/forms/submit", "", []byte(`{"namaLengkap":"Rina Wati","jalurPendaftaran":"afirmasi"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spmb_intake_submissions_total{track="afirmasi"}`)
}

func TestNewServer_badRateLimit(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Server.SubmitRateLimit = "twenty per minute"
	validate, translator := testutil.NewValidate()

	_, err := echoapi.NewServer(echoapi.Deps{
		Conf:         conf,
		Logger:       testutil.NewLogger(conf),
		Validate:     validate,
		Translator:   translator,
		LimiterStore: memory.NewStore(),
	})
	assert.Error(t, err)
}

func TestServer_auth(t *testing.T) {
	f := setup(t, nil)
	guestToken := getToken(t, f.conf, false)

	otherConf := core.NewTestConfig()
	otherConf.SecretKey = "not-the-secret"
	forgedToken := getToken(t, otherConf, true)

	errMissingToken := marchallObj(t, httpErr{Error: "missing or malformed jwt"})
	errInvalidToken := marchallObj(t, httpErr{Error: "invalid or expired jwt"})
	errForbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{
			name:     "submissions: no token",
			method:   http.MethodGet,
			path:     "/api/forms/submissions",
			wantCode: http.StatusUnauthorized,
			wantData: errMissingToken,
		},
		{
			name:     "submissions: garbage token",
			method:   http.MethodGet,
			path:     "/api/forms/submissions",
			token:    "not.a.jwt",
			wantCode: http.StatusUnauthorized,
			wantData: errInvalidToken,
		},
		{
			name:     "submissions: token signed with another key",
			method:   http.MethodGet,
			path:     "/api/forms/submissions",
			token:    forgedToken,
			wantCode: http.StatusUnauthorized,
			wantData: errInvalidToken,
		},
		{
			name:     "submissions: not an admin",
			method:   http.MethodGet,
			path:     "/api/forms/submissions",
			token:    guestToken,
			wantCode: http.StatusForbidden,
			wantData: errForbidden,
		},
		{
			name:     "configurations: no token",
			method:   http.MethodPost,
			path:     "/api/forms/configurations",
			body:     []byte(`{}`),
			wantCode: http.StatusUnauthorized,
			wantData: errMissingToken,
		},
		{
			name:     "settings: not an admin",
			method:   http.MethodGet,
			path:     "/api/settings",
			token:    guestToken,
			wantCode: http.StatusForbidden,
			wantData: errForbidden,
		},
		{
			name:     "active form is public",
			method:   http.MethodGet,
			path:     "/api/forms/active",
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tt.token, tt.body)
			if tt.wantData == nil {
				assert.Equal(t, tt.wantCode, rec.Code)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestServer_rateLimit(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Server.SubmitRateLimit = "2-M"
	f := setup(t, conf, 1, 2, 3)
	body := []byte(`{"namaLengkap":"Dewi Sartika"}`)

	for i := 0; i < 2; i++ {
		rec := f.do(http.MethodPost, "/api/forms/submit", "", body)
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(http.MethodPost, "/api/forms/submit", "", body)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusTooManyRequests,
		wantData: marchallObj(t, httpErr{Error: "too many requests, please try again later"}),
	}, rec)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// a forged X-Forwarded-For does not make a new client
	for _, xff := range []string{"203.0.113.1", "203.0.113.2, 10.0.0.1"} {
		req, rec := newRequest(http.MethodPost, "/api/forms/submit", body)
		req.Header.Set(echo.HeaderXForwardedFor, xff)
		f.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, xff)
	}

	// another client is not limited
	req, rec := newRequest(http.MethodPost, "/api/forms/submit", body)
	req.RemoteAddr = "198.51.100.7:40000"
	f.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestServer_rateLimitBehindProxy(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Server.SubmitRateLimit = "1-M"
	conf.Server.TrustProxy = true
	f := setup(t, conf, 1, 2, 3, 4)
	body := []byte(`{"namaLengkap":"Dewi Sartika"}`)

	submit := func(remoteAddr, xff string) int {
		req, rec := newRequest(http.MethodPost, "/api/forms/submit", body)
		req.RemoteAddr = remoteAddr
		if xff != "" {
			req.Header.Set(echo.HeaderXForwardedFor, xff)
		}
		f.app.ServeHTTP(rec, req)
		return rec.Code
	}

	// clients forwarded by a private proxy are told apart
	assert.Equal(t, http.StatusCreated, submit("10.0.0.2:8080", "203.0.113.1"))
	assert.Equal(t, http.StatusCreated, submit("10.0.0.2:8080", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, submit("10.0.0.2:8080", "203.0.113.1"))

	// a public peer cannot pick its own address
	assert.Equal(t, http.StatusCreated, submit(clientIP+":52110", "203.0.113.9"))
	assert.Equal(t, http.StatusTooManyRequests, submit(clientIP+":52110", "203.0.113.10"))
}
