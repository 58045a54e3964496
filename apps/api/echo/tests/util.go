package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	echoapi "github.com/trezcool/spmb/apps/api/echo"
	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/form"
	"github.com/trezcool/spmb/core/school"
	"github.com/trezcool/spmb/core/settings"
	"github.com/trezcool/spmb/core/submission"
	emailsvc "github.com/trezcool/spmb/services/email"
	inmemdb "github.com/trezcool/spmb/storage/database/inmem"
	"github.com/trezcool/spmb/tests"
)

const clientIP = "192.0.2.10"

type fixture struct {
	conf       *core.Config
	app        *echoapi.Server
	subRepo    submission.Repository
	schRepo    school.Repository
	formRepo   form.Repository
	setRepo    settings.Repository
	school     school.School
	adminToken string
}

// setup wires a Server on the in-memory store; registration numbers are drawn from nums.
func setup(t *testing.T, conf *core.Config, nums ...int) fixture {
	t.Helper()
	if conf == nil {
		conf = core.NewTestConfig()
	}
	if len(nums) == 0 {
		nums = []int{42}
	}

	// set up DB & repos
	db := inmemdb.Open()
	subRepo := inmemdb.NewSubmissionRepository(db)
	schRepo := inmemdb.NewSchoolRepository(db)
	formRepo := inmemdb.NewFormRepository(db)
	setRepo := inmemdb.NewSettingsRepository(db)
	sch := testutil.CreateSchool(t, schRepo, "SMP Negeri 3 Yogyakarta")

	// set up services
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidate()
	emailsvc.ResetSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	schSvc := school.NewService(schRepo)
	gen := submission.NewGeneratorWithSource(time.UTC, submission.NewSequenceSource(nums...), nil)

	// set up server
	app, err := echoapi.NewServer(echoapi.Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		SubmissionSvc: submission.NewService(conf, subRepo, schSvc, gen, mailSvc, logger),
		FormSvc:       form.NewService(conf, formRepo, schSvc, logger),
		SettingsSvc:   settings.NewService(setRepo, validate),
		LimiterStore:  memory.NewStore(),
	})
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}

	return fixture{
		conf:       conf,
		app:        app,
		subRepo:    subRepo,
		schRepo:    schRepo,
		formRepo:   formRepo,
		setRepo:    setRepo,
		school:     sch,
		adminToken: getToken(t, conf, true),
	}
}

func (f fixture) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.RemoteAddr = clientIP + ":52110"
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, isAdmin bool) string {
	claims := echoapi.NewAdminClaims(conf, "operator", "operator@sekolah.sch.id", time.Hour)
	claims.IsAdmin = isAdmin
	token, err := echoapi.GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); ok {
		return assert.ElementsMatch(t, j1, j2), nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
