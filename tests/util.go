package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/school"
	"github.com/trezcool/spmb/core/submission"
	logsvc "github.com/trezcool/spmb/services/logger"
	"github.com/trezcool/spmb/storage/database"
)

// NewLogger returns a disabled RollbarLogger writing nowhere.
func NewLogger(conf *core.Config) core.Logger {
	std := logrus.New()
	std.SetOutput(io.Discard)
	logger := logsvc.NewRollbarLogger(logrus.NewEntry(std), conf)
	logger.Enable(false)
	return logger
}

// NewValidate returns a validator with every custom validation registered.
func NewValidate() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	submission.InitValidators(validate, translator)
	return validate, translator
}

// PrepareDB opens the test database, migrates it & truncates every table.
// The test is skipped when no test database is configured.
func PrepareDB(t *testing.T, conf *core.Config) *sql.DB {
	t.Helper()
	if conf.Database.Host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("CreateIfNotExist() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if _, err = db.Exec("TRUNCATE TABLE submissions, form_configurations, schools, integration_settings CASCADE"); err != nil {
		t.Fatalf("truncating tables failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreateSchool(t *testing.T, repo school.Repository, name string, createdAt ...time.Time) school.School {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	sch, err := repo.CreateSchool(context.Background(), school.School{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

func CreateSubmission(
	t *testing.T,
	repo submission.Repository,
	schoolID, regNum, name, email, track, status string,
	createdAt ...time.Time,
) submission.Submission {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	app := submission.Applicant{FullName: name, Email: email, Track: track}
	raw, _ := json.Marshal(app)
	sub := submission.Submission{
		ID:                 uuid.New().String(),
		RegistrationNumber: regNum,
		SchoolID:           schoolID,
		Applicant:          app,
		UploadedFiles:      []submission.UploadedFile{},
		RawData:            raw,
		Status:             status,
		CreatedAt:          tstamp,
		UpdatedAt:          tstamp,
	}
	if status != submission.StatusPending {
		reviewer := submission.DefaultReviewer
		sub.ReviewedAt = &tstamp
		sub.ReviewedBy = &reviewer
	}
	sub, err := repo.CreateSubmission(context.Background(), sub)
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return sub
}
