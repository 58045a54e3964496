package boiledrepos

import (
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/sqlboiler/v4/types"
)

// dialect is the postgres dialect used to build sqlboiler queries.
var dialect = drivers.Dialect{
	LQ:                   '"',
	RQ:                   '"',
	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

var TableNames = struct {
	School            string
	Submission        string
	FormConfiguration string
}{
	School:            "schools",
	Submission:        "submissions",
	FormConfiguration: "form_configurations",
}

var SchoolColumns = struct {
	ID        string
	Name      string
	NPSN      string
	Address   string
	CreatedAt string
}{
	ID:        "id",
	Name:      "name",
	NPSN:      "npsn",
	Address:   "address",
	CreatedAt: "created_at",
}

var SubmissionColumns = struct {
	ID                 string
	SchoolID           string
	RegistrationNumber string
	FullName           string
	Email              string
	ParentPhone        string
	Track              string
	Wave               string
	Status             string
	Notes              string
	ReviewedAt         string
	ReviewedBy         string
	CreatedAt          string
	UpdatedAt          string
}{
	ID:                 "id",
	SchoolID:           "school_id",
	RegistrationNumber: "registration_number",
	FullName:           "full_name",
	Email:              "email",
	ParentPhone:        "parent_phone",
	Track:              "track",
	Wave:               "wave",
	Status:             "status",
	Notes:              "notes",
	ReviewedAt:         "reviewed_at",
	ReviewedBy:         "reviewed_by",
	CreatedAt:          "created_at",
	UpdatedAt:          "updated_at",
}

var FormConfigurationColumns = struct {
	ID          string
	SchoolID    string
	Name        string
	Description string
	Schema      string
	IsActive    string
	CreatedAt   string
	UpdatedAt   string
}{
	ID:          "id",
	SchoolID:    "school_id",
	Name:        "name",
	Description: "description",
	Schema:      "schema",
	IsActive:    "is_active",
	CreatedAt:   "created_at",
	UpdatedAt:   "updated_at",
}

type (
	schoolRow struct {
		ID        string    `boil:"id"`
		Name      string    `boil:"name"`
		NPSN      string    `boil:"npsn"`
		Address   string    `boil:"address"`
		CreatedAt null.Time `boil:"created_at"`
	}

	submissionRow struct {
		ID                 string      `boil:"id"`
		SchoolID           string      `boil:"school_id"`
		RegistrationNumber string      `boil:"registration_number"`
		FullName           string      `boil:"full_name"`
		NISN               string      `boil:"nisn"`
		NIK                string      `boil:"nik"`
		Gender             string      `boil:"gender"`
		BirthPlace         string      `boil:"birth_place"`
		BirthDate          string      `boil:"birth_date"`
		Religion           string      `boil:"religion"`
		Address            string      `boil:"address"`
		Phone              string      `boil:"phone"`
		Email              string      `boil:"email"`
		FatherName         string      `boil:"father_name"`
		MotherName         string      `boil:"mother_name"`
		FatherOccupation   string      `boil:"father_occupation"`
		MotherOccupation   string      `boil:"mother_occupation"`
		ParentPhone        string      `boil:"parent_phone"`
		PreviousSchool     string      `boil:"previous_school"`
		PreviousSchoolNPSN string      `boil:"previous_school_npsn"`
		GraduationYear     string      `boil:"graduation_year"`
		Achievements       string      `boil:"achievements"`
		Track              string      `boil:"track"`
		Wave               string      `boil:"wave"`
		UploadedFiles      types.JSON  `boil:"uploaded_files"`
		RawData            types.JSON  `boil:"raw_data"`
		Status             string      `boil:"status"`
		Notes              string      `boil:"notes"`
		ReviewedAt         null.Time   `boil:"reviewed_at"`
		ReviewedBy         null.String `boil:"reviewed_by"`
		CreatedAt          null.Time   `boil:"created_at"`
		UpdatedAt          null.Time   `boil:"updated_at"`
	}

	formConfigurationRow struct {
		ID          string     `boil:"id"`
		SchoolID    string     `boil:"school_id"`
		Name        string     `boil:"name"`
		Description string     `boil:"description"`
		Schema      types.JSON `boil:"schema"`
		IsActive    bool       `boil:"is_active"`
		CreatedAt   null.Time  `boil:"created_at"`
		UpdatedAt   null.Time  `boil:"updated_at"`
	}
)

var (
	schoolAllColumns = []string{"id", "name", "npsn", "address", "created_at"}

	submissionAllColumns = []string{
		"id", "school_id", "registration_number", "full_name", "nisn", "nik", "gender", "birth_place",
		"birth_date", "religion", "address", "phone", "email", "father_name", "mother_name",
		"father_occupation", "mother_occupation", "parent_phone", "previous_school", "previous_school_npsn",
		"graduation_year", "achievements", "track", "wave", "uploaded_files", "raw_data", "status", "notes",
		"reviewed_at", "reviewed_by", "created_at", "updated_at",
	}

	formConfigurationAllColumns = []string{
		"id", "school_id", "name", "description", "schema", "is_active", "created_at", "updated_at",
	}
)

// newQuery returns a postgres query built from mods.
func newQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	return q
}

// placeholders returns "$from, ..., $(from+n-1)".
func placeholders(from, n int) string {
	ph := make([]string, 0, n)
	for i := from; i < from+n; i++ {
		ph = append(ph, "$"+strconv.Itoa(i))
	}
	return strings.Join(ph, ", ")
}
