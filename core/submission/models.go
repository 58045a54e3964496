package submission

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/spmb/core"
)

// Statuses
const (
	StatusPending  = "pending"
	StatusReviewed = "reviewed"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	DefaultReviewer = "admin"
)

var Statuses = []string{StatusPending, StatusReviewed, StatusApproved, StatusRejected}

type UploadedFile struct {
	URL  string `json:"url" validate:"required,url"`
	Name string `json:"name"`
}

// Applicant holds the enrollment form fields filled by the applicant.
type Applicant struct {
	FullName           string `json:"namaLengkap" validate:"notblank,max=150"`
	NISN               string `json:"nisn" validate:"omitempty,numeric,len=10"`
	NIK                string `json:"nik" validate:"omitempty,numeric,len=16"`
	Gender             string `json:"jenisKelamin" validate:"omitempty,oneof=L P"`
	BirthPlace         string `json:"tempatLahir"`
	BirthDate          string `json:"tanggalLahir" validate:"omitempty,datetime=2006-01-02"`
	Religion           string `json:"agama"`
	Address            string `json:"alamat"`
	Phone              string `json:"noHp" validate:"omitempty,phone"`
	Email              string `json:"email" validate:"omitempty,email"`
	FatherName         string `json:"namaAyah"`
	MotherName         string `json:"namaIbu"`
	FatherOccupation   string `json:"pekerjaanAyah"`
	MotherOccupation   string `json:"pekerjaanIbu"`
	ParentPhone        string `json:"noHpOrangTua" validate:"omitempty,phone"`
	PreviousSchool     string `json:"asalSekolah"`
	PreviousSchoolNPSN string `json:"npsnAsalSekolah" validate:"omitempty,numeric,len=8"`
	GraduationYear     string `json:"tahunLulus" validate:"omitempty,numeric,len=4"`
	Achievements       string `json:"prestasi"`
	Track              string `json:"jalurPendaftaran" validate:"max=50"` // jalur
	Wave               string `json:"gelombang" validate:"max=50"`        // gelombang
}

func (a *Applicant) clean() {
	a.FullName = core.CleanString(a.FullName)
	a.NISN = core.CleanString(a.NISN)
	a.NIK = core.CleanString(a.NIK)
	a.Gender = core.CleanString(a.Gender)
	a.BirthPlace = core.CleanString(a.BirthPlace)
	a.BirthDate = core.CleanString(a.BirthDate)
	a.Religion = core.CleanString(a.Religion)
	a.Address = core.CleanString(a.Address)
	a.Phone = core.CleanString(a.Phone)
	a.Email = core.CleanString(a.Email, true /* lower */)
	a.FatherName = core.CleanString(a.FatherName)
	a.MotherName = core.CleanString(a.MotherName)
	a.FatherOccupation = core.CleanString(a.FatherOccupation)
	a.MotherOccupation = core.CleanString(a.MotherOccupation)
	a.ParentPhone = core.CleanString(a.ParentPhone)
	a.PreviousSchool = core.CleanString(a.PreviousSchool)
	a.PreviousSchoolNPSN = core.CleanString(a.PreviousSchoolNPSN)
	a.GraduationYear = core.CleanString(a.GraduationYear)
	a.Achievements = core.CleanString(a.Achievements)
	a.Track = core.CleanString(a.Track, true /* lower */)
	a.Wave = core.CleanString(a.Wave)
}

type Submission struct {
	ID                 string `json:"id"`
	RegistrationNumber string `json:"registrationNumber"`
	SchoolID           string `json:"schoolId"`
	Applicant
	UploadedFiles []UploadedFile  `json:"uploadedFiles"`
	RawData       json.RawMessage `json:"rawData"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes"`
	ReviewedAt    *time.Time      `json:"reviewedAt"` // UTC
	ReviewedBy    *string         `json:"reviewedBy"`
	CreatedAt     time.Time       `json:"createdAt"` // UTC
	UpdatedAt     time.Time       `json:"updatedAt"` // UTC
}

func (s *Submission) IsTerminal() bool {
	return s.Status == StatusApproved || s.Status == StatusRejected
}

// NewSubmission is the payload posted by an applicant.
type NewSubmission struct {
	Applicant
	UploadedFiles []UploadedFile `json:"uploadedFiles" validate:"omitempty,max=20,dive"`
	SchoolID      string         `json:"schoolId" validate:"omitempty,uuid"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.clean()
	ns.SchoolID = core.CleanString(ns.SchoolID)
	for i := range ns.UploadedFiles {
		ns.UploadedFiles[i].URL = core.CleanString(ns.UploadedFiles[i].URL)
		ns.UploadedFiles[i].Name = core.CleanString(ns.UploadedFiles[i].Name)
	}
	return validate.Struct(ns)
}

// Receipt is the minimal confirmation returned to the applicant.
type Receipt struct {
	ID                 string `json:"id"`
	RegistrationNumber string `json:"registrationNumber"`
}

// UpdateSubmission defines what a reviewer may change on a Submission.
// Nil fields are left untouched.
type UpdateSubmission struct {
	Status     *string `json:"status" validate:"omitempty,status"`
	Notes      *string `json:"notes" validate:"omitempty,max=2000"`
	ReviewedBy *string `json:"reviewedBy" validate:"omitempty,max=100"`
}

func (us *UpdateSubmission) Validate(validate *validator.Validate) error {
	if us.Status != nil {
		s := core.CleanString(*us.Status, true /* lower */)
		us.Status = &s
	}
	if us.ReviewedBy != nil {
		r := core.CleanString(*us.ReviewedBy)
		us.ReviewedBy = &r
	}
	return validate.Struct(us)
}

func (us *UpdateSubmission) IsEmpty() bool {
	return us.Status == nil && us.Notes == nil
}

type QueryFilter struct {
	Status   string `query:"status"`
	Search   string `query:"search"`
	Track    string `query:"jalur"`
	Wave     string `query:"gelombang"`
	SchoolID string `query:"schoolId"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.Search == "" && qf.Track == "" && qf.Wave == "" && qf.SchoolID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
	qf.Track = core.CleanString(qf.Track, true /* lower */)
	qf.Wave = core.CleanString(qf.Wave)
	qf.SchoolID = core.CleanString(qf.SchoolID)
}

// Stats are the dashboard counters, computed over all submissions.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Reviewed int `json:"reviewed"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Add increments the counter of status by n.
func (s *Stats) Add(status string, n int) {
	switch status {
	case StatusPending:
		s.Pending += n
	case StatusReviewed:
		s.Reviewed += n
	case StatusApproved:
		s.Approved += n
	case StatusRejected:
		s.Rejected += n
	default:
		return
	}
	s.Total += n
}

// OrderingFields are the columns submissions may be ordered by.
var OrderingFields = map[string]bool{
	"created_at":          true,
	"updated_at":          true,
	"reviewed_at":         true,
	"registration_number": true,
	"full_name":           true,
	"status":              true,
}

// DefaultOrdering is newest first.
var DefaultOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}

// CleanOrdering drops unknown fields and falls back to DefaultOrdering.
func CleanOrdering(ordering []core.DBOrdering) []core.DBOrdering {
	cleaned := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if OrderingFields[ord.Field] {
			cleaned = append(cleaned, ord)
		}
	}
	if len(cleaned) == 0 {
		return DefaultOrdering
	}
	return cleaned
}
