package boiledrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/submission"
)

const pqUniqueViolation = "23505"

type submissionRepository struct {
	exec core.DBExecutor
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(exec core.DBExecutor) *submissionRepository {
	return &submissionRepository{exec: exec}
}

func (repo submissionRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo submissionRepository) boil(sub submission.Submission) (*submissionRow, error) {
	files := sub.UploadedFiles
	if files == nil {
		files = []submission.UploadedFile{}
	}
	filesDoc, err := json.Marshal(files)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling uploaded files")
	}
	raw := sub.RawData
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	a := sub.Applicant
	return &submissionRow{
		ID:                 sub.ID,
		SchoolID:           sub.SchoolID,
		RegistrationNumber: sub.RegistrationNumber,
		FullName:           a.FullName,
		NISN:               a.NISN,
		NIK:                a.NIK,
		Gender:             a.Gender,
		BirthPlace:         a.BirthPlace,
		BirthDate:          a.BirthDate,
		Religion:           a.Religion,
		Address:            a.Address,
		Phone:              a.Phone,
		Email:              a.Email,
		FatherName:         a.FatherName,
		MotherName:         a.MotherName,
		FatherOccupation:   a.FatherOccupation,
		MotherOccupation:   a.MotherOccupation,
		ParentPhone:        a.ParentPhone,
		PreviousSchool:     a.PreviousSchool,
		PreviousSchoolNPSN: a.PreviousSchoolNPSN,
		GraduationYear:     a.GraduationYear,
		Achievements:       a.Achievements,
		Track:              a.Track,
		Wave:               a.Wave,
		UploadedFiles:      types.JSON(filesDoc),
		RawData:            types.JSON(raw),
		Status:             sub.Status,
		Notes:              sub.Notes,
		ReviewedAt:         null.TimeFromPtr(sub.ReviewedAt),
		ReviewedBy:         null.StringFromPtr(sub.ReviewedBy),
		CreatedAt:          null.NewTime(sub.CreatedAt.UTC(), !sub.CreatedAt.IsZero()),
		UpdatedAt:          null.NewTime(sub.UpdatedAt.UTC(), !sub.UpdatedAt.IsZero()),
	}, nil
}

func (repo submissionRepository) unboil(row submissionRow) (submission.Submission, error) {
	files := make([]submission.UploadedFile, 0)
	if len(row.UploadedFiles) > 0 {
		if err := row.UploadedFiles.Unmarshal(&files); err != nil {
			return submission.Submission{}, errors.Wrap(err, "unmarshalling uploaded files")
		}
	}

	sub := submission.Submission{
		ID:                 row.ID,
		RegistrationNumber: row.RegistrationNumber,
		SchoolID:           row.SchoolID,
		Applicant: submission.Applicant{
			FullName:           row.FullName,
			NISN:               row.NISN,
			NIK:                row.NIK,
			Gender:             row.Gender,
			BirthPlace:         row.BirthPlace,
			BirthDate:          row.BirthDate,
			Religion:           row.Religion,
			Address:            row.Address,
			Phone:              row.Phone,
			Email:              row.Email,
			FatherName:         row.FatherName,
			MotherName:         row.MotherName,
			FatherOccupation:   row.FatherOccupation,
			MotherOccupation:   row.MotherOccupation,
			ParentPhone:        row.ParentPhone,
			PreviousSchool:     row.PreviousSchool,
			PreviousSchoolNPSN: row.PreviousSchoolNPSN,
			GraduationYear:     row.GraduationYear,
			Achievements:       row.Achievements,
			Track:              row.Track,
			Wave:               row.Wave,
		},
		UploadedFiles: files,
		RawData:       json.RawMessage(row.RawData),
		Status:        row.Status,
		Notes:         row.Notes,
		ReviewedBy:    row.ReviewedBy.Ptr(),
		CreatedAt:     row.CreatedAt.Time.UTC(),
		UpdatedAt:     row.UpdatedAt.Time.UTC(),
	}
	if row.ReviewedAt.Valid {
		t := row.ReviewedAt.Time.UTC()
		sub.ReviewedAt = &t
	}
	return sub, nil
}

func (repo submissionRepository) unboilSlice(rows []submissionRow) ([]submission.Submission, error) {
	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		sub, err := repo.unboil(row)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// trapNoRowsErr maps psql "no rows" err to submission.ErrNotFound
func (repo submissionRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return submission.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo submissionRepository) RegistrationNumberExists(ctx context.Context, number string, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := queries.Raw(
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)", TableNames.Submission, SubmissionColumns.RegistrationNumber),
		number,
	).QueryRowContext(ctx, repo.getExec(exec)).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "checking registration number")
	}
	return exists, nil
}

// CreateSubmission inserts the row unless the registration number is taken, in one statement:
// the UNIQUE constraint is the authoritative guard against concurrent submissions.
func (repo submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission, exec ...core.DBExecutor) (submission.Submission, error) {
	r, err := repo.boil(sub)
	if err != nil {
		return submission.Submission{}, err
	}

	cols := strings.Join(submissionAllColumns, ", ")
	var row submissionRow
	err = queries.Raw(
		"INSERT INTO "+TableNames.Submission+" ("+cols+") "+
			"VALUES ("+placeholders(1, len(submissionAllColumns))+") "+
			"ON CONFLICT ("+SubmissionColumns.RegistrationNumber+") DO NOTHING "+
			"RETURNING "+cols,
		r.ID, r.SchoolID, r.RegistrationNumber, r.FullName, r.NISN, r.NIK, r.Gender, r.BirthPlace,
		r.BirthDate, r.Religion, r.Address, r.Phone, r.Email, r.FatherName, r.MotherName,
		r.FatherOccupation, r.MotherOccupation, r.ParentPhone, r.PreviousSchool, r.PreviousSchoolNPSN,
		r.GraduationYear, r.Achievements, r.Track, r.Wave, r.UploadedFiles, r.RawData, r.Status, r.Notes,
		r.ReviewedAt, r.ReviewedBy, r.CreatedAt, r.UpdatedAt,
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows { // conflict: nothing inserted
			return submission.Submission{}, submission.ErrRegistrationNumberTaken
		}
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return submission.Submission{}, submission.ErrRegistrationNumberTaken
		}
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return repo.unboil(row)
}

func (repo submissionRepository) getBy(ctx context.Context, col, val string, exec []core.DBExecutor) (submission.Submission, error) {
	var row submissionRow
	err := newQuery(
		qm.Select(submissionAllColumns...),
		qm.From(TableNames.Submission),
		qm.Where(col+" = ?", val),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return submission.Submission{}, repo.trapNoRowsErr(err, "finding submission by "+col)
	}
	return repo.unboil(row)
}

func (repo submissionRepository) GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (submission.Submission, error) {
	return repo.getBy(ctx, SubmissionColumns.ID, id, exec)
}

func (repo submissionRepository) GetSubmissionByNumber(ctx context.Context, number string, exec ...core.DBExecutor) (submission.Submission, error) {
	return repo.getBy(ctx, SubmissionColumns.RegistrationNumber, number, exec)
}

func (repo submissionRepository) QuerySubmissions(
	ctx context.Context,
	filter *submission.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]submission.Submission, error) {
	mods := []qm.QueryMod{
		qm.Select(submissionAllColumns...),
		qm.From(TableNames.Submission),
	}

	if filter != nil {
		if filter.Status != "" {
			mods = append(mods, qm.Where(SubmissionColumns.Status+" = ?", filter.Status))
		}
		if filter.Track != "" {
			mods = append(mods, qm.Where("LOWER("+SubmissionColumns.Track+") = LOWER(?)", filter.Track))
		}
		if filter.Wave != "" {
			mods = append(mods, qm.Where("LOWER("+SubmissionColumns.Wave+") = LOWER(?)", filter.Wave))
		}
		if filter.SchoolID != "" {
			mods = append(mods, qm.Where(SubmissionColumns.SchoolID+"::text = ?", filter.SchoolID))
		}
		// submissions with full name, email, registration number or parent phone matching the search keyword
		if filter.Search != "" {
			val := "%" + escapeLike(filter.Search) + "%"
			mods = append(mods, qm.Expr(qm.Where(
				fmt.Sprintf(
					"%s ILIKE ? OR %s ILIKE ? OR %s ILIKE ? OR %s ILIKE ?",
					SubmissionColumns.FullName, SubmissionColumns.Email,
					SubmissionColumns.RegistrationNumber, SubmissionColumns.ParentPhone),
				val, val, val, val)))
		}
	}

	if len(ordering) == 0 {
		ordering = submission.DefaultOrdering
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orderList = append(orderList, pq.QuoteIdentifier(ord.Field)+" "+ord.Direction())
	}
	orderList = append(orderList, SubmissionColumns.ID+" ASC")
	mods = append(mods, qm.OrderBy(strings.Join(orderList, ", ")))

	var rows []submissionRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return repo.unboilSlice(rows)
}

func (repo submissionRepository) CountSubmissionsByStatus(ctx context.Context, exec ...core.DBExecutor) (submission.Stats, error) {
	var counts []struct {
		Status string `boil:"status"`
		Count  int    `boil:"count"`
	}
	err := queries.Raw(fmt.Sprintf(
		"SELECT %s, COUNT(*) AS count FROM %s GROUP BY %s",
		SubmissionColumns.Status, TableNames.Submission, SubmissionColumns.Status,
	)).Bind(ctx, repo.getExec(exec), &counts)
	if err != nil {
		return submission.Stats{}, errors.Wrap(err, "counting submissions by status")
	}

	var stats submission.Stats
	for _, c := range counts {
		stats.Add(c.Status, c.Count)
	}
	return stats, nil
}

// UpdateSubmission writes the review fields only if nobody changed the status in the meantime.
func (repo submissionRepository) UpdateSubmission(
	ctx context.Context,
	sub submission.Submission,
	expectedStatus string,
	exec ...core.DBExecutor,
) (submission.Submission, error) {
	exe := repo.getExec(exec)

	var row submissionRow
	err := queries.Raw(
		fmt.Sprintf(
			"UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5 WHERE %s = $6 AND %s = $7 RETURNING %s",
			TableNames.Submission,
			SubmissionColumns.Status, SubmissionColumns.Notes, SubmissionColumns.ReviewedAt,
			SubmissionColumns.ReviewedBy, SubmissionColumns.UpdatedAt,
			SubmissionColumns.ID, SubmissionColumns.Status,
			strings.Join(submissionAllColumns, ", "),
		),
		sub.Status, sub.Notes, null.TimeFromPtr(sub.ReviewedAt), null.StringFromPtr(sub.ReviewedBy),
		null.NewTime(sub.UpdatedAt.UTC(), !sub.UpdatedAt.IsZero()), sub.ID, expectedStatus,
	).Bind(ctx, exe, &row)
	if err == nil {
		return repo.unboil(row)
	}
	if errors.Cause(err) != sql.ErrNoRows {
		return submission.Submission{}, errors.Wrap(err, "updating submission")
	}

	// nothing updated: either the row is gone or its status moved on
	var exists bool
	err = queries.Raw(
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)", TableNames.Submission, SubmissionColumns.ID),
		sub.ID,
	).QueryRowContext(ctx, exe).Scan(&exists)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "checking submission")
	}
	if !exists {
		return submission.Submission{}, submission.ErrNotFound
	}
	return submission.Submission{}, submission.ErrStaleStatus
}

func (repo submissionRepository) DeleteSubmission(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := queries.Raw(
		fmt.Sprintf("DELETE FROM %s WHERE %s = $1", TableNames.Submission, SubmissionColumns.ID),
		id,
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	if cnt == 0 {
		return submission.ErrNotFound
	}
	return nil
}

// escapeLike escapes the LIKE wildcards of s.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
