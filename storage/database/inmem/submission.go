package inmemdb

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/submission"
)

type submissionRepository struct {
	db *submissionTable
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db.submission}
}

// clone returns a deep copy of sub, so callers never share state with the table.
func clone(sub submission.Submission) submission.Submission {
	if sub.UploadedFiles != nil {
		sub.UploadedFiles = append([]submission.UploadedFile{}, sub.UploadedFiles...)
	}
	if sub.RawData != nil {
		sub.RawData = append(json.RawMessage{}, sub.RawData...)
	}
	if sub.ReviewedAt != nil {
		t := *sub.ReviewedAt
		sub.ReviewedAt = &t
	}
	if sub.ReviewedBy != nil {
		r := *sub.ReviewedBy
		sub.ReviewedBy = &r
	}
	return sub
}

func (repo *submissionRepository) RegistrationNumberExists(_ context.Context, number string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.byNumber[number]
	return ok, nil
}

func (repo *submissionRepository) CreateSubmission(_ context.Context, sub submission.Submission, _ ...core.DBExecutor) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.byNumber[sub.RegistrationNumber]; ok {
		return submission.Submission{}, submission.ErrRegistrationNumberTaken
	}
	stored := clone(sub)
	repo.db.table[sub.ID] = &stored
	repo.db.byNumber[sub.RegistrationNumber] = sub.ID
	return clone(stored), nil
}

func (repo *submissionRepository) GetSubmission(_ context.Context, id string, _ ...core.DBExecutor) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		return clone(*sub), nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) GetSubmissionByNumber(_ context.Context, number string, _ ...core.DBExecutor) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if id, ok := repo.db.byNumber[number]; ok {
		return clone(*repo.db.table[id]), nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func matches(sub *submission.Submission, filter *submission.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Status != "" && sub.Status != filter.Status {
		return false
	}
	if filter.Track != "" && !strings.EqualFold(sub.Track, filter.Track) {
		return false
	}
	if filter.Wave != "" && !strings.EqualFold(sub.Wave, filter.Wave) {
		return false
	}
	if filter.SchoolID != "" && sub.SchoolID != filter.SchoolID {
		return false
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		found := false
		for _, val := range []string{sub.FullName, sub.Email, sub.RegistrationNumber, sub.ParentPhone} {
			if strings.Contains(strings.ToLower(val), search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// compare returns -1, 0 or 1 comparing a & b on field.
func compare(a, b *submission.Submission, field string) int {
	cmpTime := func(x, y time.Time) int {
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
		return 0
	}
	switch field {
	case "created_at":
		return cmpTime(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return cmpTime(a.UpdatedAt, b.UpdatedAt)
	case "reviewed_at":
		var x, y time.Time
		if a.ReviewedAt != nil {
			x = *a.ReviewedAt
		}
		if b.ReviewedAt != nil {
			y = *b.ReviewedAt
		}
		return cmpTime(x, y)
	case "registration_number":
		return strings.Compare(a.RegistrationNumber, b.RegistrationNumber)
	case "full_name":
		return strings.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
	case "status":
		return strings.Compare(a.Status, b.Status)
	}
	return 0
}

func (repo *submissionRepository) QuerySubmissions(
	_ context.Context,
	filter *submission.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	found := make([]*submission.Submission, 0, len(repo.db.table))
	for _, sub := range repo.db.table {
		if matches(sub, filter) {
			found = append(found, sub)
		}
	}

	if len(ordering) == 0 {
		ordering = submission.DefaultOrdering
	}
	sort.Slice(found, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(found[i], found[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return found[i].ID < found[j].ID
	})

	subs := make([]submission.Submission, 0, len(found))
	for _, sub := range found {
		subs = append(subs, clone(*sub))
	}
	return subs, nil
}

func (repo *submissionRepository) CountSubmissionsByStatus(_ context.Context, _ ...core.DBExecutor) (submission.Stats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var stats submission.Stats
	for _, sub := range repo.db.table {
		stats.Add(sub.Status, 1)
	}
	return stats, nil
}

func (repo *submissionRepository) UpdateSubmission(
	_ context.Context,
	sub submission.Submission,
	expectedStatus string,
	_ ...core.DBExecutor,
) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[sub.ID]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	if orig.Status != expectedStatus {
		return submission.Submission{}, submission.ErrStaleStatus
	}

	// only the review fields are mutable
	updated := clone(*orig)
	updated.Status = sub.Status
	updated.Notes = sub.Notes
	updated.ReviewedAt = sub.ReviewedAt
	updated.ReviewedBy = sub.ReviewedBy
	updated.UpdatedAt = sub.UpdatedAt
	updated = clone(updated)

	repo.db.table[sub.ID] = &updated
	return clone(updated), nil
}

func (repo *submissionRepository) DeleteSubmission(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return submission.ErrNotFound
	}
	delete(repo.db.byNumber, sub.RegistrationNumber)
	delete(repo.db.table, id)
	return nil
}
