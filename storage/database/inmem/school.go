package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/school"
)

type schoolRepository struct {
	db *schoolTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) query() []school.School {
	schools := make([]school.School, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		schools = append(schools, *s)
	}
	sort.Slice(schools, func(i, j int) bool {
		if schools[i].CreatedAt.Equal(schools[j].CreatedAt) {
			return schools[i].ID < schools[j].ID
		}
		return schools[i].CreatedAt.Before(schools[j].CreatedAt)
	})
	return schools
}

func (repo *schoolRepository) CreateSchool(_ context.Context, sch school.School, _ ...core.DBExecutor) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id string, _ ...core.DBExecutor) (school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sch, ok := repo.db.table[id]; ok {
		return *sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) GetDefaultSchool(_ context.Context, _ ...core.DBExecutor) (school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if schools := repo.query(); len(schools) > 0 {
		return schools[0], nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) QuerySchools(_ context.Context, _ ...core.DBExecutor) ([]school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}
