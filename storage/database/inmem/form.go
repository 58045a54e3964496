package inmemdb

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/form"
)

type formRepository struct {
	db *formTable
}

var _ form.Repository = (*formRepository)(nil) // interface compliance check

func NewFormRepository(db *DB) *formRepository {
	return &formRepository{db: db.form}
}

func cloneConfiguration(cfg form.Configuration) form.Configuration {
	if cfg.Schema != nil {
		cfg.Schema = append(json.RawMessage{}, cfg.Schema...)
	}
	return cfg
}

// newer reports whether a was updated after b; ties are broken by id.
func newer(a, b *form.Configuration) bool {
	if a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.ID > b.ID
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}

func (repo *formRepository) GetActiveConfiguration(_ context.Context, schoolID string, _ ...core.DBExecutor) (form.Configuration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var latest *form.Configuration
	for _, cfg := range repo.db.table {
		if cfg.SchoolID != schoolID || !cfg.IsActive {
			continue
		}
		if latest == nil || newer(cfg, latest) {
			latest = cfg
		}
	}
	if latest == nil {
		return form.Configuration{}, form.ErrNotFound
	}
	return cloneConfiguration(*latest), nil
}

func (repo *formRepository) QueryConfigurations(_ context.Context, schoolID string, _ ...core.DBExecutor) ([]form.Configuration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	found := make([]*form.Configuration, 0, len(repo.db.table))
	for _, cfg := range repo.db.table {
		if schoolID == "" || cfg.SchoolID == schoolID {
			found = append(found, cfg)
		}
	}
	sort.Slice(found, func(i, j int) bool { return newer(found[i], found[j]) })

	cfgs := make([]form.Configuration, 0, len(found))
	for _, cfg := range found {
		cfgs = append(cfgs, cloneConfiguration(*cfg))
	}
	return cfgs, nil
}

func (repo *formRepository) GetConfiguration(_ context.Context, id string, _ ...core.DBExecutor) (form.Configuration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cfg, ok := repo.db.table[id]; ok {
		return cloneConfiguration(*cfg), nil
	}
	return form.Configuration{}, form.ErrNotFound
}

func (repo *formRepository) CreateConfiguration(_ context.Context, cfg form.Configuration, _ ...core.DBExecutor) (form.Configuration, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := cloneConfiguration(cfg)
	repo.db.table[cfg.ID] = &stored
	return cloneConfiguration(stored), nil
}

func (repo *formRepository) UpdateConfiguration(_ context.Context, cfg form.Configuration, _ ...core.DBExecutor) (form.Configuration, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[cfg.ID]
	if !ok {
		return form.Configuration{}, form.ErrNotFound
	}
	cfg.SchoolID = orig.SchoolID
	cfg.CreatedAt = orig.CreatedAt
	stored := cloneConfiguration(cfg)
	repo.db.table[cfg.ID] = &stored
	return cloneConfiguration(stored), nil
}

func (repo *formRepository) DeleteConfiguration(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return form.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
