package inmemdb

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/core/settings"
)

type settingsRepository struct {
	db *settingsTable
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *DB) *settingsRepository {
	return &settingsRepository{db: db.settings}
}

func cloneSettings(s settings.Settings) settings.Settings {
	if s.Config != nil {
		s.Config = append(json.RawMessage{}, s.Config...)
	}
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		s.UpdatedAt = &t
	}
	return s
}

func (repo *settingsRepository) GetSettings(_ context.Context, provider string, _ ...core.DBExecutor) (settings.Settings, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[provider]; ok {
		return cloneSettings(*s), nil
	}
	return settings.Settings{}, settings.ErrNotFound
}

func (repo *settingsRepository) QuerySettings(_ context.Context, _ ...core.DBExecutor) ([]settings.Settings, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	all := make([]settings.Settings, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		all = append(all, cloneSettings(*s))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Provider < all[j].Provider })
	return all, nil
}

func (repo *settingsRepository) SaveSettings(_ context.Context, s settings.Settings, _ ...core.DBExecutor) (settings.Settings, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := cloneSettings(s)
	repo.db.table[s.Provider] = &stored
	return cloneSettings(stored), nil
}
