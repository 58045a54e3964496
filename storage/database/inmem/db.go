package inmemdb

import (
	"sync"

	"github.com/trezcool/spmb/core/form"
	"github.com/trezcool/spmb/core/school"
	"github.com/trezcool/spmb/core/settings"
	"github.com/trezcool/spmb/core/submission"
)

type (
	// DB is a goroutine-safe in-memory store enforcing the same unique constraints as the SQL schema.
	DB struct {
		school     *schoolTable
		submission *submissionTable
		form       *formTable
		settings   *settingsTable
	}

	schoolTable struct {
		table map[string]*school.School
		mutex sync.RWMutex
	}

	submissionTable struct {
		table    map[string]*submission.Submission
		byNumber map[string]string // {registrationNumber: id}
		mutex    sync.RWMutex
	}

	formTable struct {
		table map[string]*form.Configuration
		mutex sync.RWMutex
	}

	settingsTable struct {
		table map[string]*settings.Settings
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		school:     &schoolTable{table: make(map[string]*school.School)},
		submission: &submissionTable{table: make(map[string]*submission.Submission), byNumber: make(map[string]string)},
		form:       &formTable{table: make(map[string]*form.Configuration)},
		settings:   &settingsTable{table: make(map[string]*settings.Settings)},
	}
}
