package core

import (
	"context"
	"database/sql"
)

// DBExecutor is satisfied by *sql.DB and *sql.Tx (and by sqlboiler's boil.ContextExecutor).
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) Direction() string {
	if ord.Ascending {
		return "ASC"
	}
	return "DESC"
}
