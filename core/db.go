package core

import (
	"context"
	"database/sql"
)

type (
	// DBExecutor is the query surface the storage bootstrap helpers need;
	// *sql.DB and *sql.Tx both satisfy it.
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	// DB adds liveness checking on top of DBExecutor.
	DB interface {
		DBExecutor

		Ping() error
	}
)

// DBOrdering renders an ORDER BY term for hand-written SQL.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
