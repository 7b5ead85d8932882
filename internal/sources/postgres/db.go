package postgres

import (
	"context"
	"database/sql"
)

// RowScanner is the cursor over an aggregate query result.
type RowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DB is read-only: sources never write to the primary tables.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error)
}

type sqlDB struct {
	db *sql.DB
}

func NewSQLDB(db *sql.DB) DB {
	return &sqlDB{db: db}
}

func (s *sqlDB) QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
