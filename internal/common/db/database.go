package db

import (
	"context"
	"database/sql"
)

// Database is the unified interface over a SQL connection pool.
// Repositories depend on this abstraction instead of *sql.DB so tests can
// substitute fakes and the pool can be swapped at runtime.
type Database interface {
	Querier

	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// Ping verifies the connection is alive
	Ping(ctx context.Context) error

	// Close closes the connection pool
	Close() error

	// Stats returns pool statistics
	Stats() Stats
}

// Transaction represents an in-progress database transaction.
type Transaction interface {
	Querier

	Commit() error
	Rollback() error
}

// Rows is the result of a query.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is the result of a single-row query.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result summarizes an executed statement.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Stats holds connection pool statistics.
type Stats struct {
	OpenConnections int
	InUse           int
	Idle            int
	WaitCount       int64
}

// ConvertSQLStats converts database/sql pool stats.
func ConvertSQLStats(s sql.DBStats) Stats {
	return Stats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
	}
}
