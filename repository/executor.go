package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// SQLExecutor adapts a GORM connection to the seeder's Executor contract.
// GORM rebinds the builder's `?` placeholders for the active dialect.
// Statements always run on the pool, never on a context transaction: a flush
// issues its two statements concurrently, which a single transaction
// connection cannot serve.
type SQLExecutor struct {
	db *gorm.DB
}

// NewSQLExecutor creates an executor backed by the given connection
func NewSQLExecutor(db *gorm.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// Exec runs one parameterized statement
func (e *SQLExecutor) Exec(ctx context.Context, query string, args ...any) error {
	if err := e.db.WithContext(ctx).Exec(query, args...).Error; err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}
