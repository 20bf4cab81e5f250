package repository

import (
	"context"
	"database/sql"
	"strings"
	"sync/atomic"
)

// Querier is the subset of *sql.DB and *sql.Tx the repositories use.
// Repositories built on a *sql.DB run each statement on its own; the
// unit of work builds them on a counting transaction instead.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// countingTx forwards to a transaction and sums the rows affected by
// every statement executed through it.
type countingTx struct {
	*sql.Tx
	changes atomic.Int64
}

func (c *countingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.Tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil {
		c.changes.Add(n)
	}
	return res, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// uintArgs converts ids into query arguments.
func uintArgs(ids []uint64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// nullString converts a nullable column into an optional string.
func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// nullUint converts a nullable integer column into an optional id.
func nullUint(ni sql.NullInt64) *uint64 {
	if !ni.Valid {
		return nil
	}
	v := uint64(ni.Int64)
	return &v
}
