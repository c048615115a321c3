package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTx runs fn inside a transaction carried by the context passed to fn.
// A call made while a transaction is already active joins it, so a service
// can compose repository calls that each use WithTx.
func (d *Database) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// inTx reports whether ctx carries an active transaction.
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// Conn returns the transaction carried by ctx, or the pool.
func (d *Database) Conn(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return d.DB
}

func (d *Database) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.Conn(ctx).ExecContext(ctx, d.Rebind(query), args...)
}

func (d *Database) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.Conn(ctx).QueryContext(ctx, d.Rebind(query), args...)
}

func (d *Database) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.Conn(ctx).QueryRowContext(ctx, d.Rebind(query), args...)
}

// ForUpdate returns the row-lock suffix for SELECTs made inside WithTx.
// SQLite has no row locks; its single connection already serializes writers.
func (d *Database) ForUpdate() string {
	if d.Dialect == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// Rebind rewrites ? placeholders to $1..$n for Postgres. Quoted literals are
// left untouched.
func (d *Database) Rebind(query string) string {
	if d.Dialect != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var (
		b       strings.Builder
		n       int
		inQuote bool
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
