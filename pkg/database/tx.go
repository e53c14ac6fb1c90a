package database

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// WithTx runs fn inside a transaction. Any error returned by fn, or a panic,
// rolls the whole transaction back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			c.log.Error("transaction rollback failed", "error", rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Exec runs a rendered statement and returns the number of affected rows.
func Exec(ctx context.Context, q Querier, stmt Statement) (int64, error) {
	query, args := stmt.Query()
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertReturningID runs an INSERT and returns the generated id column.
// PostgreSQL and SQLite (3.35+) both support RETURNING.
func InsertReturningID(ctx context.Context, q Querier, ins *entsql.InsertBuilder) (int64, error) {
	query, args := ins.Returning("id").Query()
	var id int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Count runs a COUNT(*) selector and returns its single value.
func Count(ctx context.Context, q Querier, stmt Statement) (int, error) {
	query, args := stmt.Query()
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
