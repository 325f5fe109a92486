package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/ytmirror/internal/shared"
)

// inTx runs fn in a transaction when db is a pool, or directly when db already is one.
func inTx(ctx context.Context, db shared.DBTX, fn func(q shared.DBTX) error) error {
	if pool, ok := db.(*sql.DB); ok {
		return shared.WithTx(ctx, pool, func(tx *sql.Tx) error { return fn(tx) })
	}
	return fn(db)
}

// requireAffected maps a zero-row update to notFound.
func requireAffected(result sql.Result, notFound error, id any) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %v", notFound, id)
	}
	return nil
}

// placeholders returns "?, ?, ..." for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
