package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/ytmirror/internal/shared"
)

// SettingsRepository stores small key/value flags.
type SettingsRepository struct {
	db shared.DBTX
}

func NewSettingsRepository(db shared.DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *SettingsRepository) WithTx(tx *sql.Tx) *SettingsRepository {
	return &SettingsRepository{db: tx}
}

// Get returns the value of key and whether it is set.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, shared.NowMillis())
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// GetFlag reports whether key is set to "1".
func (r *SettingsRepository) GetFlag(ctx context.Context, key string) (bool, error) {
	v, ok, err := r.Get(ctx, key)
	return ok && v == "1", err
}

// SetFlag sets key to "1".
func (r *SettingsRepository) SetFlag(ctx context.Context, key string) error {
	return r.Set(ctx, key, "1")
}
