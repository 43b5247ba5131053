// internal/database/queries.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error definitions
var (
	ErrNotFound      = errors.New("record not found")
	ErrTableMissing  = errors.New("table missing")
	ErrAlreadyExists = errors.New("record already exists")
)

// SystemSettings is the raw system_settings row. Options holds the JSON document as stored.
type SystemSettings struct {
	ID        int64
	Title     string
	Options   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// classify maps driver errors that mean "the schema is not there" onto ErrTableMissing.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %v", ErrTableMissing, err)
	}
	return err
}

const selectSystemSettings = `SELECT id, title, options, created_at, updated_at
        FROM system_settings ORDER BY id LIMIT 1`

// GetSystemSettings returns the singleton settings row, or ErrNotFound when none exists.
func (db *DB) GetSystemSettings(ctx context.Context) (*SystemSettings, error) {
	var s SystemSettings
	err := db.QueryRowContext(ctx, selectSystemSettings).
		Scan(&s.ID, &s.Title, &s.Options, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}
	return &s, nil
}

// CreateSystemSettings inserts the settings row and returns it. The table holds a single
// row, so ErrAlreadyExists is returned when one is already present.
func (db *DB) CreateSystemSettings(ctx context.Context, title, options string) (*SystemSettings, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO system_settings (title, options)
        SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM system_settings)`,
		title, options,
	)
	if err != nil {
		return nil, classify(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrAlreadyExists
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.getSystemSettingsByID(ctx, id)
}

// UpdateSystemSettingsOptions replaces the options document of row id.
func (db *DB) UpdateSystemSettingsOptions(ctx context.Context, id int64, options string) (*SystemSettings, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE system_settings
        SET options = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?`,
		options, id,
	)
	if err != nil {
		return nil, classify(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return db.getSystemSettingsByID(ctx, id)
}

func (db *DB) getSystemSettingsByID(ctx context.Context, id int64) (*SystemSettings, error) {
	var s SystemSettings
	err := db.QueryRowContext(ctx,
		`SELECT id, title, options, created_at, updated_at
        FROM system_settings WHERE id = ?`, id,
	).Scan(&s.ID, &s.Title, &s.Options, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}
	return &s, nil
}
