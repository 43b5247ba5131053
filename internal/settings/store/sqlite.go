package store

import (
	"context"
	"errors"
	"fmt"

	"logininfo/internal/database"
	"logininfo/internal/settings"
)

type sqliteStore struct {
	db *database.DB
}

// NewSQLite stores the settings record in the host database's system_settings table.
func NewSQLite(db *database.DB) settings.Store {
	return &sqliteStore{db: db}
}

func (s *sqliteStore) GetSingleton(ctx context.Context) (*settings.Record, error) {
	row, err := s.db.GetSystemSettings(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, wrapSQLiteErr(err)
	}
	return toRecord(row)
}

func (s *sqliteStore) Create(ctx context.Context, opts settings.Options) (*settings.Record, error) {
	doc, err := settings.MarshalOptions(opts)
	if err != nil {
		return nil, err
	}
	row, err := s.db.CreateSystemSettings(ctx, "", string(doc))
	if err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, settings.ErrRecordExists
		}
		return nil, wrapSQLiteErr(err)
	}
	return toRecord(row)
}

func (s *sqliteStore) Update(ctx context.Context, rec *settings.Record, opts settings.Options) (*settings.Record, error) {
	if rec == nil {
		return nil, settings.ErrRecordNotFound
	}
	doc, err := settings.MarshalOptions(opts)
	if err != nil {
		return nil, err
	}
	row, err := s.db.UpdateSystemSettingsOptions(ctx, rec.ID, string(doc))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, settings.ErrRecordNotFound
		}
		return nil, wrapSQLiteErr(err)
	}
	return toRecord(row)
}

func wrapSQLiteErr(err error) error {
	if errors.Is(err, database.ErrTableMissing) {
		return fmt.Errorf("%w: %w", settings.ErrStoreUnavailable, err)
	}
	return err
}

func toRecord(row *database.SystemSettings) (*settings.Record, error) {
	opts, err := settings.UnmarshalOptions([]byte(row.Options))
	if err != nil {
		return nil, fmt.Errorf("system settings %d: %w", row.ID, err)
	}
	return &settings.Record{
		ID:        row.ID,
		Title:     row.Title,
		Options:   opts,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
