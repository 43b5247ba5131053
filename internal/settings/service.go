// internal/settings/service.go
package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
)

var (
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidRecordNumber = errors.New("record number must be a positive integer")
	ErrStoreUnavailable    = errors.New("settings store unavailable")
	ErrRecordNotFound      = errors.New("settings record not found")
	ErrRecordExists        = errors.New("settings record already exists")
)

// maxRecordNumberDigits keeps stored values inside a 32-bit integer.
const maxRecordNumberDigits = 9

// Store is the narrow interface to the host's singleton settings record.
type Store interface {
	// GetSingleton returns nil, nil when no record exists yet.
	GetSingleton(ctx context.Context) (*Record, error)
	// Create returns ErrRecordExists when another writer created the record first.
	Create(ctx context.Context, opts Options) (*Record, error)
	Update(ctx context.Context, rec *Record, opts Options) (*Record, error)
}

// Actor is the identity invoking an action.
type Actor struct {
	ID       int64
	Username string
	IsAdmin  bool
}

// Service owns the pluginLoginInfo namespace inside the shared settings record. It never
// locks the record: reads and writes are whole-record, so concurrent updates are last
// write wins.
type Service struct {
	store  Store
	logger *log.Logger
}

func NewService(store Store, logger *log.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// ValidateRecordNumber normalizes and checks a record number value.
func ValidateRecordNumber(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxRecordNumberDigits {
		return "", ErrInvalidRecordNumber
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return "", ErrInvalidRecordNumber
		}
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return "", ErrInvalidRecordNumber
	}
	return value, nil
}

// EnsureDefault stores defaultValue as the record number unless a non-empty value already
// exists. It performs at most one write. An unavailable store is logged and skipped so
// startup is never blocked.
func (s *Service) EnsureDefault(ctx context.Context, defaultValue string) error {
	value, err := ValidateRecordNumber(defaultValue)
	if err != nil {
		return fmt.Errorf("invalid default record number %q: %w", defaultValue, err)
	}

	rec, err := s.store.GetSingleton(ctx)
	if err == nil && rec != nil && ParseLoginInfo(rec.Options).Initialized() {
		return nil
	}
	if err == nil {
		_, err = s.writeRecordNumber(ctx, rec, value, true)
	}
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			s.logger.Printf("Warning: system settings store not available, skipping login-info default setup: %v", err)
			return nil
		}
		return fmt.Errorf("error saving default record number: %w", err)
	}
	s.logger.Printf("Initialized login-info record number to %s", value)
	return nil
}

// UpdateRecordNumber merges value into the owned namespace on behalf of actor. Non-admin
// actors are rejected before the store is touched.
func (s *Service) UpdateRecordNumber(ctx context.Context, actor Actor, value string) (*Record, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	value, err := ValidateRecordNumber(value)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.GetSingleton(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading system settings: %w", err)
	}
	updated, err := s.writeRecordNumber(ctx, rec, value, false)
	if err != nil {
		return nil, fmt.Errorf("error saving record number: %w", err)
	}
	s.logger.Printf("Record number set to %s by %s (user %d)", value, actor.Username, actor.ID)
	return updated, nil
}

// Current returns the singleton record without creating it. A missing record is reported
// as an empty one.
func (s *Service) Current(ctx context.Context) (*Record, error) {
	rec, err := s.store.GetSingleton(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &Record{Options: Options{}}, nil
	}
	return rec, nil
}

// RecordNumber returns the stored value, or "" when unset.
func (s *Service) RecordNumber(ctx context.Context) (string, error) {
	rec, err := s.store.GetSingleton(ctx)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", nil
	}
	return ParseLoginInfo(rec.Options).Value(), nil
}

// writeRecordNumber merges value into rec and persists it with a single write. A nil rec
// means the singleton does not exist yet, so it is created with the merged options. With
// keepExisting set, a value written by whoever won a create race is left alone.
func (s *Service) writeRecordNumber(ctx context.Context, rec *Record, value string, keepExisting bool) (*Record, error) {
	if rec == nil {
		merged, err := MergeRecordNumber(Options{}, value)
		if err != nil {
			return nil, err
		}
		created, err := s.store.Create(ctx, merged)
		if !errors.Is(err, ErrRecordExists) {
			return created, err
		}
		// Lost the create race; merge into the winner's record instead.
		rec, err = s.store.GetSingleton(ctx)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, ErrRecordNotFound
		}
		if keepExisting && ParseLoginInfo(rec.Options).Initialized() {
			return rec, nil
		}
	}

	merged, err := MergeRecordNumber(rec.Options, value)
	if err != nil {
		return nil, err
	}
	return s.store.Update(ctx, rec, merged)
}
