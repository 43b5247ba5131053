// Package store provides the settings.Store backends used by the login-info feature.
package store

import (
	"fmt"

	"logininfo/internal/database"
	"logininfo/internal/settings"
)

// Driver identifiers supported by the settings store.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config describes the store selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	DB *database.DB
}

// New creates a settings store based on the provided configuration. SQLite is the default
// because the settings record lives next to the host's other tables.
func New(cfg Config, deps Dependencies) (settings.Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	switch driver {
	case DriverSQLite:
		if deps.DB == nil {
			return nil, fmt.Errorf("sqlite driver requires database handle")
		}
		return NewSQLite(deps.DB), nil
	case DriverRedis:
		return NewRedis(cfg)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported settings store driver: %s", driver)
	}
}
