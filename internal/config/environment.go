// internal/config/environment.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const envPrefix = "LOGININFO_"

type Config struct {
	Port                int    `toml:"port"`
	DBPath              string `toml:"db_path"`
	DataPath            string `toml:"data_path"`
	ProductionMode      bool   `toml:"production"`
	UseHTTPS            bool   `toml:"use_https"`
	DefaultRecordNumber string `toml:"default_record_number"`

	Store  StoreConfig  `toml:"store"`
	Layout LayoutConfig `toml:"layout"`
}

// StoreConfig selects the settings store backend.
type StoreConfig struct {
	Backend string      `toml:"backend"`
	Redis   RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// LayoutConfig controls how the record number reaches the sign-in page. With Composition
// off the host does not expose its auth layout and the widget is attached by polling.
type LayoutConfig struct {
	Composition       bool          `toml:"composition"`
	PollInterval      time.Duration `toml:"poll_interval"`
	PollTimeout       time.Duration `toml:"poll_timeout"`
	AnchorSelector    string        `toml:"anchor_selector"`
	ContainerSelector string        `toml:"container_selector"`
	MountID           string        `toml:"mount_id"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                8080, // default port
		DBPath:              "data/logininfo.db",
		DataPath:            "data",
		DefaultRecordNumber: "10",
		Store: StoreConfig{
			Backend: "sqlite",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "logininfo:",
			},
		},
		Layout: LayoutConfig{
			Composition:  true,
			PollInterval: 500 * time.Millisecond,
			PollTimeout:  10 * time.Second,
		},
	}
}

// GetConfig returns the defaults overridden by environment variables.
func GetConfig() Config {
	config := Default()
	applyEnv(&config)
	return config
}

// Load reads the optional TOML file at path and then applies environment overrides.
func Load(path string) (Config, error) {
	config := Default()
	if path != "" {
		if err := LoadFile(path, &config); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&config)
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// LoadFile decodes the TOML file at path over config. Keys absent from the file keep their
// current values.
func LoadFile(path string, config *Config) error {
	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
	}
	return nil
}

// Validate checks values that cannot be fixed up later.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.Store.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unsupported store backend: %q", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("redis backend requires an address")
	}
	if c.Layout.PollInterval <= 0 || c.Layout.PollTimeout <= 0 {
		return fmt.Errorf("layout poll interval and timeout must be positive")
	}
	return nil
}

func (c Config) GetAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

func applyEnv(config *Config) {
	// Override with environment variables if present
	if port := getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	setString(&config.DBPath, "DB_PATH")
	setString(&config.DataPath, "DATA_PATH")
	setBool(&config.ProductionMode, "PRODUCTION")
	setBool(&config.UseHTTPS, "USE_HTTPS")
	setString(&config.DefaultRecordNumber, "DEFAULT_RECORD_NUMBER")

	setString(&config.Store.Backend, "STORE_BACKEND")
	setString(&config.Store.Redis.Addr, "REDIS_ADDR")
	setString(&config.Store.Redis.Username, "REDIS_USERNAME")
	setString(&config.Store.Redis.Password, "REDIS_PASSWORD")
	setString(&config.Store.Redis.Prefix, "REDIS_PREFIX")
	if db := getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			config.Store.Redis.DB = n
		}
	}

	setBool(&config.Layout.Composition, "LAYOUT_COMPOSITION")
	setDuration(&config.Layout.PollInterval, "LAYOUT_POLL_INTERVAL")
	setDuration(&config.Layout.PollTimeout, "LAYOUT_POLL_TIMEOUT")
	setString(&config.Layout.AnchorSelector, "LAYOUT_ANCHOR_SELECTOR")
	setString(&config.Layout.ContainerSelector, "LAYOUT_CONTAINER_SELECTOR")
	setString(&config.Layout.MountID, "LAYOUT_MOUNT_ID")
}

func getenv(key string) string {
	return os.Getenv(envPrefix + key)
}

func setString(dst *string, key string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
