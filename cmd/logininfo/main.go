package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"logininfo/internal/config"
	"logininfo/internal/database"
	"logininfo/internal/settings"
	"logininfo/internal/settings/store"

	"github.com/spf13/cobra"
)

// Version will be set during build
var Version = "dev"

var (
	configPath string
	dbPath     string
	port       int
	prodMode   bool

	logger = log.New(os.Stdout, "logininfo: ", log.LstdFlags|log.Lshortfile)
)

var rootCmd = &cobra.Command{
	Use:           "logininfo <command>",
	Short:         "Sign-in record number service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("LOGININFO_CONFIG"), "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to database file (default: data/logininfo.db or LOGININFO_DB_PATH)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "port to run the server on (default: 8080 or LOGININFO_PORT)")
	rootCmd.PersistentFlags().BoolVar(&prodMode, "prod", false, "enable production mode (HTTPS-only cookies, quiet logging)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if port > 0 {
		cfg.Port = port
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if prodMode {
		cfg.ProductionMode = true
		cfg.UseHTTPS = true
	}
	return cfg, cfg.Validate()
}

// app bundles the handles every command needs.
type app struct {
	cfg      config.Config
	db       *database.DB
	store    settings.Store
	settings *settings.Service
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.DataPath, filepath.Dir(cfg.DBPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	db, err := database.NewDB(cfg.DBPath, database.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	st, err := store.New(store.Config{
		Driver: cfg.Store.Backend,
		Redis: &store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Username: cfg.Store.Redis.Username,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		},
	}, store.Dependencies{DB: db})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize settings store: %w", err)
	}

	return &app{
		cfg:      cfg,
		db:       db,
		store:    st,
		settings: settings.NewService(st, logger),
	}, nil
}

func (rt *app) Close() {
	if c, ok := rt.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Printf("Error closing settings store: %v", err)
		}
	}
	if err := rt.db.Close(); err != nil {
		logger.Printf("Error closing database: %v", err)
	}
}
