package main

import (
	"os"
	"os/signal"
	"syscall"

	"logininfo/internal/layout"
	"logininfo/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openApp()
		if err != nil {
			return err
		}
		defer rt.Close()
		cfg := rt.cfg

		logger.Printf("Starting logininfo v%s", Version)
		logger.Printf("Port: %d", cfg.Port)
		logger.Printf("Database: %s", cfg.DBPath)
		logger.Printf("Settings store: %s", cfg.Store.Backend)
		logger.Printf("Mode: %s", map[bool]string{true: "production", false: "development"}[cfg.ProductionMode])

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// A failed default never blocks startup.
		if err := rt.settings.EnsureDefault(ctx, cfg.DefaultRecordNumber); err != nil {
			logger.Printf("Error initializing login-info defaults: %v", err)
		}

		srv, err := server.NewServer(rt.db, logger, rt.settings, server.Config{
			UseHTTPS:         cfg.UseHTTPS,
			ProductionMode:   cfg.ProductionMode,
			ExposeAuthLayout: cfg.Layout.Composition,
			Layout: layout.Options{
				AnchorSelector:    cfg.Layout.AnchorSelector,
				ContainerSelector: cfg.Layout.ContainerSelector,
				MountID:           cfg.Layout.MountID,
				Interval:          cfg.Layout.PollInterval,
				Timeout:           cfg.Layout.PollTimeout,
			},
		})
		if err != nil {
			return err
		}
		defer srv.Close()

		return srv.Start(ctx, cfg.GetAddress())
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Initialize the database and the default record number",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openApp()
		if err != nil {
			return err
		}
		defer rt.Close()
		return rt.settings.EnsureDefault(cmd.Context(), rt.cfg.DefaultRecordNumber)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("logininfo version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, installCmd, versionCmd)
}
