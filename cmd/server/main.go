package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hearthchat/hearth-server/internal/app"
	"github.com/hearthchat/hearth-server/internal/config"
	"github.com/hearthchat/hearth-server/internal/log"
)

func main() {
	var (
		configPath string
		addr       string
		httpAddr   string
		dbPath     string
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:   "hearth-server",
		Short: "Group-chat server with houses, direct messages and offline delivery",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(logLevel)

			cfg, path, err := config.Load(logger, configPath)
			if err != nil {
				return err
			}

			// Flags beat the config file when set explicitly.
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("db") {
				cfg.DatabasePath = dbPath
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			logger = log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Msg("configuration loaded")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Str("http_addr", cfg.HTTPAddr).Msg("starting hearth server")
			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	defaults := config.Default()
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.Flags().StringVar(&addr, "addr", defaults.Addr, "TCP listen address")
	rootCmd.Flags().StringVar(&httpAddr, "http-addr", defaults.HTTPAddr, "HTTP listen address (health + websocket gateway)")
	rootCmd.Flags().StringVar(&dbPath, "db", defaults.DatabasePath, "snapshot database path")
	rootCmd.Flags().StringVar(&logLevel, "log-level", defaults.LogLevel, "log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
