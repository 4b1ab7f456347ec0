package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/cypher/internal/api"
	"github.com/Iron-Ham/cypher/internal/config"
	"github.com/Iron-Ham/cypher/internal/logging"
	"github.com/Iron-Ham/cypher/internal/orchestrator"
	"github.com/Iron-Ham/cypher/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the battle API and event stream",
	Long: `Serve the REST command API and the websocket event stream.

Pacing and compliance settings are reloaded when the config file changes;
sessions created afterwards use the new values.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, creds.OTelEndpoint, creds.Version)
	if err != nil {
		logger.Warn("tracing disabled", "error", err.Error())
	}

	eng, err := buildEngine(ctx, cfg, creds, logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	watchConfig(eng.registry, logger)

	server, err := api.NewServer(api.Config{
		Addr:        cfg.Server.Addr,
		CORSOrigins: cfg.Server.CORSOrigins,
		Services:    eng.services,
	}, eng.registry, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("api shutdown failed", "error", serr.Error())
	}
	if serr := eng.registry.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("registry shutdown incomplete", "error", serr.Error())
	}
	if serr := shutdownTracing(shutdownCtx); serr != nil {
		logger.Warn("trace flush failed", "error", serr.Error())
	}
	return err
}

// watchConfig re-applies pacing and compliance settings on every config
// file change. Invalid edits are logged and ignored.
func watchConfig(registry *orchestrator.Registry, logger *logging.Logger) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		reloadConfig(registry, logger, e.Name)
	})
	viper.WatchConfig()
}

func reloadConfig(registry *orchestrator.Registry, logger *logging.Logger, file string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("config reload rejected", "file", file, "error", err.Error())
		return
	}
	gate, err := newGate(cfg, logger)
	if err != nil {
		logger.Warn("compliance rules reload failed", "file", file, "error", err.Error())
		return
	}
	if err := registry.Reconfigure(cfg.Orchestrator(), gate); err != nil {
		logger.Warn("config reload rejected", "file", file, "error", err.Error())
		return
	}
	logger.Info("config reloaded", "file", file)
}
