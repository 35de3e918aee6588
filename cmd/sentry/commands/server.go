package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/psops/sentry/internal/api"
	"github.com/psops/sentry/internal/config"
	"github.com/psops/sentry/internal/lifecycle"
	"github.com/psops/sentry/internal/logging"
	"github.com/psops/sentry/internal/tracing"
)

var (
	apiPort int
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Sentry server",
	Long: `Start the Sentry server which exposes the health-check and chat
endpoints over HTTP, backed by the PeopleSoft error tables and the
configured inference provider.`,
	Run: runServer,
}

func init() {
	serverCmd.Flags().IntVar(&apiPort, "api-port", 0,
		"Port the API server listens on (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) {
	if err := setupLog(logLevelFlags); err != nil {
		HandleError(err, "Failed to setup logging")
	}
	logger := logging.GetLogger("server")

	cfg, err := config.Load(configPath)
	if err != nil {
		HandleError(err, "Configuration error")
	}
	if apiPort != 0 {
		cfg.Server.Port = apiPort
	}

	logger.Info("Starting Sentry v%s", Version)
	logger.Debug("Configuration loaded: port=%d provider=%s model=%s",
		cfg.Server.Port, cfg.Inference.Provider, cfg.Inference.Model)

	manager := lifecycle.NewManager()

	tracingProvider, err := tracing.NewProvider(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		TLSCAPath:   cfg.Tracing.TLSCAPath,
		TLSInsecure: cfg.Tracing.TLSInsecure,
	}, Version)
	if err != nil {
		logger.Warn("Failed to initialize tracing (continuing without tracing): %v", err)
		tracingProvider = nil
	}
	if tracingProvider != nil {
		if err := manager.Register(tracingProvider); err != nil {
			HandleError(err, "Tracing registration error")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildCore(ctx, cfg)
	if err != nil {
		HandleError(err, "Startup error")
	}
	defer c.Close()

	if err := manager.Register(c.source); err != nil {
		HandleError(err, "Data source registration error")
	}

	apiServer := api.New(api.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		Lookback:     cfg.Database.Lookback(),
	}, c.source, c.matcher, c.registry, c.loop)

	if err := manager.Register(apiServer, c.source); err != nil {
		HandleError(err, "API server registration error")
	}

	if err := manager.Start(ctx); err != nil {
		HandleError(err, "Startup error")
	}
	logger.Info("Sentry is ready: %d procedures loaded, listening on port %d",
		c.catalog.Len(), cfg.Server.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received signal %v, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 35*time.Second)
	defer shutdownCancel()
	if err := manager.Stop(shutdownCtx); err != nil {
		HandleError(err, "Shutdown error")
	}
}
