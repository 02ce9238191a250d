package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vp-back/internal/app"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/logger"
)

var (
	serverPort int
	serverHost string
	logLevel   string
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the volume profile backend server",
	Long: `Start the volume profile backend server.

This will start all components:
• Periodic volume profile calculation for the configured symbols
• REST API for profiles, signals, candles and level history
• WebSocket push for live profile and signal updates
• NATS message distribution
• Redis caching layer
• InfluxDB time-series storage

Examples:
  vp-back server                    # Start with default settings
  vp-back server --port 9090        # Start on custom port
  vp-back server --log-level debug  # Enable debug logging`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port")
	serverCmd.Flags().StringVarP(&serverHost, "host", "H", "", "Server host")
	serverCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
}

func runServer(cmd *cobra.Command, args []string) error {
	// .env file is optional
	if err := config.LoadDotEnv(); err != nil {
		fmt.Printf("Note: .env file not loaded: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Command line flags override the environment
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	log.Info("Starting volume profile backend server")

	application := app.New(cfg, log)

	if err := application.Initialize(); err != nil {
		log.WithError(err).Error("Failed to initialize application")
		return err
	}

	if err := application.Start(); err != nil {
		log.WithError(err).Error("Failed to start application")
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-interrupt
	log.WithField("signal", sig.String()).Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	shutdownComplete := make(chan struct{})
	go func() {
		if err := application.Stop(); err != nil {
			log.WithError(err).Error("Application shutdown error")
		}
		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		log.Info("Application shutdown complete")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout, forcing exit")
		os.Exit(1)
	}

	return nil
}
