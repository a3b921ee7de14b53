package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/config"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/logging"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/server"
)

func main() {
	// Parse flags
	configPath := pflag.String("config", "", "Config file (default $XDG_CONFIG_HOME/prisonlauncher/launcher.toml)")
	port := pflag.String("port", "", "Server port")
	dir := pflag.String("dir", "", "Instance root directory")
	groupFile := pflag.String("groups", "", "Group file")
	watch := pflag.Bool("watch", false, "Reload when the instance root changes")
	dev := pflag.Bool("dev", false, "Development logging")
	pflag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override file and environment
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dir != "" {
		cfg.Instances.Dir = *dir
	}
	if *groupFile != "" {
		cfg.Instances.GroupFile = *groupFile
	}
	if pflag.CommandLine.Changed("watch") {
		cfg.Watch.Enabled = *watch
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting instance server",
		zap.String("root", cfg.Instances.Dir),
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Bool("watch", cfg.Watch.Enabled),
	)

	// Create server
	srv, err := server.NewServerWithLogger(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logger.Info("Shutting down gracefully")
		if err := srv.Close(); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		_ = srv.Close()
		logger.Fatal("Server error", zap.Error(err))
	}
}
