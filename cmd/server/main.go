package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/garyjia/design-bureau/internal/config"
	"github.com/garyjia/design-bureau/internal/container"
	"github.com/garyjia/design-bureau/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting design bureau workflow service",
		zap.String("folders_backend", cfg.Folders.Backend),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}

	// Start blocks until ctx is cancelled by a signal
	serveErr := c.Server().Start(ctx)
	if serveErr != nil {
		logger.Error("HTTP server stopped with error", zap.Error(serveErr))
	}

	logger.Info("Shutting down")
	if err := c.Close(); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		os.Exit(1)
	}
	if serveErr != nil {
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}
