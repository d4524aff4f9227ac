package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/symptom-risk-server/internal/api"
	"github.com/symptom-risk-server/internal/app"
	"github.com/symptom-risk-server/internal/config"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize assessment engine")
	}
	defer engine.Close()

	server := api.NewServer(configManager, api.Dependencies{
		Registry:  engine.Registry,
		Sessions:  engine.Sessions,
		Assembler: engine.Assembler,
		Feedback:  engine.Feedback,
	}, logger)

	logger.WithField("config_file", configManager.ConfigFileUsed()).
		Infof("Starting symptom risk server on %s:%d", cfg.Server.Host, cfg.Server.Port)

	if err := server.Start(ctx); err != nil {
		engine.Close()
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
