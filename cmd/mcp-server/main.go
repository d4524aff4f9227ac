package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/symptom-risk-server/internal/app"
	"github.com/symptom-risk-server/internal/config"
	"github.com/symptom-risk-server/internal/mcp"
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

	// stdout carries the protocol on the stdio transport
	logging := cfg.Logging
	if t := strings.ToLower(cfg.MCP.TransportType); t == "" || t == "stdio" {
		logging.Output = "stderr"
	}
	logger := config.NewLogger(logging)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize assessment engine")
	}
	defer engine.Close()

	mcpServer, err := mcp.NewServer(cfg, mcp.Dependencies{
		Registry:  engine.Registry,
		Sessions:  engine.Sessions,
		Assembler: engine.Assembler,
		Feedback:  engine.Feedback,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	if err := mcpServer.Start(ctx); err != nil {
		engine.Close()
		logger.WithError(err).Fatal("MCP server failed")
	}

	logger.Info("Symptom risk MCP server stopped")
}
