package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caretrack/bedside/internal/alerts"
	"github.com/caretrack/bedside/pkg/config"
	"github.com/caretrack/bedside/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize the bedside alert service
	service, err := alerts.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create alert service: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8084"
	}

	// Start service in a goroutine
	go func() {
		logger.Infof("Starting Bedside Alert Service on port %s", port)
		if err := service.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start Bedside Alert Service: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Bedside Alert Service...")
	if err := service.Stop(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Bedside Alert Service stopped")
}
