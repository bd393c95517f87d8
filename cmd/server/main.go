package main

import (
	"context"
	"os"

	"taskmanager/internal/config"
	"taskmanager/internal/logging"
	"taskmanager/internal/server"

	"github.com/charmbracelet/log"
)

// @title           Task Manager API
// @version         1.0
// @description     API for managing tasks with optional JWT ownership.

// @host      localhost:5051
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ Invalid configuration", "err", err)
	}

	logger := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Prefix:    "taskmanager",
		Output:    os.Stderr,
		Timestamp: true,
	})

	s, err := server.Init(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("❌ Server initialization failed", "err", err)
	}

	s.Run()
}
