package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/cardcaptor/almanac-service/configs"
	"github.com/cardcaptor/almanac-service/internal/application/services"
	"github.com/cardcaptor/almanac-service/internal/core/ports"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/calendarapi"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/db"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/discovery"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/health"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/httpserver"
	"github.com/cardcaptor/almanac-service/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting almanac service...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database:", err)
	}
	defer database.Close()

	logger.WithField("path", cfg.Database.Path).Info("Opened almanac cache database")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Upstream: discovery resolver and fetch client share one bounded timeout
	resolver := discovery.NewEndpointResolver(cfg.Almanac.DiscoveryURL, cfg.Almanac.RequestTimeout, logger)
	client := calendarapi.NewAlmanacClient(resolver, cfg.Almanac.APIID, cfg.Almanac.APIKey, cfg.Almanac.RequestTimeout, logger)

	// Cache store
	almanacRepo, err := repositories.NewAlmanacRepository(database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize almanac repository:", err)
	}

	// Orchestration service
	almanacService := services.NewAlmanacService(client, almanacRepo, logger)

	hcSlice := []ports.HealthChecker{
		health.NewDBHealthChecker(database),
		health.NewUpstreamHealthChecker(resolver),
	}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Initialize HTTP server using ServerDeps for clearer wiring
	deps := httpserver.ServerDeps{
		AlmanacService: almanacService,
		HealthCheckers: hcSlice,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
