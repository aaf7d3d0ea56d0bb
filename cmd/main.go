package main

import (
	"github.com/kerm1977/altair/internal/handler"
	"github.com/kerm1977/altair/internal/middleware"
	"github.com/kerm1977/altair/internal/tenant"
	"github.com/kerm1977/altair/pkg/config"
	"github.com/kerm1977/altair/pkg/logger"
	"github.com/kerm1977/altair/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting multi-tenant backend...", cfg.LogConfig()...)

	// Tenant databases are provisioned lazily; the registry only needs
	// its base directory and seed configuration up front.
	registry := tenant.NewRegistry(cfg)
	defer registry.Shutdown()
	handler.Init(registry, cfg)
	log.Info("Tenant registry initialized", zap.String("data_dir", cfg.Storage.DataDir))

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	handler.Routes(e)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
