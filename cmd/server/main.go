// Command server runs the storefront cart API: the catalog read endpoints and
// the server-authoritative cart the storefront engine reconciles against.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	cartapp "github.com/dronestore/storefront/internal/application/cart"
	"github.com/dronestore/storefront/internal/infrastructure/auth"
	"github.com/dronestore/storefront/internal/infrastructure/config"
	"github.com/dronestore/storefront/internal/infrastructure/logger"
	"github.com/dronestore/storefront/internal/infrastructure/persistence"
	"github.com/dronestore/storefront/internal/infrastructure/telemetry"
	"github.com/dronestore/storefront/internal/interfaces/http/router"
)

//	@title			Storefront Cart API
//	@version		1.0
//	@description	Catalog reads and the server-authoritative cart the storefront engine reconciles against.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logCfg := logger.FromConfig(cfg.Log)
	logCfg.Service = cfg.App.Name
	baseLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// Telemetry comes first so the bridged logger reaches the collector
	tel, err := telemetry.Setup(context.Background(), cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := tel.BridgeLogger(baseLog)
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			baseLog.Error("Error shutting down telemetry", zap.Error(err))
		}
		_ = log.Sync()
	}()

	log.Info("Starting storefront API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
	)

	// Database with the zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry, cfg.Database), log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Postgres schemas are owned by cmd/migrate
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	// Repositories and services
	productRepo := persistence.NewGormProductRepository(db.DB)
	cartLineRepo := persistence.NewGormCartLineRepository(db.DB)
	productService := cartapp.NewProductService(productRepo)
	cartService := cartapp.NewService(cartLineRepo, productRepo, log)
	jwtService := auth.NewJWTService(cfg.JWT)

	if cfg.App.SeedDemo {
		n, err := productService.Seed(context.Background(), cartapp.DemoCatalog)
		if err != nil {
			log.Fatal("Failed to seed demo catalog", zap.Error(err))
		}
		log.Info("Demo catalog seeded", zap.Int("products", n))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	api, err := router.NewAPI(router.APIConfig{
		Name:     cfg.App.Name,
		HTTP:     cfg.HTTP,
		Tracing:  tel.Enabled(),
		Logger:   log,
		Meter:    tel.Meter("storefront/http"),
		JWT:      jwtService,
		Carts:    cartService,
		Products: productService,
		Health:   db,
	})
	if err != nil {
		log.Fatal("Failed to build API", zap.Error(err))
	}
	defer api.Close()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        api,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info("Shutting down server...")
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
