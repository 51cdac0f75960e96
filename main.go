package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dwellio-inc/dwellio-engine/pkg/config"
	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/handlers"
	"github.com/dwellio-inc/dwellio-engine/pkg/logging"
	"github.com/dwellio-inc/dwellio-engine/pkg/middleware"
	"github.com/dwellio-inc/dwellio-engine/pkg/repositories"
	"github.com/dwellio-inc/dwellio-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Host),
		zap.String("redis", cfg.Redis.Host),
		zap.Int("board_freshness_hours", cfg.Board.FreshnessHours))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations run through database/sql; the pool itself is pgx-native.
	migrationDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:             cfg.Database.URL(),
		MaxConnections:  cfg.Database.MaxConnections,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient == nil {
		logger.Info("Redis not configured; board freshness checks go to the database")
	} else {
		defer func() { _ = redisClient.Close() }()
	}

	metrics := middleware.New()

	// Repositories
	itemRepo := repositories.NewHomeItemRepository()
	eventRepo := repositories.NewItemEventRepository()
	possessionRepo := repositories.NewPossessionRepository()
	assetRepo := repositories.NewAssetRepository()
	warrantyRepo := repositories.NewWarrantyRepository()
	maintenanceRepo := repositories.NewMaintenanceRepository()
	riskRepo := repositories.NewRiskRepository()
	roomRepo := repositories.NewRoomRepository()

	// Services
	reconciler := services.NewReconcilerService(db, itemRepo, possessionRepo, assetRepo, riskRepo, metrics, logger)
	inference := services.NewInferenceService(db, itemRepo, possessionRepo, assetRepo, warrantyRepo, maintenanceRepo, roomRepo, eventRepo, logger)
	boardService := services.NewBoardService(db, reconciler, inference,
		itemRepo, possessionRepo, assetRepo, warrantyRepo, maintenanceRepo, roomRepo,
		redisClient, time.Duration(cfg.Board.FreshnessHours)*time.Hour, metrics, logger)
	statusService := services.NewStatusService(itemRepo, eventRepo, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	propertyMiddleware := database.WithPropertyContext(db, logger)
	boardHandler := handlers.NewBoardHandler(boardService, statusService, logger)
	boardHandler.RegisterRoutes(mux, handlers.PropertyMiddleware(propertyMiddleware))

	handler := metrics.Instrument(middleware.RequestLogger(logger)(mux))

	srv := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting dwellio-engine",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
