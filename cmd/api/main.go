package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/docs"
	"github.com/useneurox-company/ERP--sub000/internal/app"
	"github.com/useneurox-company/ERP--sub000/internal/config"
	"github.com/useneurox-company/ERP--sub000/internal/database"
	"github.com/useneurox-company/ERP--sub000/internal/http/handler"
	"github.com/useneurox-company/ERP--sub000/internal/http/middleware"
	"github.com/useneurox-company/ERP--sub000/internal/http/router"
	"github.com/useneurox-company/ERP--sub000/internal/jobs"
	"github.com/useneurox-company/ERP--sub000/internal/logger"
)

// @title Furniture ERP API
// @version 1.0
// @description Stage workflows and warehouse reconciliation for furniture production projects

// @contact.name API Support

// @host localhost:8080
// @BasePath /api/v1

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)
	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)

	// In development secrets come from the environment, elsewhere from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate || cfg.Database.Driver == "sqlite" {
		if err := database.Migrate(db, cfg.Database.Driver); err != nil {
			return err
		}
		log.Info("Database schema up to date", zap.String("driver", cfg.Database.Driver))
	}

	services, err := app.NewServices(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		services.DataWarehouse,
		rateLimiter,
		handler.NewProjectHandler(services.Project, services.Stage, log),
		handler.NewStageHandler(services.Stage, log),
		handler.NewStageDataHandler(services.StageData, log),
		handler.NewComparisonHandler(services.Reconciliation, cfg.Storage.MaxUploadSizeMB, log),
		handler.NewWarehouseHandler(services.Warehouse, log),
		handler.NewNotificationHandler(services.Notification, log),
	)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.StockRefreshEnabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterStockRefreshJob(
			scheduler,
			services.Reconciliation,
			log,
			cfg.Jobs.StockRefreshSchedule,
			jobs.DefaultStockRefreshTimeout,
		); err != nil {
			log.Error("Failed to register stock refresh job", zap.Error(err))
			scheduler = nil
		} else {
			scheduler.Start()
			log.Info("Scheduler started with stock refresh job",
				zap.String("cron_expr", cfg.Jobs.StockRefreshSchedule))
		}
	} else {
		log.Info("Stock refresh job disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = services.Close(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Buffered stage data is saved after the last request has finished
		if err := services.Close(ctx); err != nil {
			log.Error("Failed to flush stage data", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
