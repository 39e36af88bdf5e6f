// Package app wires repositories, the reconciliation engine and services from
// configuration. The API server and the reconcile CLI share it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/config"
	"github.com/useneurox-company/ERP--sub000/internal/datawarehouse"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
	"github.com/useneurox-company/ERP--sub000/internal/repository"
	"github.com/useneurox-company/ERP--sub000/internal/service"
	"github.com/useneurox-company/ERP--sub000/internal/similarity"
	"github.com/useneurox-company/ERP--sub000/internal/spreadsheet"
	"github.com/useneurox-company/ERP--sub000/internal/storage"
)

// Services holds the wired service layer
type Services struct {
	Project        *service.ProjectService
	Stage          *service.StageService
	StageData      *service.StageDataService
	Reconciliation *service.ReconciliationService
	Warehouse      *service.WarehouseService
	Notification   *service.NotificationService

	// DataWarehouse is nil when the local warehouse table is the catalog
	DataWarehouse *datawarehouse.Client
}

// NewServices builds the service layer. A data warehouse that is enabled but
// unreachable is logged and replaced by the local catalog.
func NewServices(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*Services, error) {
	projectRepo := repository.NewProjectRepository(db)
	stageRepo := repository.NewStageRepository(db)
	dependencyRepo := repository.NewStageDependencyRepository(db)
	transitionRepo := repository.NewStageTransitionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	warehouseRepo := repository.NewWarehouseItemRepository(db)
	comparisonRepo := repository.NewComparisonRepository(db)

	dwClient, err := datawarehouse.NewClient(ctx, &cfg.DataWarehouse, logger)
	if err != nil {
		logger.Warn("Data warehouse connection failed, continuing with local catalog", zap.Error(err))
		dwClient = nil
	}
	catalog, err := NewCatalog(cfg, dwClient, warehouseRepo, logger)
	if err != nil {
		_ = dwClient.Close()
		return nil, err
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, logger)
	if err != nil {
		_ = dwClient.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	engine := reconcile.NewEngine(catalog, NewScorer(&cfg.Scorer, logger), reconcile.Options{
		Workers:        cfg.Reconciliation.Workers,
		ScorerTimeout:  cfg.Reconciliation.ScorerTimeoutDuration(),
		MaxSuggestions: cfg.Reconciliation.MaxSuggestions,
		PoolSize:       cfg.Reconciliation.CandidatePool,
	}, logger)

	notificationService := service.NewNotificationService(notificationRepo, logger)
	stageData := service.NewStageDataService(stageRepo, db, cfg.Autosave.DebounceDuration(), logger)

	return &Services{
		Project:        service.NewProjectService(projectRepo, stageRepo, dependencyRepo, db, logger),
		Stage:          service.NewStageService(projectRepo, stageRepo, dependencyRepo, transitionRepo, notificationService, db, logger),
		StageData:      stageData,
		Reconciliation: service.NewReconciliationService(comparisonRepo, stageRepo, engine, catalog, spreadsheet.XLSXRenderer{}, fileStorage, stageData, db, logger),
		Warehouse:      service.NewWarehouseService(warehouseRepo, catalog, logger),
		Notification:   notificationService,
		DataWarehouse:  dwClient,
	}, nil
}

// Close flushes buffered stage data and closes the warehouse connection
func (s *Services) Close(ctx context.Context) error {
	err := s.StageData.Close(ctx)
	if cerr := s.DataWarehouse.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// NewCatalog picks the warehouse catalog: the data warehouse table when
// connected, otherwise the local warehouse_items table
func NewCatalog(cfg *config.Config, dwClient *datawarehouse.Client, local *repository.WarehouseItemRepository, logger *zap.Logger) (reconcile.Catalog, error) {
	if !dwClient.IsEnabled() {
		logger.Info("Using local warehouse catalog")
		return local, nil
	}
	catalog, err := datawarehouse.NewCatalog(dwClient, cfg.DataWarehouse.CatalogTable)
	if err != nil {
		return nil, err
	}
	logger.Info("Using data warehouse catalog", zap.String("table", cfg.DataWarehouse.CatalogTable))
	return catalog, nil
}

// NewScorer returns the configured similarity scorer, or nil for "none".
// The openai provider without an API key falls back to token overlap.
func NewScorer(cfg *config.ScorerConfig, logger *zap.Logger) reconcile.Scorer {
	switch cfg.Provider {
	case "none":
		logger.Info("Similarity suggestions disabled")
		return nil
	case "openai":
		if cfg.APIKey != "" {
			logger.Info("Using OpenAI embeddings scorer", zap.String("model", cfg.Model))
			return similarity.NewOpenAIScorer(cfg.APIKey, cfg.Model, cfg.MinScore)
		}
		logger.Warn("OpenAI scorer selected without API key, using token scorer")
	}
	return similarity.NewTokenScorer(cfg.MinScore)
}
