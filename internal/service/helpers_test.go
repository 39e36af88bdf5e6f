package service_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
	"github.com/useneurox-company/ERP--sub000/internal/repository"
	"github.com/useneurox-company/ERP--sub000/internal/service"
	"github.com/useneurox-company/ERP--sub000/internal/spreadsheet"
	"github.com/useneurox-company/ERP--sub000/internal/storage"
	"github.com/useneurox-company/ERP--sub000/internal/testutil"
)

const actor = "user-1"

// recordingSink captures stage events and can be told to fail
type recordingSink struct {
	mu        sync.Mutex
	completed []service.StageCompletedEvent
	reopened  []service.StageReopenedEvent
	err       error
}

func (s *recordingSink) StageCompleted(_ context.Context, ev service.StageCompletedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, ev)
	return s.err
}

func (s *recordingSink) StageReopened(_ context.Context, ev service.StageReopenedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reopened = append(s.reopened, ev)
	return s.err
}

// memStorage keeps uploaded objects in memory
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	folders []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Upload(_ context.Context, folder, filename, _ string, data io.Reader) (string, int64, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := folder + "/" + filename
	m.objects[path] = b
	m.folders = append(m.folders, folder)
	return path, int64(len(b)), nil
}

func (m *memStorage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[path]
	if !ok {
		return nil, storage.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStorage) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

type env struct {
	db             *gorm.DB
	sink           *recordingSink
	storage        *memStorage
	warehouseRepo  *repository.WarehouseItemRepository
	comparisonRepo *repository.ComparisonRepository
	projects       *service.ProjectService
	stages         *service.StageService
	stageData      *service.StageDataService
	reconciliation *service.ReconciliationService
	warehouse      *service.WarehouseService
	notifications  *service.NotificationService
}

// newEnv wires every service against a fresh in-memory database. Autosave
// only writes on explicit flushes.
func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewTestDB(t)
	logger := zap.NewNop()

	stageRepo := repository.NewStageRepository(db)
	depRepo := repository.NewStageDependencyRepository(db)
	transitionRepo := repository.NewStageTransitionRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	comparisonRepo := repository.NewComparisonRepository(db)
	warehouseRepo := repository.NewWarehouseItemRepository(db)

	e := &env{
		db:             db,
		sink:           &recordingSink{},
		storage:        newMemStorage(),
		warehouseRepo:  warehouseRepo,
		comparisonRepo: comparisonRepo,
	}
	e.notifications = service.NewNotificationService(notificationRepo, logger)
	e.projects = service.NewProjectService(projectRepo, stageRepo, depRepo, db, logger)
	e.stages = service.NewStageService(projectRepo, stageRepo, depRepo, transitionRepo, e.sink, db, logger)
	e.stageData = service.NewStageDataService(stageRepo, db, time.Hour, logger)
	t.Cleanup(func() { _ = e.stageData.Close(context.Background()) })

	engine := reconcile.NewEngine(warehouseRepo, nil, reconcile.Options{Workers: 2}, logger)
	e.reconciliation = service.NewReconciliationService(
		comparisonRepo, stageRepo, engine, warehouseRepo, spreadsheet.XLSXRenderer{},
		e.storage, e.stageData, db, logger,
	)
	e.warehouse = service.NewWarehouseService(warehouseRepo, warehouseRepo, logger)
	return e
}
