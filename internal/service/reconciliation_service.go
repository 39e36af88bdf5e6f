package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/mapper"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
	"github.com/useneurox-company/ERP--sub000/internal/repository"
	"github.com/useneurox-company/ERP--sub000/internal/spreadsheet"
	"github.com/useneurox-company/ERP--sub000/internal/stagedata"
	"github.com/useneurox-company/ERP--sub000/internal/storage"
)

// UploadInput is one spreadsheet submitted for reconciliation
type UploadInput struct {
	FileName string
	Data     []byte
	StageID  *uuid.UUID
	Actor    string
}

// ExportedOrder is a rendered order document
type ExportedOrder struct {
	FileName    string
	ContentType string
	StoragePath string
	Data        []byte
}

// SourceFile is the archived spreadsheet a comparison was imported from.
// The caller closes Body.
type SourceFile struct {
	FileName string
	Body     io.ReadCloser
}

// ReconciliationService imports item lists, matches them against the
// warehouse catalog and tracks the resulting order through procurement
type ReconciliationService struct {
	comparisonRepo *repository.ComparisonRepository
	stageRepo      *repository.StageRepository
	engine         *reconcile.Engine
	catalog        reconcile.Catalog
	renderer       reconcile.OrderRenderer
	storage        storage.Storage
	stageData      *StageDataService
	db             *gorm.DB
	logger         *zap.Logger
	now            func() time.Time
}

// NewReconciliationService creates a new ReconciliationService. storage and
// stageData may be nil; uploads are then not archived and no badge is written.
func NewReconciliationService(
	comparisonRepo *repository.ComparisonRepository,
	stageRepo *repository.StageRepository,
	engine *reconcile.Engine,
	catalog reconcile.Catalog,
	renderer reconcile.OrderRenderer,
	store storage.Storage,
	stageData *StageDataService,
	db *gorm.DB,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		comparisonRepo: comparisonRepo,
		stageRepo:      stageRepo,
		engine:         engine,
		catalog:        catalog,
		renderer:       renderer,
		storage:        store,
		stageData:      stageData,
		db:             db,
		logger:         logger,
		now:            time.Now,
	}
}

// Upload parses a spreadsheet, matches every row and stores the comparison
// with its items in one transaction. Rows that cannot be imported are kept
// as row errors on the comparison.
func (s *ReconciliationService) Upload(ctx context.Context, in UploadInput) (*domain.ComparisonDTO, error) {
	if err := requireActor(in.Actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FileName) == "" {
		return nil, domain.NewValidationError("file", "file name is required")
	}

	comparison := &domain.Comparison{
		SourceFileName: filepath.Base(in.FileName),
		CreatedByID:    in.Actor,
	}
	if in.StageID != nil {
		stage, err := s.stageRepo.GetByID(ctx, *in.StageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.NewValidationError("stageId", "stage "+in.StageID.String()+" does not exist")
			}
			return nil, fmt.Errorf("failed to get stage: %w", err)
		}
		comparison.StageID = &stage.ID
		comparison.ProjectID = &stage.ProjectID
	}

	rows, err := spreadsheet.Parse(in.FileName, bytes.NewReader(in.Data))
	if err != nil {
		if errors.Is(err, spreadsheet.ErrUnsupportedFormat) {
			return nil, domain.NewValidationError("file", "Only .xlsx and .csv files are supported")
		}
		return nil, err
	}

	result, err := s.engine.Reconcile(ctx, rows)
	if err != nil {
		return nil, err
	}

	if s.storage != nil {
		path, _, err := s.storage.Upload(ctx, storage.FolderUploads, in.FileName, "application/octet-stream", bytes.NewReader(in.Data))
		if err != nil {
			s.logger.Warn("failed to archive uploaded spreadsheet",
				zap.String("fileName", in.FileName),
				zap.Error(err))
		} else {
			comparison.SourceFilePath = path
		}
	}

	comparison.Items = result.Items
	comparison.RowErrors = result.RowErrors
	reconcile.ApplySummary(comparison, result.Summary)

	if err := ctx.Err(); err != nil {
		s.discardArchive(ctx, comparison.SourceFilePath)
		return nil, fmt.Errorf("reconciliation aborted: %w", err)
	}
	if err := s.comparisonRepo.Create(ctx, comparison); err != nil {
		s.discardArchive(ctx, comparison.SourceFilePath)
		return nil, fmt.Errorf("failed to store comparison: %w", err)
	}

	s.logger.Info("comparison created",
		zap.String("comparisonID", comparison.ID.String()),
		zap.String("fileName", comparison.SourceFileName),
		zap.Int("items", comparison.TotalItems),
		zap.Int("rowErrors", len(result.RowErrors)),
		zap.String("actor", in.Actor))

	s.recordBadge(ctx, comparison, in.Actor)

	dto := mapper.ToComparisonDTO(comparison)
	return &dto, nil
}

// discardArchive removes an archived upload whose comparison was not stored
func (s *ReconciliationService) discardArchive(ctx context.Context, path string) {
	if s.storage == nil || path == "" {
		return
	}
	if err := s.storage.Delete(context.WithoutCancel(ctx), path); err != nil {
		s.logger.Warn("failed to delete archived spreadsheet",
			zap.String("path", path),
			zap.Error(err))
	}
}

// SourceFile opens the archived upload of a comparison
func (s *ReconciliationService) SourceFile(ctx context.Context, comparisonID uuid.UUID) (*SourceFile, error) {
	comparison, err := s.comparisonRepo.GetByID(ctx, comparisonID)
	if err != nil {
		return nil, notFound(err, ErrComparisonNotFound, "get comparison")
	}
	if s.storage == nil || comparison.SourceFilePath == "" {
		return nil, ErrSourceFileNotFound
	}

	body, err := s.storage.Download(ctx, comparison.SourceFilePath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrSourceFileNotFound
		}
		return nil, fmt.Errorf("failed to download source file: %w", err)
	}
	return &SourceFile{FileName: comparison.SourceFileName, Body: body}, nil
}

// GetByID returns a comparison with its items in upload order
func (s *ReconciliationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ComparisonDTO, error) {
	comparison, err := s.comparisonRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrComparisonNotFound, "get comparison")
	}
	dto := mapper.ToComparisonDTO(comparison)
	return &dto, nil
}

// ListByStage returns the comparisons uploaded for a stage, newest first,
// without their items
func (s *ReconciliationService) ListByStage(ctx context.Context, stageID uuid.UUID) ([]domain.ComparisonDTO, error) {
	comparisons, err := s.comparisonRepo.ListByStage(ctx, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comparisons: %w", err)
	}
	dtos := make([]domain.ComparisonDTO, len(comparisons))
	for i := range comparisons {
		dtos[i] = mapper.ToComparisonDTO(&comparisons[i])
	}
	return dtos, nil
}

// ConfirmMatch accepts the suggested warehouse match of an item
func (s *ReconciliationService) ConfirmMatch(ctx context.Context, comparisonID, itemID uuid.UUID, actor string) (*domain.ComparisonItemDTO, error) {
	return s.mutateItem(ctx, comparisonID, itemID, actor, "confirm match", func(item *domain.ComparisonItem) error {
		return reconcile.ConfirmMatch(item)
	})
}

// SelectAlternative replaces the warehouse match of an item with another
// catalog item
func (s *ReconciliationService) SelectAlternative(ctx context.Context, comparisonID, itemID uuid.UUID, candidateID, actor string) (*domain.ComparisonItemDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	candidate, err := s.catalog.GetByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("candidateId", "catalog item "+candidateID+" does not exist")
		}
		return nil, &domain.UnavailableError{Service: "warehouse catalog", Err: err}
	}
	return s.mutateItem(ctx, comparisonID, itemID, actor, "select alternative", func(item *domain.ComparisonItem) error {
		return reconcile.SelectAlternative(item, *candidate)
	})
}

// SetQuantity overrides the quantity to order for an item
func (s *ReconciliationService) SetQuantity(ctx context.Context, comparisonID, itemID uuid.UUID, qty float64, actor string) (*domain.ComparisonItemDTO, error) {
	return s.mutateItem(ctx, comparisonID, itemID, actor, "set quantity", func(item *domain.ComparisonItem) error {
		return reconcile.SetQuantity(item, qty)
	})
}

// ToggleOrder adds an item to or removes it from the order
func (s *ReconciliationService) ToggleOrder(ctx context.Context, comparisonID, itemID uuid.UUID, include bool, actor string) (*domain.ComparisonItemDTO, error) {
	return s.mutateItem(ctx, comparisonID, itemID, actor, "toggle order", func(item *domain.ComparisonItem) error {
		reconcile.ToggleOrder(item, include)
		return nil
	})
}

// SetProcurementStatus moves an item through ordering and delivery
func (s *ReconciliationService) SetProcurementStatus(ctx context.Context, comparisonID, itemID uuid.UUID, status domain.ProcurementStatus, actor string) (*domain.ComparisonItemDTO, error) {
	now := s.now()
	return s.mutateItem(ctx, comparisonID, itemID, actor, "set procurement status", func(item *domain.ComparisonItem) error {
		return reconcile.SetProcurementStatus(item, status, now)
	})
}

type itemFunc func(item *domain.ComparisonItem) error

// mutateItem applies fn to one item while holding the comparison row lock,
// then recomputes the comparison counts from all of its items
func (s *ReconciliationService) mutateItem(ctx context.Context, comparisonID, itemID uuid.UUID, actor, op string, fn itemFunc) (*domain.ComparisonItemDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var item *domain.ComparisonItem
	var comparison *domain.Comparison
	var countsChanged bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.comparisonRepo.WithTx(tx)

		var err error
		comparison, err = repo.GetForUpdate(ctx, comparisonID)
		if err != nil {
			return notFound(err, ErrComparisonNotFound, "lock comparison")
		}
		item, err = repo.GetItem(ctx, comparisonID, itemID)
		if err != nil {
			return notFound(err, ErrComparisonNotFound, "get comparison item")
		}
		if err := fn(item); err != nil {
			return err
		}
		if err := repo.SaveItem(ctx, item); err != nil {
			return fmt.Errorf("failed to save comparison item: %w", err)
		}

		countsChanged, err = s.recount(ctx, repo, comparison)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("comparison item updated",
		zap.String("comparisonID", comparisonID.String()),
		zap.String("itemID", itemID.String()),
		zap.String("operation", op),
		zap.String("status", string(item.Status)),
		zap.String("actor", actor))

	if countsChanged {
		s.recordBadge(ctx, comparison, actor)
	}

	dto := mapper.ToComparisonItemDTO(item)
	return &dto, nil
}

// recount recomputes the counters of a comparison from its stored items.
// Reports whether any counter changed.
func (s *ReconciliationService) recount(ctx context.Context, repo *repository.ComparisonRepository, comparison *domain.Comparison) (bool, error) {
	items, err := repo.ListItems(ctx, comparison.ID)
	if err != nil {
		return false, fmt.Errorf("failed to list comparison items: %w", err)
	}
	before := *comparison
	reconcile.ApplySummary(comparison, reconcile.Summarize(items))
	if sameCounts(&before, comparison) {
		return false, nil
	}
	if err := repo.UpdateCounts(ctx, comparison); err != nil {
		return false, fmt.Errorf("failed to update comparison counts: %w", err)
	}
	return true, nil
}

func sameCounts(a, b *domain.Comparison) bool {
	return a.TotalItems == b.TotalItems &&
		a.InStockCount == b.InStockCount &&
		a.PartialCount == b.PartialCount &&
		a.MissingCount == b.MissingCount &&
		a.PendingCount == b.PendingCount &&
		a.AlternativeCount == b.AlternativeCount
}

// Order builds the order document of a comparison
func (s *ReconciliationService) Order(ctx context.Context, comparisonID uuid.UUID) (*domain.OrderDTO, error) {
	order, err := s.buildOrder(ctx, comparisonID)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

// ExportOrder renders the order document and archives a copy in storage
func (s *ReconciliationService) ExportOrder(ctx context.Context, comparisonID uuid.UUID) (*ExportedOrder, error) {
	order, err := s.buildOrder(ctx, comparisonID)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Render(order)
	if err != nil {
		return nil, fmt.Errorf("failed to render order: %w", err)
	}

	out := &ExportedOrder{
		FileName:    "order-" + comparisonID.String() + s.renderer.Extension(),
		ContentType: s.renderer.ContentType(),
		Data:        data,
	}
	if s.storage != nil {
		path, _, err := s.storage.Upload(ctx, storage.FolderOrders, out.FileName, out.ContentType, bytes.NewReader(data))
		if err != nil {
			s.logger.Warn("failed to archive exported order",
				zap.String("comparisonID", comparisonID.String()),
				zap.Error(err))
		} else {
			out.StoragePath = path
		}
	}
	return out, nil
}

func (s *ReconciliationService) buildOrder(ctx context.Context, comparisonID uuid.UUID) (reconcile.Order, error) {
	comparison, err := s.comparisonRepo.GetWithItems(ctx, comparisonID)
	if err != nil {
		return reconcile.Order{}, notFound(err, ErrComparisonNotFound, "get comparison")
	}
	return reconcile.BuildOrder(comparison.ID, comparison.Items), nil
}

// RefreshStock re-reads catalog quantities for confirmed warehouse matches
// that are not on an order yet and reapplies the stock rule. Returns the
// number of items that changed.
func (s *ReconciliationService) RefreshStock(ctx context.Context) (int, error) {
	ids, err := s.comparisonRepo.ListRefreshable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list comparisons to refresh: %w", err)
	}

	changed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		n, err := s.refreshComparison(ctx, id)
		if err != nil {
			s.logger.Warn("stock refresh failed for comparison",
				zap.String("comparisonID", id.String()),
				zap.Error(err))
			continue
		}
		changed += n
	}
	return changed, nil
}

func (s *ReconciliationService) refreshComparison(ctx context.Context, comparisonID uuid.UUID) (int, error) {
	items, err := s.comparisonRepo.ListItems(ctx, comparisonID)
	if err != nil {
		return 0, err
	}

	// read the catalog before taking any lock
	current := make(map[string]domain.CatalogItem)
	for _, item := range items {
		if item.AddedToOrder || item.MatchConfidence != domain.MatchConfidenceHigh || item.WarehouseItem == nil {
			continue
		}
		if _, ok := current[item.WarehouseItem.ID]; ok {
			continue
		}
		c, err := s.catalog.GetByID(ctx, item.WarehouseItem.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return 0, &domain.UnavailableError{Service: "warehouse catalog", Err: err}
		}
		current[c.ID] = *c
	}
	if len(current) == 0 {
		return 0, nil
	}

	changed := 0
	var comparison *domain.Comparison
	var countsChanged bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.comparisonRepo.WithTx(tx)
		var err error
		comparison, err = repo.GetForUpdate(ctx, comparisonID)
		if err != nil {
			return err
		}
		locked, err := repo.ListItems(ctx, comparisonID)
		if err != nil {
			return err
		}
		for i := range locked {
			item := &locked[i]
			if item.AddedToOrder || item.WarehouseItem == nil {
				continue
			}
			c, ok := current[item.WarehouseItem.ID]
			if !ok || !reconcile.RefreshStock(item, c) {
				continue
			}
			if err := repo.SaveItem(ctx, item); err != nil {
				return err
			}
			changed++
		}
		if changed == 0 {
			return nil
		}
		countsChanged, err = s.recount(ctx, repo, comparison)
		return err
	})
	if err != nil {
		return 0, err
	}

	if changed > 0 {
		s.logger.Info("stock refreshed",
			zap.String("comparisonID", comparisonID.String()),
			zap.Int("items", changed))
	}
	if countsChanged {
		s.recordBadge(ctx, comparison, "stock-refresh")
	}
	return changed, nil
}

// recordBadge updates the comparison badge on the owning stage. Failures are
// logged; the badge is derived and rewritten on the next change.
func (s *ReconciliationService) recordBadge(ctx context.Context, c *domain.Comparison, actor string) {
	if s.stageData == nil || c.StageID == nil {
		return
	}
	summary := stagedata.WarehouseComparisonSummary{
		ComparisonID:        c.ID,
		TotalItems:          c.TotalItems,
		InStock:             c.InStockCount,
		Partial:             c.PartialCount,
		Missing:             c.MissingCount,
		Pending:             c.PendingCount,
		AlternativeSelected: c.AlternativeCount,
		UpdatedAt:           s.now().UTC(),
	}
	if err := s.stageData.RecordComparison(ctx, *c.StageID, summary, actor); err != nil {
		s.logger.Warn("failed to record comparison on stage",
			zap.String("comparisonID", c.ID.String()),
			zap.String("stageID", c.StageID.String()),
			zap.Error(err))
	}
}
