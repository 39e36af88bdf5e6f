package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/autosave"
	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/repository"
	"github.com/useneurox-company/ERP--sub000/internal/stagedata"
)

// StageDataService reads and writes the typed payload of a stage. Edits can
// go through the autosave buffer (Patch) or straight to the database (Put);
// both end in the same validate-and-store path, last write wins.
type StageDataService struct {
	stageRepo *repository.StageRepository
	buffer    *autosave.Buffer[uuid.UUID]
	db        *gorm.DB
	logger    *zap.Logger
	now       func() time.Time
}

// NewStageDataService creates the service and its autosave buffer with the
// given debounce window
func NewStageDataService(stageRepo *repository.StageRepository, db *gorm.DB, debounce time.Duration, logger *zap.Logger) *StageDataService {
	s := &StageDataService{
		stageRepo: stageRepo,
		db:        db,
		logger:    logger,
		now:       time.Now,
	}
	s.buffer = autosave.New(s.saveBuffered, debounce, logger,
		autosave.WithPermanentErrors(func(err error) bool {
			return errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound)
		}))
	return s
}

// Get returns the stage payload including edits still waiting in the buffer
func (s *StageDataService) Get(ctx context.Context, stageID uuid.UUID) (stagedata.Payload, error) {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, notFound(err, ErrStageNotFound, "get stage")
	}
	if patch, ok := s.buffer.View(stageID); ok {
		return s.merged(stage, patch)
	}
	return stagedata.Decode(stage.StageType, stage.TypeData)
}

// Put replaces the stage payload immediately. Buffered edits made before the
// call are saved first so they cannot overwrite it later.
func (s *StageDataService) Put(ctx context.Context, stageID uuid.UUID, raw []byte, actor string) (stagedata.Payload, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.flushPending(ctx, stageID); err != nil {
		return nil, err
	}

	var saved stagedata.Payload
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stage, err := s.stageRepo.WithTx(tx).GetForUpdate(ctx, stageID)
		if err != nil {
			return notFound(err, ErrStageNotFound, "lock stage")
		}
		next, err := stagedata.Decode(stage.StageType, raw)
		if err != nil {
			return err
		}
		saved = next
		return s.store(ctx, tx, stage, next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stage data saved", zap.String("stageID", stageID.String()), zap.String("actor", actor))
	return saved, nil
}

// Patch buffers a partial edit. The edit is checked against the current data
// before it is accepted so a bad patch fails now rather than at save time.
func (s *StageDataService) Patch(ctx context.Context, stageID uuid.UUID, patch autosave.Patch, actor string) (*domain.SaveStateDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, notFound(err, ErrStageNotFound, "get stage")
	}

	combined := patch
	if pending, ok := s.buffer.View(stageID); ok {
		combined = autosave.Merge(pending, patch)
	}
	next, err := s.merged(stage, combined)
	if err != nil {
		return nil, err
	}
	if err := s.checkImmutable(stage, next); err != nil {
		return nil, err
	}

	if err := s.buffer.Edit(stageID, patch); err != nil {
		return nil, err
	}
	s.logger.Debug("stage data edit buffered",
		zap.String("stageID", stageID.String()),
		zap.String("actor", actor),
		zap.Int("fields", len(patch)))
	return s.State(stageID), nil
}

// Flush saves buffered edits of a stage now
func (s *StageDataService) Flush(ctx context.Context, stageID uuid.UUID) (*domain.SaveStateDTO, error) {
	if _, err := s.stageRepo.GetByID(ctx, stageID); err != nil {
		return nil, notFound(err, ErrStageNotFound, "get stage")
	}
	if err := s.buffer.Flush(ctx, stageID); err != nil {
		return nil, err
	}
	return s.State(stageID), nil
}

// State reports the autosave state of a stage
func (s *StageDataService) State(stageID uuid.UUID) *domain.SaveStateDTO {
	st := s.buffer.State(stageID)
	dto := &domain.SaveStateDTO{StageID: stageID, State: string(st.State)}
	if st.LastError != nil {
		dto.LastError = st.LastError.Error()
	}
	if !st.SavedAt.IsZero() {
		at := st.SavedAt.UTC().Format(time.RFC3339)
		dto.SavedAt = &at
	}
	return dto
}

// Close flushes every buffered edit; call on shutdown
func (s *StageDataService) Close(ctx context.Context) error {
	return s.buffer.Close(ctx)
}

// DecideDocument approves or rejects one approval document
func (s *StageDataService) DecideDocument(ctx context.Context, stageID uuid.UUID, documentID string, req *domain.DocumentDecisionRequest, actor string) (*stagedata.ApprovalData, error) {
	var out *stagedata.ApprovalData
	err := s.mutate(ctx, stageID, actor, domain.StageTypeApproval, func(p stagedata.Payload, now time.Time) error {
		d := p.(*stagedata.ApprovalData)
		out = d
		return stagedata.DecideDocument(d, documentID, stagedata.DocumentStatus(req.Status), actor, req.Comment, now)
	})
	return out, err
}

// RequestRevision opens a revision request on an approval stage
func (s *StageDataService) RequestRevision(ctx context.Context, stageID uuid.UUID, reason, actor string) (*stagedata.ApprovalData, error) {
	var out *stagedata.ApprovalData
	err := s.mutate(ctx, stageID, actor, domain.StageTypeApproval, func(p stagedata.Payload, now time.Time) error {
		d := p.(*stagedata.ApprovalData)
		out = d
		_, err := stagedata.RequestRevision(d, reason, actor, now)
		return err
	})
	return out, err
}

// ResolveRevisions closes every open revision request
func (s *StageDataService) ResolveRevisions(ctx context.Context, stageID uuid.UUID, actor string) (*stagedata.ApprovalData, error) {
	var out *stagedata.ApprovalData
	err := s.mutate(ctx, stageID, actor, domain.StageTypeApproval, func(p stagedata.Payload, now time.Time) error {
		d := p.(*stagedata.ApprovalData)
		out = d
		stagedata.ResolveRevisions(d, actor, now)
		return nil
	})
	return out, err
}

// AddClientComment records a client comment on an approval stage
func (s *StageDataService) AddClientComment(ctx context.Context, stageID uuid.UUID, text, actor string) (*stagedata.ApprovalData, error) {
	var out *stagedata.ApprovalData
	err := s.mutate(ctx, stageID, actor, domain.StageTypeApproval, func(p stagedata.Payload, now time.Time) error {
		d := p.(*stagedata.ApprovalData)
		out = d
		return stagedata.AddClientComment(d, actor, text, now)
	})
	return out, err
}

// CompleteCutting marks a cutting task of a production stage done
func (s *StageDataService) CompleteCutting(ctx context.Context, stageID uuid.UUID, taskID, actor string) (*stagedata.ProductionData, error) {
	var out *stagedata.ProductionData
	err := s.mutate(ctx, stageID, actor, domain.StageTypeProduction, func(p stagedata.Payload, now time.Time) error {
		d := p.(*stagedata.ProductionData)
		out = d
		return stagedata.CompleteCutting(d, taskID, now)
	})
	return out, err
}

// RecordComparison writes a reconciliation badge onto constructor
// documentation. When the given stage is of another type, the project's
// constructor documentation stage receives it; without one nothing is written.
func (s *StageDataService) RecordComparison(ctx context.Context, stageID uuid.UUID, summary stagedata.WarehouseComparisonSummary, actor string) error {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return notFound(err, ErrStageNotFound, "get stage")
	}
	if stage.StageType != domain.StageTypeConstructorDocumentation {
		stage, err = s.stageRepo.FindByProjectAndType(ctx, stage.ProjectID, domain.StageTypeConstructorDocumentation)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to find constructor documentation stage: %w", err)
		}
	}

	return s.mutate(ctx, stage.ID, actor, domain.StageTypeConstructorDocumentation, func(p stagedata.Payload, now time.Time) error {
		badge := summary
		if badge.UpdatedAt.IsZero() {
			badge.UpdatedAt = now.UTC()
		}
		p.(*stagedata.ConstructorDocumentationData).WarehouseComparison = &badge
		return nil
	})
}

type mutateFunc func(p stagedata.Payload, now time.Time) error

// mutate runs fn on the stored payload of a stage under a row lock and stores
// the result. Buffered edits are saved first.
func (s *StageDataService) mutate(ctx context.Context, stageID uuid.UUID, actor string, want domain.StageType, fn mutateFunc) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.flushPending(ctx, stageID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stage, err := s.stageRepo.WithTx(tx).GetForUpdate(ctx, stageID)
		if err != nil {
			return notFound(err, ErrStageNotFound, "lock stage")
		}
		if stage.StageType != want {
			return domain.NewValidationError("stageType", fmt.Sprintf("stage is %s, not %s", stage.StageType, want))
		}
		payload, err := stagedata.Decode(stage.StageType, stage.TypeData)
		if err != nil {
			return fmt.Errorf("stored data of stage %s: %w", stageID, err)
		}
		if err := fn(payload, s.now()); err != nil {
			return err
		}
		return s.store(ctx, tx, stage, payload)
	})
}

// flushPending saves buffered edits ahead of a direct write. Edits the stored
// data rejects have already been dropped by the buffer and do not block the
// write.
func (s *StageDataService) flushPending(ctx context.Context, stageID uuid.UUID) error {
	err := s.buffer.Flush(ctx, stageID)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrValidation) {
		s.logger.Warn("buffered stage edits rejected",
			zap.String("stageID", stageID.String()),
			zap.Error(err))
		return nil
	}
	return fmt.Errorf("failed to save pending edits: %w", err)
}

// saveBuffered is the autosave SaveFunc: it applies the coalesced patch on
// top of what is stored now
func (s *StageDataService) saveBuffered(ctx context.Context, stageID uuid.UUID, patch autosave.Patch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stage, err := s.stageRepo.WithTx(tx).GetForUpdate(ctx, stageID)
		if err != nil {
			return notFound(err, ErrStageNotFound, "lock stage")
		}
		next, err := s.merged(stage, patch)
		if err != nil {
			return err
		}
		return s.store(ctx, tx, stage, next)
	})
}

// merged applies patch to the stored payload object and decodes the result
func (s *StageDataService) merged(stage *domain.Stage, patch autosave.Patch) (stagedata.Payload, error) {
	base := autosave.Patch{}
	if len(stage.TypeData) > 0 && string(stage.TypeData) != "null" {
		stored, err := autosave.ParsePatch(stage.TypeData)
		if err != nil {
			return nil, fmt.Errorf("stored data of stage %s: %w", stage.ID, err)
		}
		base = stored
	}
	data, err := json.Marshal(autosave.Merge(base, patch))
	if err != nil {
		return nil, fmt.Errorf("failed to merge edits: %w", err)
	}
	return stagedata.Decode(stage.StageType, data)
}

func (s *StageDataService) checkImmutable(stage *domain.Stage, next stagedata.Payload) error {
	prev, err := stagedata.Decode(stage.StageType, stage.TypeData)
	if err != nil {
		// stored data that no longer decodes can only be replaced
		return nil
	}
	return stagedata.CheckImmutable(prev, next)
}

// store validates next against the stored payload and writes it. Caller holds
// the stage row lock in tx.
func (s *StageDataService) store(ctx context.Context, tx *gorm.DB, stage *domain.Stage, next stagedata.Payload) error {
	if err := s.checkImmutable(stage, next); err != nil {
		return err
	}
	data, err := stagedata.Encode(next)
	if err != nil {
		return err
	}
	if err := s.stageRepo.WithTx(tx).UpdateFields(ctx, stage.ID, map[string]interface{}{
		"type_data": datatypes.JSON(data),
	}); err != nil {
		return notFound(err, ErrStageNotFound, "save stage data")
	}
	stage.TypeData = datatypes.JSON(data)
	return nil
}
