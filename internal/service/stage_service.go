package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/mapper"
	"github.com/useneurox-company/ERP--sub000/internal/repository"
	"github.com/useneurox-company/ERP--sub000/internal/stagedata"
	"github.com/useneurox-company/ERP--sub000/internal/workflow"
)

// StageService runs stage lifecycle transitions and maintains the
// dependency graph between stages
type StageService struct {
	projectRepo    *repository.ProjectRepository
	stageRepo      *repository.StageRepository
	dependencyRepo *repository.StageDependencyRepository
	transitionRepo *repository.StageTransitionRepository
	sink           NotificationSink
	locks          *workflow.StageLocks
	db             *gorm.DB
	logger         *zap.Logger
	now            func() time.Time
}

// NewStageService creates a new StageService. sink may be nil.
func NewStageService(
	projectRepo *repository.ProjectRepository,
	stageRepo *repository.StageRepository,
	dependencyRepo *repository.StageDependencyRepository,
	transitionRepo *repository.StageTransitionRepository,
	sink NotificationSink,
	db *gorm.DB,
	logger *zap.Logger,
) *StageService {
	return &StageService{
		projectRepo:    projectRepo,
		stageRepo:      stageRepo,
		dependencyRepo: dependencyRepo,
		transitionRepo: transitionRepo,
		sink:           sink,
		locks:          workflow.NewStageLocks(),
		db:             db,
		logger:         logger,
		now:            time.Now,
	}
}

// GetByID returns a stage with its dependencies, block state and decoded data
func (s *StageService) GetByID(ctx context.Context, id uuid.UUID) (*domain.StageDTO, error) {
	stage, err := s.stageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStageNotFound, "get stage")
	}
	dto, err := s.toDTO(ctx, stage)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Create adds a stage to a project. Requested dependencies are validated
// against the project graph in the same transaction that inserts them.
func (s *StageService) Create(ctx context.Context, projectID uuid.UUID, req *domain.CreateStageRequest, actor string) (*domain.StageDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !req.StageType.IsValid() {
		return nil, domain.NewValidationError("stageType", fmt.Sprintf("unknown stage type %q", req.StageType))
	}
	plannedStart, err := parseDate("plannedStartDate", req.PlannedStartDate)
	if err != nil {
		return nil, err
	}
	plannedEnd, err := parseDate("plannedEndDate", req.PlannedEndDate)
	if err != nil {
		return nil, err
	}

	typeData, err := emptyTypeData(req.StageType)
	if err != nil {
		return nil, err
	}

	stage := &domain.Stage{
		ProjectID:        projectID,
		Name:             req.Name,
		StageType:        req.StageType,
		Status:           domain.StageStatusPending,
		DisplayOrder:     req.DisplayOrder,
		PlannedStartDate: plannedStart,
		PlannedEndDate:   plannedEnd,
		AssigneeID:       req.AssigneeID,
		TypeData:         typeData,
		ReopenHistory:    datatypes.JSONSlice[domain.ReopenEntry]{},
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.projectRepo.WithTx(tx).LockForUpdate(ctx, projectID); err != nil {
			return notFound(err, ErrProjectNotFound, "lock project")
		}
		if err := s.stageRepo.WithTx(tx).Create(ctx, stage); err != nil {
			return fmt.Errorf("failed to create stage: %w", err)
		}
		for _, depID := range req.DependsOn {
			if err := s.addDependencyTx(ctx, tx, stage, depID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stage created",
		zap.String("stageID", stage.ID.String()),
		zap.String("projectID", projectID.String()),
		zap.String("stageType", string(stage.StageType)),
		zap.String("actor", actor))

	return s.GetByID(ctx, stage.ID)
}

// Start moves a pending, unblocked stage to in_progress
func (s *StageService) Start(ctx context.Context, id uuid.UUID, actor string) (*domain.StageDTO, error) {
	stage, _, err := s.transition(ctx, id, actor, "", func(stage *domain.Stage, block workflow.BlockState, now time.Time) error {
		return workflow.Start(stage, block, now)
	})
	if err != nil {
		return nil, err
	}
	dto, err := s.toDTO(ctx, stage)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Complete finishes an in_progress stage and reports which dependents can
// start now. The notification sink is called after commit.
func (s *StageService) Complete(ctx context.Context, id uuid.UUID, actor string) (*domain.CompletionResultDTO, error) {
	stage, graph, err := s.transition(ctx, id, actor, "", func(stage *domain.Stage, _ workflow.BlockState, now time.Time) error {
		return workflow.Complete(stage, now)
	})
	if err != nil {
		return nil, err
	}

	dependents, unblocked, err := s.unblockedDependents(ctx, graph, stage.ID)
	if err != nil {
		return nil, err
	}

	if s.sink != nil {
		event := StageCompletedEvent{Stage: *stage, ActorID: actor, Dependents: dependents, Unblocked: unblocked}
		if err := s.sink.StageCompleted(ctx, event); err != nil {
			s.logger.Warn("failed to deliver stage completion notifications",
				zap.String("stageID", stage.ID.String()),
				zap.Error(err))
		}
	}

	dto, err := s.toDTO(ctx, stage)
	if err != nil {
		return nil, err
	}
	return &domain.CompletionResultDTO{
		Stage:      dto,
		Dependents: graph.Dependents(stage.ID),
		Unblocked:  unblocked,
	}, nil
}

// Reopen sends a completed stage back to in_progress with a reason
func (s *StageService) Reopen(ctx context.Context, id uuid.UUID, actor, reason string) (*domain.StageDTO, error) {
	stage, graph, err := s.transition(ctx, id, actor, reason, func(stage *domain.Stage, _ workflow.BlockState, now time.Time) error {
		return workflow.Reopen(stage, actor, reason, now)
	})
	if err != nil {
		return nil, err
	}

	if s.sink != nil {
		dependents, err := s.stageRepo.ListByIDs(ctx, graph.Dependents(stage.ID))
		if err == nil {
			err = s.sink.StageReopened(ctx, StageReopenedEvent{Stage: *stage, ActorID: actor, Reason: reason, Dependents: dependents})
		}
		if err != nil {
			s.logger.Warn("failed to deliver stage reopen notifications",
				zap.String("stageID", stage.ID.String()),
				zap.Error(err))
		}
	}

	dto, err := s.toDTO(ctx, stage)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

type transitionFunc func(stage *domain.Stage, block workflow.BlockState, now time.Time) error

// transition applies fn to the stage inside one transaction: the stage row is
// locked, its direct dependencies are share-locked while the block state is
// read, and the write only succeeds if the status is still the one fn saw.
// It returns the updated stage and the project graph it was checked against.
func (s *StageService) transition(ctx context.Context, id uuid.UUID, actor, reason string, fn transitionFunc) (*domain.Stage, *workflow.Graph, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}

	release := s.locks.Lock(id)
	defer release()

	var stage *domain.Stage
	var graph *workflow.Graph
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stages := s.stageRepo.WithTx(tx)

		var err error
		stage, err = stages.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrStageNotFound, "lock stage")
		}

		graph, err = s.loadGraph(ctx, tx, stage.ProjectID)
		if err != nil {
			return err
		}
		statuses, err := stages.StatusesForShare(ctx, graph.Dependencies(stage.ID))
		if err != nil {
			return fmt.Errorf("failed to read dependency status: %w", err)
		}
		block := graph.IsBlocked(stage.ID, func(dep uuid.UUID) domain.StageStatus { return statuses[dep] })

		from := stage.Status
		now := s.now().UTC()
		if err := fn(stage, block, now); err != nil {
			return err
		}

		ok, err := stages.CompareAndSetStatus(ctx, stage.ID, from, map[string]interface{}{
			"status":            stage.Status,
			"actual_start_date": stage.ActualStartDate,
			"actual_end_date":   stage.ActualEndDate,
			"reopen_history":    stage.ReopenHistory,
		})
		if err != nil {
			return fmt.Errorf("failed to update stage: %w", err)
		}
		if !ok {
			return &domain.TransitionError{
				Entity: "stage " + stage.ID.String(),
				From:   string(from),
				To:     string(stage.Status),
				Reason: "the stage was changed concurrently",
			}
		}

		return s.transitionRepo.WithTx(tx).Create(ctx, &domain.StageTransition{
			StageID:    stage.ID,
			FromStatus: from,
			ToStatus:   stage.Status,
			ActorID:    actor,
			Reason:     reason,
			ChangedAt:  now,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("stage transitioned",
		zap.String("stageID", stage.ID.String()),
		zap.String("status", string(stage.Status)),
		zap.String("actor", actor))
	return stage, graph, nil
}

// unblockedDependents loads the dependents of a stage and picks the pending
// ones whose direct dependencies are all completed
func (s *StageService) unblockedDependents(ctx context.Context, graph *workflow.Graph, stageID uuid.UUID) ([]domain.Stage, []uuid.UUID, error) {
	dependentIDs := graph.Dependents(stageID)
	unblocked := []uuid.UUID{}
	if len(dependentIDs) == 0 {
		return []domain.Stage{}, unblocked, nil
	}

	dependents, err := s.stageRepo.ListByIDs(ctx, dependentIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load dependents: %w", err)
	}

	var needed []uuid.UUID
	for _, d := range dependents {
		needed = append(needed, graph.Dependencies(d.ID)...)
	}
	statuses, err := s.statuses(ctx, needed)
	if err != nil {
		return nil, nil, err
	}

	for _, d := range dependents {
		if d.Status != domain.StageStatusPending {
			continue
		}
		if !graph.IsBlocked(d.ID, statusLookup(statuses)).Blocked {
			unblocked = append(unblocked, d.ID)
		}
	}
	return dependents, unblocked, nil
}

// AddDependency makes stageID depend on dependsOnID. Both stages must belong
// to the same project and the edge must not close a cycle. The project row is
// locked first so concurrent edits of one graph are checked one at a time.
func (s *StageService) AddDependency(ctx context.Context, stageID, dependsOnID uuid.UUID, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.stageRepo.WithTx(tx).GetByID(ctx, stageID)
		if err != nil {
			return notFound(err, ErrStageNotFound, "get stage")
		}
		if err := s.projectRepo.WithTx(tx).LockForUpdate(ctx, current.ProjectID); err != nil {
			return notFound(err, ErrProjectNotFound, "lock project")
		}
		stage, err := s.stageRepo.WithTx(tx).GetForUpdate(ctx, stageID)
		if err != nil {
			return notFound(err, ErrStageNotFound, "lock stage")
		}
		return s.addDependencyTx(ctx, tx, stage, dependsOnID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("stage dependency added",
		zap.String("stageID", stageID.String()),
		zap.String("dependsOnID", dependsOnID.String()),
		zap.String("actor", actor))
	return nil
}

// addDependencyTx checks the new edge against the project graph loaded in tx
// and inserts it only when the check passes. Caller holds the project lock.
func (s *StageService) addDependencyTx(ctx context.Context, tx *gorm.DB, stage *domain.Stage, dependsOnID uuid.UUID) error {
	target, err := s.stageRepo.WithTx(tx).GetByID(ctx, dependsOnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewValidationError("dependsOnId", "stage "+dependsOnID.String()+" does not exist")
		}
		return fmt.Errorf("failed to get stage: %w", err)
	}
	if target.ProjectID != stage.ProjectID {
		return domain.NewValidationError("dependsOnId", "stages must belong to the same project")
	}

	graph, err := s.loadGraph(ctx, tx, stage.ProjectID)
	if err != nil {
		return err
	}
	if graph.HasDependency(stage.ID, dependsOnID) {
		return nil
	}
	if err := graph.AddDependency(stage.ID, dependsOnID); err != nil {
		return err
	}

	return s.dependencyRepo.WithTx(tx).Create(ctx, &domain.StageDependency{
		ProjectID:        stage.ProjectID,
		StageID:          stage.ID,
		DependsOnStageID: dependsOnID,
	})
}

// RemoveDependency deletes the edge stageID -> dependsOnID
func (s *StageService) RemoveDependency(ctx context.Context, stageID, dependsOnID uuid.UUID, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	removed, err := s.dependencyRepo.Delete(ctx, stageID, dependsOnID)
	if err != nil {
		return fmt.Errorf("failed to remove dependency: %w", err)
	}
	if !removed {
		return fmt.Errorf("dependency %s -> %s: %w", stageID, dependsOnID, domain.ErrNotFound)
	}
	s.logger.Info("stage dependency removed",
		zap.String("stageID", stageID.String()),
		zap.String("dependsOnID", dependsOnID.String()),
		zap.String("actor", actor))
	return nil
}

// IsBlocked reports whether the stage has unfinished direct dependencies
func (s *StageService) IsBlocked(ctx context.Context, id uuid.UUID) (*domain.BlockStateDTO, error) {
	stage, err := s.stageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStageNotFound, "get stage")
	}
	block, _, err := s.blockState(ctx, stage)
	if err != nil {
		return nil, err
	}
	return &domain.BlockStateDTO{StageID: id, Blocked: block.Blocked, Blockers: block.Blockers}, nil
}

// Dependents lists the stages that directly depend on id
func (s *StageService) Dependents(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.stageRepo.GetByID(ctx, id); err != nil {
		return nil, notFound(err, ErrStageNotFound, "get stage")
	}
	ids, err := s.dependencyRepo.ListDependents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependents: %w", err)
	}
	sortIDs(ids)
	return ids, nil
}

// History returns the transition ledger of a stage, oldest first
func (s *StageService) History(ctx context.Context, id uuid.UUID) ([]domain.StageTransitionDTO, error) {
	if _, err := s.stageRepo.GetByID(ctx, id); err != nil {
		return nil, notFound(err, ErrStageNotFound, "get stage")
	}
	transitions, err := s.transitionRepo.ListByStage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	dtos := make([]domain.StageTransitionDTO, len(transitions))
	for i := range transitions {
		dtos[i] = mapper.ToStageTransitionDTO(&transitions[i])
	}
	return dtos, nil
}

func (s *StageService) loadGraph(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*workflow.Graph, error) {
	edges, err := s.dependencyRepo.WithTx(tx).ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dependencies: %w", err)
	}
	graph, err := workflow.NewGraphFromEdges(edges)
	if err != nil {
		return nil, fmt.Errorf("stored dependencies of project %s: %w", projectID, err)
	}
	return graph, nil
}

func (s *StageService) statuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.StageStatus, error) {
	stages, err := s.stageRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read stage status: %w", err)
	}
	out := make(map[uuid.UUID]domain.StageStatus, len(stages))
	for _, st := range stages {
		out[st.ID] = st.Status
	}
	return out, nil
}

func (s *StageService) blockState(ctx context.Context, stage *domain.Stage) (workflow.BlockState, []uuid.UUID, error) {
	deps, err := s.dependencyRepo.ListDependencies(ctx, stage.ID)
	if err != nil {
		return workflow.BlockState{}, nil, fmt.Errorf("failed to list dependencies: %w", err)
	}
	graph := workflow.NewGraph()
	for _, dep := range deps {
		if err := graph.AddDependency(stage.ID, dep); err != nil {
			return workflow.BlockState{}, nil, err
		}
	}
	statuses, err := s.statuses(ctx, deps)
	if err != nil {
		return workflow.BlockState{}, nil, err
	}
	return graph.IsBlocked(stage.ID, statusLookup(statuses)), graph.Dependencies(stage.ID), nil
}

func (s *StageService) toDTO(ctx context.Context, stage *domain.Stage) (domain.StageDTO, error) {
	block, deps, err := s.blockState(ctx, stage)
	if err != nil {
		return domain.StageDTO{}, err
	}
	return mapper.ToStageDTO(stage, mapper.StageView{
		DependsOn: deps,
		Blocked:   block.Blocked,
		Blockers:  block.Blockers,
		TypeData:  decodedTypeData(stage, s.logger),
	}), nil
}

// decodedTypeData returns the recomputed payload of a stage. Stored data that
// no longer decodes is returned raw so it can still be inspected and fixed.
func decodedTypeData(stage *domain.Stage, logger *zap.Logger) interface{} {
	payload, err := stagedata.Decode(stage.StageType, stage.TypeData)
	if err != nil {
		logger.Warn("stored stage data does not decode",
			zap.String("stageID", stage.ID.String()),
			zap.Error(err))
		return json.RawMessage(stage.TypeData)
	}
	return payload
}

func emptyTypeData(t domain.StageType) (datatypes.JSON, error) {
	payload, err := stagedata.Empty(t)
	if err != nil {
		return nil, err
	}
	data, err := stagedata.Encode(payload)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func statusLookup(m map[uuid.UUID]domain.StageStatus) workflow.StatusFunc {
	return func(id uuid.UUID) domain.StageStatus { return m[id] }
}

// parseDate accepts RFC 3339 timestamps and plain dates
func parseDate(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.NewValidationError(field, "Must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}

func sortIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
}
