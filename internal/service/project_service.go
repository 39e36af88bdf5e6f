package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/mapper"
	"github.com/useneurox-company/ERP--sub000/internal/repository"
	"github.com/useneurox-company/ERP--sub000/internal/workflow"
)

// Project templates
const (
	TemplateFurniture = "furniture"
	TemplateEmpty     = "empty"
)

// furnitureStages is the production chain a new furniture order goes through.
// Each stage depends on the one before it.
var furnitureStages = []struct {
	name      string
	stageType domain.StageType
}{
	{"Measurement", domain.StageTypeMeasurement},
	{"Technical specification", domain.StageTypeTechnicalSpecification},
	{"Constructor documentation", domain.StageTypeConstructorDocumentation},
	{"Approval", domain.StageTypeApproval},
	{"Procurement", domain.StageTypeProcurement},
	{"Production", domain.StageTypeProduction},
	{"Installation", domain.StageTypeInstallation},
}

// ProjectService creates projects from templates and lists their stages in
// workflow order
type ProjectService struct {
	projectRepo    *repository.ProjectRepository
	stageRepo      *repository.StageRepository
	dependencyRepo *repository.StageDependencyRepository
	db             *gorm.DB
	logger         *zap.Logger
}

// NewProjectService creates a new ProjectService instance
func NewProjectService(
	projectRepo *repository.ProjectRepository,
	stageRepo *repository.StageRepository,
	dependencyRepo *repository.StageDependencyRepository,
	db *gorm.DB,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepo:    projectRepo,
		stageRepo:      stageRepo,
		dependencyRepo: dependencyRepo,
		db:             db,
		logger:         logger,
	}
}

// Create creates a project and instantiates the stages of its template
func (s *ProjectService) Create(ctx context.Context, req *domain.CreateProjectRequest, actor string) (*domain.ProjectDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	template := req.Template
	if template == "" {
		template = TemplateFurniture
	}
	if template != TemplateFurniture && template != TemplateEmpty {
		return nil, domain.NewValidationError("template", "Must be one of: furniture empty")
	}

	project := &domain.Project{
		Name:        req.Name,
		ClientName:  req.ClientName,
		Address:     req.Address,
		Template:    template,
		CreatedByID: actor,
	}

	if template == TemplateFurniture {
		for i, st := range furnitureStages {
			typeData, err := emptyTypeData(st.stageType)
			if err != nil {
				return nil, err
			}
			project.Stages = append(project.Stages, domain.Stage{
				BaseModel:     domain.BaseModel{ID: uuid.New()},
				Name:          st.name,
				StageType:     st.stageType,
				Status:        domain.StageStatusPending,
				DisplayOrder:  i,
				TypeData:      typeData,
				ReopenHistory: datatypes.JSONSlice[domain.ReopenEntry]{},
			})
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.projectRepo.WithTx(tx).Create(ctx, project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		graph := workflow.NewGraph()
		deps := s.dependencyRepo.WithTx(tx)
		for i := 1; i < len(project.Stages); i++ {
			stage, prev := project.Stages[i], project.Stages[i-1]
			if err := graph.AddDependency(stage.ID, prev.ID); err != nil {
				return err
			}
			if err := deps.Create(ctx, &domain.StageDependency{
				ProjectID:        project.ID,
				StageID:          stage.ID,
				DependsOnStageID: prev.ID,
			}); err != nil {
				return fmt.Errorf("failed to create stage dependency: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("projectID", project.ID.String()),
		zap.String("template", template),
		zap.Int("stages", len(project.Stages)),
		zap.String("actor", actor))

	return s.GetByID(ctx, project.ID)
}

// GetByID returns a project with its stages in workflow order
func (s *ProjectService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectDTO, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "get project")
	}

	stages, err := s.orderedStages(ctx, project.ID, project.Stages)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToProjectDTO(project, stages)
	return &dto, nil
}

// ListStages returns the stages of a project in workflow order
func (s *ProjectService) ListStages(ctx context.Context, projectID uuid.UUID) ([]domain.StageDTO, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, notFound(err, ErrProjectNotFound, "get project")
	}
	stages, err := s.stageRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	return s.orderedStages(ctx, projectID, stages)
}

// List returns projects with pagination, newest first
func (s *ProjectService) List(ctx context.Context, page, pageSize int) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	projects, total, err := s.projectRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	dtos := make([]domain.ProjectDTO, len(projects))
	for i := range projects {
		dtos[i] = mapper.ToProjectDTO(&projects[i], nil)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Delete removes a project together with its stages and dependency edges
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.dependencyRepo.WithTx(tx).DeleteByProject(ctx, id); err != nil {
			return fmt.Errorf("failed to delete dependencies: %w", err)
		}
		if err := s.projectRepo.WithTx(tx).Delete(ctx, id); err != nil {
			return notFound(err, ErrProjectNotFound, "delete project")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("project deleted", zap.String("projectID", id.String()), zap.String("actor", actor))
	return nil
}

// orderedStages sorts stages so every stage follows its dependencies,
// breaking ties by display order, and computes each stage's block state
func (s *ProjectService) orderedStages(ctx context.Context, projectID uuid.UUID, stages []domain.Stage) ([]domain.StageDTO, error) {
	edges, err := s.dependencyRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dependencies: %w", err)
	}
	graph, err := workflow.NewGraphFromEdges(edges)
	if err != nil {
		return nil, fmt.Errorf("stored dependencies of project %s: %w", projectID, err)
	}

	byID := make(map[uuid.UUID]*domain.Stage, len(stages))
	statuses := make(map[uuid.UUID]domain.StageStatus, len(stages))
	preferred := make([]uuid.UUID, len(stages))
	for i := range stages {
		byID[stages[i].ID] = &stages[i]
		statuses[stages[i].ID] = stages[i].Status
		preferred[i] = stages[i].ID
	}

	order, err := graph.TopologicalOrder(preferred)
	if err != nil {
		return nil, err
	}

	dtos := make([]domain.StageDTO, 0, len(order))
	for _, id := range order {
		stage := byID[id]
		block := graph.IsBlocked(id, statusLookup(statuses))
		dtos = append(dtos, mapper.ToStageDTO(stage, mapper.StageView{
			DependsOn: graph.Dependencies(id),
			Blocked:   block.Blocked,
			Blockers:  block.Blockers,
			TypeData:  decodedTypeData(stage, s.logger),
		}))
	}
	return dtos, nil
}
