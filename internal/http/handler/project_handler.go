package handler

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/service"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	stageService   *service.StageService
	logger         *zap.Logger
}

func NewProjectHandler(projectService *service.ProjectService, stageService *service.StageService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		stageService:   stageService,
		logger:         logger,
	}
}

// List godoc
// @Summary List projects
// @Description Get paginated list of projects, newest first
// @Tags Projects
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ProjectDTO}
// @Failure 500 {object} domain.APIError
// @Router /projects [get]
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	result, err := h.projectService.List(r.Context(), page, pageSize)
	if err != nil {
		respondError(w, h.logger, err, "list projects")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create project
// @Description Create a project; the furniture template also creates the seven chained production stages
// @Tags Projects
// @Accept json
// @Produce json
// @Param X-Actor-ID header string true "Acting user"
// @Param project body domain.CreateProjectRequest true "Project data"
// @Success 201 {object} domain.ProjectDTO
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /projects [post]
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	project, err := h.projectService.Create(r.Context(), &req, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "create project")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/projects/%s", project.ID))
	respondJSON(w, http.StatusCreated, project)
}

// GetByID godoc
// @Summary Get project
// @Description Get a project with its stages in dependency order
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Success 200 {object} domain.ProjectDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get project")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// Delete godoc
// @Summary Delete project
// @Description Delete a project together with its stages and dependency edges
// @Tags Projects
// @Param id path string true "Project ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Success 204 "No Content"
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(r.Context(), id, actorOf(r)); err != nil {
		respondError(w, h.logger, err, "delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListStages godoc
// @Summary List project stages
// @Description Stages of a project in dependency order, each with its block state
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Success 200 {array} domain.StageDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /projects/{id}/stages [get]
func (h *ProjectHandler) ListStages(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}

	stages, err := h.projectService.ListStages(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "list stages")
		return
	}
	respondJSON(w, http.StatusOK, stages)
}

// CreateStage godoc
// @Summary Add stage
// @Description Add a stage to a project, optionally with dependencies on existing stages
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param stage body domain.CreateStageRequest true "Stage data"
// @Success 201 {object} domain.StageDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /projects/{id}/stages [post]
func (h *ProjectHandler) CreateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}
	var req domain.CreateStageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stage, err := h.stageService.Create(r.Context(), id, &req, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "create stage")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/stages/%s", stage.ID))
	respondJSON(w, http.StatusCreated, stage)
}
