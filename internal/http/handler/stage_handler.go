package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/service"
)

// StageHandler serves the stage lifecycle and dependency graph
type StageHandler struct {
	stageService *service.StageService
	logger       *zap.Logger
}

func NewStageHandler(stageService *service.StageService, logger *zap.Logger) *StageHandler {
	return &StageHandler{
		stageService: stageService,
		logger:       logger,
	}
}

// GetByID godoc
// @Summary Get stage
// @Description Get a stage with its decoded type data and block state
// @Tags Stages
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Success 200 {object} domain.StageDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id} [get]
func (h *StageHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	stage, err := h.stageService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get stage")
		return
	}
	respondJSON(w, http.StatusOK, stage)
}

// Start godoc
// @Summary Start stage
// @Description Move a pending stage to in_progress. Fails with 409 while a direct dependency is unfinished.
// @Tags Stages
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Success 200 {object} domain.StageDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "blocked or invalid transition"
// @Router /stages/{id}/start [post]
func (h *StageHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	stage, err := h.stageService.Start(r.Context(), id, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "start stage")
		return
	}
	respondJSON(w, http.StatusOK, stage)
}

// Complete godoc
// @Summary Complete stage
// @Description Complete an in_progress stage and report the dependents it unblocked
// @Tags Stages
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Success 200 {object} domain.CompletionResultDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /stages/{id}/complete [post]
func (h *StageHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	result, err := h.stageService.Complete(r.Context(), id, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "complete stage")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Reopen godoc
// @Summary Reopen stage
// @Description Send a completed stage back to in_progress. The reason is kept in the reopen history.
// @Tags Stages
// @Accept json
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param body body domain.ReopenStageRequest true "Reason"
// @Success 200 {object} domain.StageDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /stages/{id}/reopen [post]
func (h *StageHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	var req domain.ReopenStageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	stage, err := h.stageService.Reopen(r.Context(), id, actorOf(r), req.Reason)
	if err != nil {
		respondError(w, h.logger, err, "reopen stage")
		return
	}
	respondJSON(w, http.StatusOK, stage)
}

// AddDependency godoc
// @Summary Add dependency
// @Description Make the stage depend on another stage of the same project
// @Tags Stages
// @Accept json
// @Param id path string true "Stage ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param body body domain.AddDependencyRequest true "Dependency"
// @Success 204 "No Content"
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "cycle detected"
// @Router /stages/{id}/dependencies [post]
func (h *StageHandler) AddDependency(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	var req domain.AddDependencyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.stageService.AddDependency(r.Context(), id, req.DependsOnID, actorOf(r)); err != nil {
		respondError(w, h.logger, err, "add dependency")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveDependency godoc
// @Summary Remove dependency
// @Tags Stages
// @Param id path string true "Stage ID" format(uuid)
// @Param depId path string true "Dependency stage ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Success 204 "No Content"
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/dependencies/{depId} [delete]
func (h *StageHandler) RemoveDependency(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	depID, ok := parseID(w, r, "depId", "dependency")
	if !ok {
		return
	}
	if err := h.stageService.RemoveDependency(r.Context(), id, depID, actorOf(r)); err != nil {
		respondError(w, h.logger, err, "remove dependency")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Blocked godoc
// @Summary Block state
// @Description Whether the stage can start, with the unfinished direct dependencies
// @Tags Stages
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Success 200 {object} domain.BlockStateDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/blocked [get]
func (h *StageHandler) Blocked(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	state, err := h.stageService.IsBlocked(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get block state")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// Dependents godoc
// @Summary Dependent stages
// @Description IDs of the stages that directly depend on this one
// @Tags Stages
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Success 200 {array} string
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/dependents [get]
func (h *StageHandler) Dependents(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	ids, err := h.stageService.Dependents(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "list dependents")
		return
	}
	respondJSON(w, http.StatusOK, ids)
}

// History godoc
// @Summary Stage history
// @Description Status transitions of the stage, oldest first
// @Tags Stages
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Success 200 {array} domain.StageTransitionDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/history [get]
func (h *StageHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	history, err := h.stageService.History(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get stage history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}
