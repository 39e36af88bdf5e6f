package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/autosave"
	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/service"
	"github.com/useneurox-company/ERP--sub000/internal/stagedata"
)

// StageDataHandler serves the type-specific payload of a stage
type StageDataHandler struct {
	stageDataService *service.StageDataService
	logger           *zap.Logger
}

func NewStageDataHandler(stageDataService *service.StageDataService, logger *zap.Logger) *StageDataHandler {
	return &StageDataHandler{
		stageDataService: stageDataService,
		logger:           logger,
	}
}

func (h *StageDataHandler) respondPayload(w http.ResponseWriter, id uuid.UUID, p stagedata.Payload) {
	respondJSON(w, http.StatusOK, domain.StageDataDTO{
		StageID:   id,
		StageType: p.StageType(),
		Data:      p,
		SaveState: *h.stageDataService.State(id),
	})
}

// Get godoc
// @Summary Get stage data
// @Description Type-specific data of a stage, including edits still waiting to be saved
// @Tags Stage data
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Success 200 {object} domain.StageDataDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/data [get]
func (h *StageDataHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	payload, err := h.stageDataService.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get stage data")
		return
	}
	h.respondPayload(w, id, payload)
}

// Put godoc
// @Summary Replace stage data
// @Description Validate and save the full payload immediately. Unknown fields are rejected.
// @Tags Stage data
// @Accept json
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param data body object true "Payload for the stage type"
// @Success 200 {object} domain.StageDataDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/data [put]
func (h *StageDataHandler) Put(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	payload, err := h.stageDataService.Put(r.Context(), id, body, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "save stage data")
		return
	}
	h.respondPayload(w, id, payload)
}

// Patch godoc
// @Summary Edit stage data
// @Description Buffer a partial edit. Top-level keys replace stored values; the edit is saved after the autosave delay.
// @Tags Stage data
// @Accept json
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param patch body object true "Top-level fields to replace"
// @Success 202 {object} domain.SaveStateDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/data [patch]
func (h *StageDataHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	patch, err := autosave.ParsePatch(body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := h.stageDataService.Patch(r.Context(), id, patch, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "buffer stage data")
		return
	}
	respondJSON(w, http.StatusAccepted, state)
}

// Flush godoc
// @Summary Save buffered edits
// @Tags Stage data
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Success 200 {object} domain.SaveStateDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/data/flush [post]
func (h *StageDataHandler) Flush(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	state, err := h.stageDataService.Flush(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "flush stage data")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// State godoc
// @Summary Autosave state
// @Description idle, pending, saving, saved or failed
// @Tags Stage data
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Success 200 {object} domain.SaveStateDTO
// @Failure 400 {object} domain.APIError
// @Router /stages/{id}/data/state [get]
func (h *StageDataHandler) State(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.stageDataService.State(id))
}

// DecideDocument godoc
// @Summary Approve or reject a document
// @Tags Approval
// @Accept json
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Param docId path string true "Document ID"
// @Param X-Actor-ID header string true "Acting user"
// @Param body body domain.DocumentDecisionRequest true "Decision"
// @Success 200 {object} stagedata.ApprovalData
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /stages/{id}/approval/documents/{docId}/decision [post]
func (h *StageDataHandler) DecideDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	var req domain.DocumentDecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	data, err := h.stageDataService.DecideDocument(r.Context(), id, chi.URLParam(r, "docId"), &req, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "decide document")
		return
	}
	respondJSON(w, http.StatusOK, data)
}

// RequestRevision godoc
// @Summary Request a revision
// @Tags Approval
// @Accept json
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param body body domain.RevisionRequestRequest true "Reason"
// @Success 201 {object} stagedata.ApprovalData
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/approval/revisions [post]
func (h *StageDataHandler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	var req domain.RevisionRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	data, err := h.stageDataService.RequestRevision(r.Context(), id, req.Reason, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "request revision")
		return
	}
	respondJSON(w, http.StatusCreated, data)
}

// ResolveRevisions godoc
// @Summary Resolve open revisions
// @Tags Approval
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Success 200 {object} stagedata.ApprovalData
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/approval/revisions/resolve [post]
func (h *StageDataHandler) ResolveRevisions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	data, err := h.stageDataService.ResolveRevisions(r.Context(), id, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "resolve revisions")
		return
	}
	respondJSON(w, http.StatusOK, data)
}

// AddClientComment godoc
// @Summary Add a client comment
// @Tags Approval
// @Accept json
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param body body domain.ClientCommentRequest true "Comment"
// @Success 201 {object} stagedata.ApprovalData
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{id}/approval/comments [post]
func (h *StageDataHandler) AddClientComment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	var req domain.ClientCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	data, err := h.stageDataService.AddClientComment(r.Context(), id, req.Text, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "add client comment")
		return
	}
	respondJSON(w, http.StatusCreated, data)
}

// CompleteCutting godoc
// @Summary Complete a cutting task
// @Tags Production
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Param taskId path string true "Cutting task ID"
// @Param X-Actor-ID header string true "Acting user"
// @Success 200 {object} stagedata.ProductionData
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /stages/{id}/production/cutting/{taskId}/complete [post]
func (h *StageDataHandler) CompleteCutting(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	data, err := h.stageDataService.CompleteCutting(r.Context(), id, chi.URLParam(r, "taskId"), actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "complete cutting task")
		return
	}
	respondJSON(w, http.StatusOK, data)
}
