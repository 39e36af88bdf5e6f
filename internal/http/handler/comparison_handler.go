package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/service"
)

// ComparisonHandler serves spreadsheet uploads and the resulting warehouse comparisons
type ComparisonHandler struct {
	reconciliationService *service.ReconciliationService
	maxUploadMB           int64
	logger                *zap.Logger
}

func NewComparisonHandler(reconciliationService *service.ReconciliationService, maxUploadMB int64, logger *zap.Logger) *ComparisonHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &ComparisonHandler{
		reconciliationService: reconciliationService,
		maxUploadMB:           maxUploadMB,
		logger:                logger,
	}
}

// Upload godoc
// @Summary Upload item list
// @Description Parse an xlsx or csv item list and match every row against the warehouse catalog
// @Tags Comparisons
// @Accept multipart/form-data
// @Produce json
// @Param X-Actor-ID header string true "Acting user"
// @Param file formData file true "Item list (.xlsx or .csv)"
// @Param stageId formData string false "Stage the list belongs to" format(uuid)
// @Success 201 {object} domain.ComparisonDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Router /comparisons [post]
func (h *ComparisonHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	in := service.UploadInput{
		FileName: header.Filename,
		Data:     data,
		Actor:    actorOf(r),
	}
	if sid := r.FormValue("stageId"); sid != "" {
		id, err := uuid.Parse(sid)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid stageId: must be a valid UUID")
			return
		}
		in.StageID = &id
	}

	comparison, err := h.reconciliationService.Upload(r.Context(), in)
	if err != nil {
		respondError(w, h.logger, err, "reconcile upload")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/comparisons/%s", comparison.ID))
	respondJSON(w, http.StatusCreated, comparison)
}

// GetByID godoc
// @Summary Get comparison
// @Tags Comparisons
// @Produce json
// @Param id path string true "Comparison ID" format(uuid)
// @Success 200 {object} domain.ComparisonDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /comparisons/{id} [get]
func (h *ComparisonHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "comparison")
	if !ok {
		return
	}
	comparison, err := h.reconciliationService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get comparison")
		return
	}
	respondJSON(w, http.StatusOK, comparison)
}

// ListByStage godoc
// @Summary List comparisons of a stage
// @Description Comparisons uploaded for the stage, newest first, without items
// @Tags Comparisons
// @Produce json
// @Param id path string true "Stage ID" format(uuid)
// @Success 200 {array} domain.ComparisonDTO
// @Failure 400 {object} domain.APIError
// @Router /stages/{id}/comparisons [get]
func (h *ComparisonHandler) ListByStage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "stage")
	if !ok {
		return
	}
	comparisons, err := h.reconciliationService.ListByStage(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "list comparisons")
		return
	}
	respondJSON(w, http.StatusOK, comparisons)
}

func (h *ComparisonHandler) itemIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	comparisonID, ok := parseID(w, r, "id", "comparison")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	itemID, ok := parseID(w, r, "itemId", "item")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return comparisonID, itemID, true
}

// ConfirmMatch godoc
// @Summary Confirm a medium-confidence match
// @Tags Comparisons
// @Produce json
// @Param id path string true "Comparison ID" format(uuid)
// @Param itemId path string true "Item ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Success 200 {object} domain.ComparisonItemDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /comparisons/{id}/items/{itemId}/confirm [post]
func (h *ComparisonHandler) ConfirmMatch(w http.ResponseWriter, r *http.Request) {
	comparisonID, itemID, ok := h.itemIDs(w, r)
	if !ok {
		return
	}
	item, err := h.reconciliationService.ConfirmMatch(r.Context(), comparisonID, itemID, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "confirm match")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// SelectAlternative godoc
// @Summary Select an alternative
// @Description Replace the matched warehouse item with another catalog item
// @Tags Comparisons
// @Accept json
// @Produce json
// @Param id path string true "Comparison ID" format(uuid)
// @Param itemId path string true "Item ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param body body domain.SelectAlternativeRequest true "Candidate"
// @Success 200 {object} domain.ComparisonItemDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Router /comparisons/{id}/items/{itemId}/alternative [post]
func (h *ComparisonHandler) SelectAlternative(w http.ResponseWriter, r *http.Request) {
	comparisonID, itemID, ok := h.itemIDs(w, r)
	if !ok {
		return
	}
	var req domain.SelectAlternativeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.reconciliationService.SelectAlternative(r.Context(), comparisonID, itemID, req.CandidateID, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "select alternative")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// SetQuantity godoc
// @Summary Override order quantity
// @Tags Comparisons
// @Accept json
// @Produce json
// @Param id path string true "Comparison ID" format(uuid)
// @Param itemId path string true "Item ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param body body domain.SetQuantityRequest true "Quantity"
// @Success 200 {object} domain.ComparisonItemDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /comparisons/{id}/items/{itemId}/quantity [put]
func (h *ComparisonHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	comparisonID, itemID, ok := h.itemIDs(w, r)
	if !ok {
		return
	}
	var req domain.SetQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.reconciliationService.SetQuantity(r.Context(), comparisonID, itemID, *req.Quantity, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "set order quantity")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// ToggleOrder godoc
// @Summary Include in order
// @Tags Comparisons
// @Accept json
// @Produce json
// @Param id path string true "Comparison ID" format(uuid)
// @Param itemId path string true "Item ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param body body domain.ToggleOrderRequest true "Include flag"
// @Success 200 {object} domain.ComparisonItemDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /comparisons/{id}/items/{itemId}/order [put]
func (h *ComparisonHandler) ToggleOrder(w http.ResponseWriter, r *http.Request) {
	comparisonID, itemID, ok := h.itemIDs(w, r)
	if !ok {
		return
	}
	var req domain.ToggleOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.reconciliationService.ToggleOrder(r.Context(), comparisonID, itemID, *req.Include, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "toggle order")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// SetProcurementStatus godoc
// @Summary Move procurement status
// @Description pending -> ordered -> in_transit -> received; any non-received status may be cancelled
// @Tags Comparisons
// @Accept json
// @Produce json
// @Param id path string true "Comparison ID" format(uuid)
// @Param itemId path string true "Item ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param body body domain.SetProcurementStatusRequest true "Status"
// @Success 200 {object} domain.ComparisonItemDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /comparisons/{id}/items/{itemId}/procurement-status [put]
func (h *ComparisonHandler) SetProcurementStatus(w http.ResponseWriter, r *http.Request) {
	comparisonID, itemID, ok := h.itemIDs(w, r)
	if !ok {
		return
	}
	var req domain.SetProcurementStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.reconciliationService.SetProcurementStatus(r.Context(), comparisonID, itemID, req.Status, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "set procurement status")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Order godoc
// @Summary Order document
// @Description Lines marked for ordering with quantities and totals
// @Tags Comparisons
// @Produce json
// @Param id path string true "Comparison ID" format(uuid)
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /comparisons/{id}/order [get]
func (h *ComparisonHandler) Order(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "comparison")
	if !ok {
		return
	}
	order, err := h.reconciliationService.Order(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "build order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// ExportOrder godoc
// @Summary Download order workbook
// @Tags Comparisons
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Comparison ID" format(uuid)
// @Success 200 {file} file
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /comparisons/{id}/order.xlsx [get]
func (h *ComparisonHandler) ExportOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "comparison")
	if !ok {
		return
	}
	exported, err := h.reconciliationService.ExportOrder(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "export order")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+exported.FileName+"\"")
	w.Header().Set("Content-Type", exported.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(exported.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exported.Data)
}

// SourceFile godoc
// @Summary Download uploaded item list
// @Description Stream the spreadsheet the comparison was imported from
// @Tags Comparisons
// @Produce octet-stream
// @Param id path string true "Comparison ID" format(uuid)
// @Success 200 {file} file
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /comparisons/{id}/source [get]
func (h *ComparisonHandler) SourceFile(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "comparison")
	if !ok {
		return
	}
	src, err := h.reconciliationService.SourceFile(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "download source file")
		return
	}
	defer src.Body.Close()

	contentType := mime.TypeByExtension(filepath.Ext(src.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+src.FileName+"\"")
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, src.Body); err != nil {
		h.logger.Warn("failed to stream source file",
			zap.String("comparisonID", id.String()),
			zap.Error(err))
	}
}
