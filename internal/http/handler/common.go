package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/http/middleware"
)

// maxJSONBody caps request bodies that are not file uploads
const maxJSONBody = 1 << 20

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	errs := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			errs[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}
	var dve *domain.ValidationError
	if errors.As(err, &dve) {
		for field, msg := range dve.Fields {
			errs[field] = msg
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: errs,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	if strings.HasSuffix(field, "ID") {
		field = strings.TrimSuffix(field, "ID") + "Id"
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return domain.ErrorTypeBadRequest
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	case http.StatusServiceUnavailable:
		return domain.ErrorTypeServiceUnavailable
	default:
		return domain.ErrorTypeInternal
	}
}

// respondError maps a service error onto the API error taxonomy. Anything
// unrecognised is logged and reported as a 500 without internal detail.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error, op string) {
	var blocked *domain.BlockedError
	switch {
	case errors.Is(err, domain.ErrValidation):
		respondValidationError(w, err)
	case errors.As(err, &blocked):
		respondJSON(w, http.StatusConflict, domain.APIError{
			Type:     domain.ErrorTypeBlocked,
			Title:    "Stage Blocked",
			Status:   http.StatusConflict,
			Detail:   err.Error(),
			Blockers: blocked.Blockers,
		})
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		respondJSON(w, http.StatusConflict, domain.APIError{
			Type:   domain.ErrorTypeInvalidTransition,
			Title:  "Invalid Transition",
			Status: http.StatusConflict,
			Detail: err.Error(),
		})
	case errors.Is(err, domain.ErrCycleDetected):
		respondJSON(w, http.StatusConflict, domain.APIError{
			Type:   domain.ErrorTypeCycleDetected,
			Title:  "Dependency Cycle",
			Status: http.StatusConflict,
			Detail: err.Error(),
		})
	case errors.Is(err, domain.ErrExternalServiceUnavailable), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("external service unavailable", zap.String("op", op), zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "A dependent service is unavailable, try again later")
	default:
		logger.Error("failed to "+op, zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}

// decodeJSON strictly decodes a request body: unknown fields are an error
func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := validate.Struct(target); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// readBody returns the raw request body
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		respondWithError(w, http.StatusBadRequest, "Request body is required")
		return nil, false
	}
	return body, true
}

// parseID reads a UUID path parameter
func parseID(w http.ResponseWriter, r *http.Request, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID format", what))
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination reads page and pageSize, defaulting to 1 and 20 (max 200)
func parsePagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

func actorOf(r *http.Request) string {
	return middleware.ActorFromContext(r.Context())
}
