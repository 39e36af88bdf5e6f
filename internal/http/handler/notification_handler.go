package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/service"
)

// NotificationHandler handles HTTP requests for notifications. The recipient
// is the X-Actor-ID of the request.
type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// List godoc
// @Summary List notifications
// @Description Get paginated list of notifications for the acting user
// @Tags Notifications
// @Produce json
// @Param X-Actor-ID header string true "Acting user"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param unreadOnly query bool false "Filter to show only unread notifications" default(false)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.NotificationDTO}
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"

	result, err := h.notificationService.ListForUser(r.Context(), actorOf(r), page, pageSize, unreadOnly)
	if err != nil {
		respondError(w, h.logger, err, "list notifications")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetUnreadCount godoc
// @Summary Get unread notification count
// @Tags Notifications
// @Produce json
// @Param X-Actor-ID header string true "Acting user"
// @Success 200 {object} domain.UnreadCountDTO
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /notifications/count [get]
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationService.UnreadCount(r.Context(), actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "get unread count")
		return
	}
	respondJSON(w, http.StatusOK, count)
}

// MarkAsRead godoc
// @Summary Mark notification as read
// @Tags Notifications
// @Param id path string true "Notification ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Success 204 "No Content"
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "notification")
	if !ok {
		return
	}
	if err := h.notificationService.MarkAsRead(r.Context(), actorOf(r), id); err != nil {
		respondError(w, h.logger, err, "mark notification as read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllAsRead godoc
// @Summary Mark all notifications as read
// @Tags Notifications
// @Param X-Actor-ID header string true "Acting user"
// @Success 204 "No Content"
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.MarkAllAsRead(r.Context(), actorOf(r)); err != nil {
		respondError(w, h.logger, err, "mark all notifications as read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
