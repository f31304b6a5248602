// Package handler exposes notification operations over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"nurture_backend/internal/notification/inapp"
	"nurture_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles notification HTTP requests.
type Handler struct {
	inapp *inapp.Service
}

// New creates a notification handler.
func New(inappSvc *inapp.Service) *Handler {
	return &Handler{inapp: inappSvc}
}

type listResponse struct {
	Items       []inapp.Notification `json:"items"`
	Total       int                  `json:"total"`
	UnreadCount int                  `json:"unreadCount"`
}

// HandleList lists the operator's notifications, newest first.
// GET /api/v1/notifications?limit=&offset=
func (h *Handler) HandleList(c *gin.Context) {
	operatorID := httpkit.MustGetOperatorID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, total, err := h.inapp.List(c.Request.Context(), operatorID, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}
	unread, err := h.inapp.CountUnread(c.Request.Context(), operatorID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, listResponse{Items: items, Total: total, UnreadCount: unread})
}

// HandleMarkRead marks a single notification read.
// PUT /api/v1/notifications/:notificationId/read
func (h *Handler) HandleMarkRead(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification ID", nil)
		return
	}

	if err := h.inapp.MarkRead(c.Request.Context(), httpkit.MustGetOperatorID(c), notificationID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleMarkAllRead marks every unread notification read.
// PUT /api/v1/notifications/read-all
func (h *Handler) HandleMarkAllRead(c *gin.Context) {
	if err := h.inapp.MarkAllRead(c.Request.Context(), httpkit.MustGetOperatorID(c)); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
