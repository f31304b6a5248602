// Package handler exposes conversation operations over HTTP.
package handler

import (
	"net/http"

	"nurture_backend/internal/messaging/service"
	"nurture_backend/internal/messaging/transport"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	errInvalidLeadID  = "invalid lead ID"
)

// Handler handles message HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates a messaging handler.
func New(service *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// HandleListConversation returns a lead's messages, oldest first.
// GET /api/v1/leads/:leadId/messages
func (h *Handler) HandleListConversation(c *gin.Context) {
	leadID, ok := h.parseLeadID(c)
	if !ok {
		return
	}

	messages, err := h.service.ListConversation(c.Request.Context(), httpkit.MustGetOperatorID(c), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]transport.MessageResponse, len(messages))
	for i, m := range messages {
		result[i] = transport.ToMessageResponse(m)
	}
	httpkit.OK(c, result)
}

// HandleSend delivers an operator-written message to a lead.
// POST /api/v1/leads/:leadId/messages
func (h *Handler) HandleSend(c *gin.Context) {
	leadID, ok := h.parseLeadID(c)
	if !ok {
		return
	}

	var req transport.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	msg, err := h.service.SendManual(c.Request.Context(), httpkit.MustGetOperatorID(c), leadID, req.Body)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, transport.ToMessageResponse(msg))
}

func (h *Handler) parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidLeadID, nil)
		return uuid.UUID{}, false
	}
	return leadID, true
}
