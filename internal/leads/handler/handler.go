// Package handler exposes lead operations over HTTP.
package handler

import (
	"net/http"

	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/service"
	"nurture_backend/internal/leads/transport"
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

// Handler handles lead HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates a lead handler.
func New(service *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// HandleCreate adds a lead explicitly.
// POST /api/v1/leads
func (h *Handler) HandleCreate(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	lead, err := h.service.Create(c.Request.Context(), service.CreateParams{
		OperatorID:         httpkit.MustGetOperatorID(c),
		Name:               req.Name,
		Phone:              req.Phone,
		Email:              req.Email,
		AIAssistantEnabled: req.AIAssistantEnabled,
		Context:            req.Context,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, transport.ToLeadResponse(lead))
}

// HandleList lists the operator's leads.
// GET /api/v1/leads
func (h *Handler) HandleList(c *gin.Context) {
	leads, err := h.service.List(c.Request.Context(), httpkit.MustGetOperatorID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]transport.LeadResponse, len(leads))
	for i, l := range leads {
		result[i] = transport.ToLeadResponse(l)
	}
	httpkit.OK(c, result)
}

// HandleGet returns a single lead.
// GET /api/v1/leads/:leadId
func (h *Handler) HandleGet(c *gin.Context) {
	leadID, ok := h.parseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.service.Get(c.Request.Context(), httpkit.MustGetOperatorID(c), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// HandleUpdateStatus applies an explicit status override.
// PUT /api/v1/leads/:leadId/status
func (h *Handler) HandleUpdateStatus(c *gin.Context) {
	leadID, ok := h.parseLeadID(c)
	if !ok {
		return
	}

	var req transport.UpdateStatusRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	lead, err := h.service.UpdateStatus(c.Request.Context(), httpkit.MustGetOperatorID(c), leadID, domain.Status(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// HandleSetAIAssistant toggles the AI assistant for a lead.
// PUT /api/v1/leads/:leadId/ai-assistant
func (h *Handler) HandleSetAIAssistant(c *gin.Context) {
	leadID, ok := h.parseLeadID(c)
	if !ok {
		return
	}

	var req transport.SetAIAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}

	lead, err := h.service.SetAIAssistant(c.Request.Context(), httpkit.MustGetOperatorID(c), leadID, req.Enabled)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// HandleUpdateContext replaces the lead's background notes.
// PUT /api/v1/leads/:leadId/context
func (h *Handler) HandleUpdateContext(c *gin.Context) {
	leadID, ok := h.parseLeadID(c)
	if !ok {
		return
	}

	var req transport.UpdateContextRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	err := h.service.UpdateContext(c.Request.Context(), httpkit.MustGetOperatorID(c), leadID, req.Context)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidLeadID, nil)
		return uuid.UUID{}, false
	}
	return leadID, true
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}
