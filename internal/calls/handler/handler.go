// Package handler exposes call operations over HTTP.
package handler

import (
	"net/http"

	"nurture_backend/internal/calls/service"
	"nurture_backend/internal/calls/transport"
	"nurture_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidLeadID = "invalid lead ID"
	errInvalidCallID = "invalid call ID"
)

// Handler handles call HTTP requests.
type Handler struct {
	service *service.Service
}

// New creates a calls handler.
func New(service *service.Service) *Handler {
	return &Handler{service: service}
}

// HandlePlaceCall places an outbound call to a lead.
// POST /api/v1/leads/:leadId/calls
func (h *Handler) HandlePlaceCall(c *gin.Context) {
	leadID, ok := h.parseLeadID(c)
	if !ok {
		return
	}

	call, err := h.service.PlaceCall(c.Request.Context(), httpkit.MustGetOperatorID(c), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, transport.ToCallResponse(call))
}

// HandleList returns a lead's calls, newest first.
// GET /api/v1/leads/:leadId/calls
func (h *Handler) HandleList(c *gin.Context) {
	leadID, ok := h.parseLeadID(c)
	if !ok {
		return
	}

	calls, err := h.service.ListByLead(c.Request.Context(), httpkit.MustGetOperatorID(c), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]transport.CallResponse, len(calls))
	for i, call := range calls {
		result[i] = transport.ToCallResponse(call)
	}
	httpkit.OK(c, result)
}

// HandleListRecordings returns a call's recordings and their analysis.
// GET /api/v1/leads/:leadId/calls/:callId/recordings
func (h *Handler) HandleListRecordings(c *gin.Context) {
	leadID, ok := h.parseLeadID(c)
	if !ok {
		return
	}
	callID, err := uuid.Parse(c.Param("callId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidCallID, nil)
		return
	}

	recordings, err := h.service.ListRecordings(c.Request.Context(), httpkit.MustGetOperatorID(c), leadID, callID)
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]transport.RecordingResponse, len(recordings))
	for i, rec := range recordings {
		result[i] = transport.ToRecordingResponse(rec)
	}
	httpkit.OK(c, result)
}

// HandleRepairStuck force-fails the lead's stuck calls on demand.
// POST /api/v1/leads/:leadId/calls/repair
func (h *Handler) HandleRepairStuck(c *gin.Context) {
	leadID, ok := h.parseLeadID(c)
	if !ok {
		return
	}

	// Ownership check rides on the list path.
	if _, err := h.service.ListByLead(c.Request.Context(), httpkit.MustGetOperatorID(c), leadID); httpkit.HandleError(c, err) {
		return
	}

	repaired, err := h.service.RepairStuck(c.Request.Context(), &leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.RepairResponse{Repaired: repaired})
}

func (h *Handler) parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidLeadID, nil)
		return uuid.UUID{}, false
	}
	return leadID, true
}
