package webhook

import (
	"net/http"
	"time"

	"nurture_backend/internal/calls/domain"
	callsvc "nurture_backend/internal/calls/service"
	msgsvc "nurture_backend/internal/messaging/service"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// Handler handles provider callback HTTP requests. Callbacks are acked with
// 2xx even when processing fails internally; only payloads that can never be
// processed get a 4xx.
type Handler struct {
	messages *msgsvc.Service
	calls    *callsvc.Service
	val      *validator.Validator
	log      *logger.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(messages *msgsvc.Service, calls *callsvc.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{messages: messages, calls: calls, val: val, log: log}
}

// InboundMessageRequest is the provider payload for a received message.
type InboundMessageRequest struct {
	MessageID  string `json:"messageId" validate:"required"`
	From       string `json:"from" validate:"required"`
	To         string `json:"to" validate:"required"`
	Body       string `json:"body"`
	ReceivedAt string `json:"receivedAt"`
}

// HandleInboundMessage processes an inbound message callback.
// POST /webhooks/messages
func (h *Handler) HandleInboundMessage(c *gin.Context) {
	var req InboundMessageRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	receivedAt := time.Now().UTC()
	if req.ReceivedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ReceivedAt)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid receivedAt timestamp", nil)
			return
		}
		receivedAt = parsed
	}

	err := h.messages.ProcessInbound(c.Request.Context(), msgsvc.InboundMessage{
		From:       req.From,
		To:         req.To,
		Body:       req.Body,
		ExternalID: req.MessageID,
		ReceivedAt: receivedAt,
	})
	h.ack(c, "message.inbound", req.MessageID, err)
}

// MessageStatusRequest is the provider payload for a delivery status change.
type MessageStatusRequest struct {
	MessageID string `json:"messageId" validate:"required"`
	Status    string `json:"status" validate:"required"`
}

// HandleMessageStatus processes a delivery status callback.
// POST /webhooks/messages/status
func (h *Handler) HandleMessageStatus(c *gin.Context) {
	var req MessageStatusRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	err := h.messages.ProcessDeliveryStatus(c.Request.Context(), req.MessageID, req.Status)
	h.ack(c, "message.status", req.MessageID, err)
}

// CallStatusRequest is the provider payload for a call lifecycle change.
type CallStatusRequest struct {
	CallID          string `json:"callId" validate:"required"`
	Status          string `json:"status" validate:"required"`
	From            string `json:"from"`
	To              string `json:"to"`
	Direction       string `json:"direction"`
	DurationSeconds *int   `json:"durationSeconds"`
}

// HandleCallStatus processes a call status callback.
// POST /webhooks/calls/status
func (h *Handler) HandleCallStatus(c *gin.Context) {
	var req CallStatusRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	err := h.calls.ProcessStatusCallback(c.Request.Context(), callsvc.StatusCallback{
		ExternalCallID:  req.CallID,
		Status:          domain.Status(req.Status),
		From:            req.From,
		To:              req.To,
		Direction:       domain.Direction(req.Direction),
		DurationSeconds: req.DurationSeconds,
	})
	h.ack(c, "call.status", req.CallID, err)
}

// CallRecordingRequest is the provider payload for a completed recording.
// The analysis fields are present when post-call analysis ran on the audio.
type CallRecordingRequest struct {
	CallID          string   `json:"callId" validate:"required"`
	RecordingURL    string   `json:"recordingUrl" validate:"required,url"`
	From            string   `json:"from"`
	To              string   `json:"to"`
	DurationSeconds *int     `json:"durationSeconds"`
	Transcription   *string  `json:"transcription"`
	Summary         *string  `json:"summary"`
	InterestLevel   *string  `json:"interestLevel" validate:"omitempty,oneof=low medium high"`
	ActionItems     []string `json:"actionItems"`
}

// HandleCallRecording processes a recording-completed callback.
// POST /webhooks/calls/recording
func (h *Handler) HandleCallRecording(c *gin.Context) {
	var req CallRecordingRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	err := h.calls.ProcessRecordingCallback(c.Request.Context(), callsvc.RecordingCallback{
		ExternalCallID:  req.CallID,
		RecordingURL:    req.RecordingURL,
		From:            req.From,
		To:              req.To,
		DurationSeconds: req.DurationSeconds,
		Transcription:   req.Transcription,
		Summary:         req.Summary,
		InterestLevel:   req.InterestLevel,
		ActionItems:     req.ActionItems,
	})
	h.ack(c, "call.recording", req.CallID, err)
}

// ack maps a pipeline result onto the provider's expectations: payloads we
// can never process get a 4xx, everything else is acknowledged.
func (h *Handler) ack(c *gin.Context, kind, externalID string, err error) {
	if apperr.Is(err, apperr.KindValidation) {
		h.log.WebhookEvent(kind, externalID, err)
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	h.log.WebhookEvent(kind, externalID, err)
	c.JSON(http.StatusOK, gin.H{"status": "received"})
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
