// Package handler exposes the operator login endpoint.
package handler

import (
	"net/http"

	"nurture_backend/internal/auth/repository"
	"nurture_backend/internal/auth/service"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// Handler handles authentication HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates an auth handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// LoginRequest is the request body for operator login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// OperatorResponse is the operator profile returned to the client.
type OperatorResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

// LoginResponse carries the access token and the operator profile.
type LoginResponse struct {
	AccessToken string           `json:"accessToken"`
	Operator    OperatorResponse `json:"operator"`
}

// HandleLogin authenticates an operator.
// POST /api/v1/auth/login
func (h *Handler) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	token, operator, err := h.service.SignIn(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, LoginResponse{
		AccessToken: token,
		Operator:    toOperatorResponse(operator),
	})
}

// HandleMe returns the authenticated operator's profile.
// GET /api/v1/auth/me
func (h *Handler) HandleMe(c *gin.Context) {
	operator, err := h.service.Me(c.Request.Context(), httpkit.MustGetOperatorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toOperatorResponse(operator))
}

func toOperatorResponse(op repository.Operator) OperatorResponse {
	return OperatorResponse{ID: op.ID, Name: op.Name, Email: op.Email, Phone: op.Phone}
}
