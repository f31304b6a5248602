// Package transport defines request and response DTOs for the leads module.
package transport

import (
	"time"

	"nurture_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// CreateLeadRequest is the request body for an explicit lead add.
type CreateLeadRequest struct {
	Name               string  `json:"name" validate:"required,min=1,max=200"`
	Phone              string  `json:"phone" validate:"required,min=4,max=32"`
	Email              *string `json:"email,omitempty" validate:"omitempty,email"`
	AIAssistantEnabled bool    `json:"aiAssistantEnabled"`
	Context            string  `json:"context" validate:"max=4000"`
}

// UpdateStatusRequest is the request body for an explicit status override.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SetAIAssistantRequest toggles the AI assistant for a lead.
type SetAIAssistantRequest struct {
	Enabled bool `json:"enabled"`
}

// UpdateContextRequest replaces the lead's background notes.
type UpdateContextRequest struct {
	Context string `json:"context" validate:"max=4000"`
}

// LeadResponse is the API representation of a lead.
type LeadResponse struct {
	ID                     uuid.UUID  `json:"id"`
	Name                   string     `json:"name"`
	Phone                  string     `json:"phone"`
	Email                  *string    `json:"email,omitempty"`
	Status                 string     `json:"status"`
	AIAssistantEnabled     bool       `json:"aiAssistantEnabled"`
	MessageCount           int        `json:"messageCount"`
	LastMessageAt          *time.Time `json:"lastMessageAt,omitempty"`
	NextScheduledMessageAt *time.Time `json:"nextScheduledMessageAt,omitempty"`
	Context                string     `json:"context,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
}

// ToLeadResponse maps a repository lead to its API shape.
func ToLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                     l.ID,
		Name:                   l.Name,
		Phone:                  l.Phone,
		Email:                  l.Email,
		Status:                 string(l.Status),
		AIAssistantEnabled:     l.AIAssistantEnabled,
		MessageCount:           l.MessageCount,
		LastMessageAt:          l.LastMessageAt,
		NextScheduledMessageAt: l.NextScheduledMessageAt,
		Context:                l.Context,
		CreatedAt:              l.CreatedAt,
	}
}
