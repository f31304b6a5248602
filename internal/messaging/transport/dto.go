// Package transport defines request and response DTOs for the messaging module.
package transport

import (
	"time"

	"nurture_backend/internal/messaging/repository"

	"github.com/google/uuid"
)

// SendMessageRequest is the request body for a manual outbound message.
type SendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=1600"`
}

// MessageResponse is the API representation of a message.
type MessageResponse struct {
	ID                   uuid.UUID `json:"id"`
	LeadID               uuid.UUID `json:"leadId"`
	Sender               string    `json:"sender"`
	Direction            string    `json:"direction"`
	Body                 string    `json:"body"`
	DeliveryStatus       string    `json:"deliveryStatus"`
	IsAIGenerated        bool      `json:"isAiGenerated"`
	AppointmentIntent    bool      `json:"appointmentIntent,omitempty"`
	PropertySearchIntent bool      `json:"propertySearchIntent,omitempty"`
	QualifyingSignal     bool      `json:"qualifyingSignal,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

// ToMessageResponse maps a repository message to its API shape.
func ToMessageResponse(m repository.Message) MessageResponse {
	return MessageResponse{
		ID:                   m.ID,
		LeadID:               m.LeadID,
		Sender:               string(m.Sender),
		Direction:            string(m.Direction),
		Body:                 m.Body,
		DeliveryStatus:       m.DeliveryStatus,
		IsAIGenerated:        m.IsAIGenerated,
		AppointmentIntent:    m.Metadata.AppointmentIntent,
		PropertySearchIntent: m.Metadata.PropertySearchIntent,
		QualifyingSignal:     m.Metadata.QualifyingSignal,
		CreatedAt:            m.CreatedAt,
	}
}
