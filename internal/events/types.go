package events

import "github.com/google/uuid"

// LeadCreated fires when a lead enters the system, whether from an explicit
// add or from an unmatched inbound message.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID
	OperatorID uuid.UUID
	Phone      string
	Source     string // "manual" or "inbound"
}

func (LeadCreated) EventName() string { return "lead.created" }

// MessageReceived fires after an inbound message has been persisted and the
// lead's status transition applied.
type MessageReceived struct {
	BaseEvent
	LeadID     uuid.UUID
	OperatorID uuid.UUID
	MessageID  uuid.UUID
	LeadName   string
	Body       string
	Qualifying bool
}

func (MessageReceived) EventName() string { return "message.received" }

// MessageSent fires after an outbound message has been persisted and its
// delivery attempted. Status carries the post-attempt delivery status.
type MessageSent struct {
	BaseEvent
	LeadID        uuid.UUID
	OperatorID    uuid.UUID
	MessageID     uuid.UUID
	Body          string
	Status        string
	IsAIGenerated bool
}

func (MessageSent) EventName() string { return "message.sent" }

// MessageStatusUpdated fires when a provider delivery-status callback moves an
// outbound message through its delivery lifecycle.
type MessageStatusUpdated struct {
	BaseEvent
	LeadID     uuid.UUID
	OperatorID uuid.UUID
	MessageID  uuid.UUID
	Status     string
}

func (MessageStatusUpdated) EventName() string { return "message.status_updated" }

// AppointmentScheduled fires when an appointment is booked for a lead. The
// leads module advances the lead to appointment_set on this signal.
type AppointmentScheduled struct {
	BaseEvent
	LeadID uuid.UUID
}

func (AppointmentScheduled) EventName() string { return "appointment.scheduled" }

// CallCompleted fires once a call reaches a terminal status, from either a
// status callback, a recording-completed callback, or stuck-call repair.
type CallCompleted struct {
	BaseEvent
	CallID          uuid.UUID
	LeadID          *uuid.UUID
	OperatorID      uuid.UUID // Nil when the call never resolved to a lead
	Status          string
	DurationSeconds int
}

func (CallCompleted) EventName() string { return "call.completed" }
