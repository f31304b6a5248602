// Package transport defines request and response DTOs for the calls module.
package transport

import (
	"time"

	"nurture_backend/internal/calls/repository"

	"github.com/google/uuid"
)

// CallResponse is the API representation of a call.
type CallResponse struct {
	ID              uuid.UUID  `json:"id"`
	LeadID          *uuid.UUID `json:"leadId,omitempty"`
	Direction       string     `json:"direction"`
	Status          string     `json:"status"`
	ExternalCallID  *string    `json:"externalCallId,omitempty"`
	CallMode        string     `json:"callMode"`
	FromNumber      string     `json:"fromNumber"`
	ToNumber        string     `json:"toNumber"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// RepairResponse reports how many stuck calls were repaired.
type RepairResponse struct {
	Repaired int `json:"repaired"`
}

// RecordingResponse is the API representation of a call recording and its
// post-call analysis.
type RecordingResponse struct {
	ID              uuid.UUID `json:"id"`
	CallID          uuid.UUID `json:"callId"`
	RecordingURL    string    `json:"recordingUrl"`
	ArchivedURL     *string   `json:"archivedUrl,omitempty"`
	Transcription   *string   `json:"transcription,omitempty"`
	DurationSeconds *int      `json:"durationSeconds,omitempty"`
	Summary         *string   `json:"summary,omitempty"`
	InterestLevel   *string   `json:"interestLevel,omitempty"`
	ActionItems     []string  `json:"actionItems"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ToRecordingResponse maps a repository recording to its API shape.
func ToRecordingResponse(r repository.Recording) RecordingResponse {
	items := r.ActionItems
	if items == nil {
		items = []string{}
	}
	return RecordingResponse{
		ID:              r.ID,
		CallID:          r.CallID,
		RecordingURL:    r.RecordingURL,
		ArchivedURL:     r.ArchivedURL,
		Transcription:   r.Transcription,
		DurationSeconds: r.DurationSeconds,
		Summary:         r.Summary,
		InterestLevel:   r.InterestLevel,
		ActionItems:     items,
		CreatedAt:       r.CreatedAt,
	}
}

// ToCallResponse maps a repository call to its API shape.
func ToCallResponse(c repository.Call) CallResponse {
	return CallResponse{
		ID:              c.ID,
		LeadID:          c.LeadID,
		Direction:       string(c.Direction),
		Status:          string(c.Status),
		ExternalCallID:  c.ExternalCallID,
		CallMode:        string(c.CallMode),
		FromNumber:      c.FromNumber,
		ToNumber:        c.ToNumber,
		StartedAt:       c.StartedAt,
		EndedAt:         c.EndedAt,
		DurationSeconds: c.DurationSeconds,
		CreatedAt:       c.CreatedAt,
	}
}
