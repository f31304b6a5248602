// Package domain holds the call status lifecycle and the pure transition
// rules the reconciler applies to provider callbacks.
package domain

import "time"

// Status is a call's lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInitiated  Status = "initiated"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusBusy       Status = "busy"
	StatusFailed     Status = "failed"
	StatusNoAnswer   Status = "no-answer"
	StatusCanceled   Status = "canceled"
)

// Valid reports whether s is a known call status.
func Valid(s Status) bool {
	switch s {
	case StatusQueued, StatusInitiated, StatusRinging, StatusInProgress,
		StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further automatic transition occurs from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled:
		return true
	}
	return false
}

// Mode distinguishes AI-placed calls from operator-placed ones.
type Mode string

const (
	ModeAI     Mode = "ai"
	ModeManual Mode = "manual"
)

// Direction of a call relative to this system.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Snapshot is the mutable slice of a call row the transition rules operate
// on.
type Snapshot struct {
	Status          Status
	StartedAt       *time.Time
	EndedAt         *time.Time
	DurationSeconds *int
}

// ApplyStatus folds a provider status callback into the snapshot and reports
// whether anything changed. Rules:
//   - a terminal status never regresses, whatever order callbacks arrive in
//   - startedAt is set once, on the first in-progress
//   - endedAt and duration are set once, on the first terminal status,
//     preferring the provider-supplied duration
func ApplyStatus(s Snapshot, incoming Status, durationSeconds *int, now time.Time) (Snapshot, bool) {
	if s.Status.Terminal() {
		return s, false
	}
	if s.Status == incoming && incoming != StatusInProgress {
		return s, false
	}

	changed := s.Status != incoming
	s.Status = incoming

	if incoming == StatusInProgress && s.StartedAt == nil {
		at := now
		s.StartedAt = &at
		changed = true
	}
	if incoming.Terminal() {
		changed = fillCompletion(&s, durationSeconds, now) || changed
	}
	return s, changed
}

// ApplyRecordingCompleted treats a recording-completed event as a second,
// independent completion signal. For flows with no terminal status callback
// it closes the call; fields a genuine status callback already set are never
// overwritten, missing ones are filled.
func ApplyRecordingCompleted(s Snapshot, durationSeconds *int, now time.Time) (Snapshot, bool) {
	changed := false
	if !s.Status.Terminal() {
		s.Status = StatusCompleted
		changed = true
	}
	changed = fillCompletion(&s, durationSeconds, now) || changed
	return s, changed
}

func fillCompletion(s *Snapshot, durationSeconds *int, now time.Time) bool {
	changed := false
	if s.EndedAt == nil {
		at := now
		s.EndedAt = &at
		changed = true
	}
	if s.DurationSeconds == nil {
		switch {
		case durationSeconds != nil:
			s.DurationSeconds = durationSeconds
			changed = true
		case s.StartedAt != nil:
			d := int(s.EndedAt.Sub(*s.StartedAt) / time.Second)
			s.DurationSeconds = &d
			changed = true
		}
	}
	return changed
}
