// Package scheduling computes and persists follow-up contact times for leads.
// The offset lookup is a pure function over the lead's status and the
// operator's configured intervals; the service wraps it with persistence.
package scheduling

import (
	"context"
	"time"

	"nurture_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Default days-until-next-contact per status, used when the operator has no
// row configured for that status.
var defaultIntervalDays = map[domain.Status]int{
	domain.StatusNew:            1,
	domain.StatusInConversation: 2,
	domain.StatusQualified:      3,
	domain.StatusAppointmentSet: 7,
	domain.StatusConverted:      30,
	domain.StatusInactive:       14,
}

const fallbackIntervalDays = 7

// IntervalDays resolves the configured offset for a status, falling back to
// the built-in default for the status, then to a fixed fallback.
func IntervalDays(status domain.Status, intervals map[domain.Status]int) int {
	if days, ok := intervals[status]; ok && days > 0 {
		return days
	}
	if days, ok := defaultIntervalDays[status]; ok {
		return days
	}
	return fallbackIntervalDays
}

// ComputeNextContact returns now + the configured offset for the status.
// Pure: the same (status, intervals) pair always yields the same offset
// relative to now. Config changes never touch values already persisted.
func ComputeNextContact(now time.Time, status domain.Status, intervals map[domain.Status]int) time.Time {
	return now.Add(time.Duration(IntervalDays(status, intervals)) * 24 * time.Hour)
}

// Store is the persistence capability the scheduling service needs.
type Store interface {
	FollowUpIntervals(ctx context.Context, operatorID uuid.UUID) (map[domain.Status]int, error)
	SetNextScheduledMessageAt(ctx context.Context, id uuid.UUID, at *time.Time) error
}

// Service recomputes a lead's next contact time after pipeline events.
type Service struct {
	store Store
	now   func() time.Time
}

// New creates a scheduling service.
func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// NewWithClock creates a scheduling service with an injected clock for tests.
func NewWithClock(store Store, now func() time.Time) *Service {
	return &Service{store: store, now: now}
}

// Reschedule overwrites the lead's next scheduled contact based on its
// current status. Callers must invoke it after the status change has been
// applied, under the same per-lead lock, so the recompute observes the
// post-change status.
func (s *Service) Reschedule(ctx context.Context, leadID, operatorID uuid.UUID, status domain.Status) (time.Time, error) {
	intervals, err := s.store.FollowUpIntervals(ctx, operatorID)
	if err != nil {
		return time.Time{}, err
	}

	next := ComputeNextContact(s.now(), status, intervals)
	if err := s.store.SetNextScheduledMessageAt(ctx, leadID, &next); err != nil {
		return time.Time{}, err
	}
	return next, nil
}
