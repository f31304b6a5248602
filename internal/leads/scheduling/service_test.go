package scheduling

import (
	"context"
	"testing"
	"time"

	"nurture_backend/internal/leads/domain"

	"github.com/google/uuid"
)

func TestComputeNextContact_UsesConfiguredInterval(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	intervals := map[domain.Status]int{domain.StatusInConversation: 5}

	got := ComputeNextContact(now, domain.StatusInConversation, intervals)
	if want := now.Add(5 * 24 * time.Hour); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestComputeNextContact_Pure(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	intervals := map[domain.Status]int{domain.StatusQualified: 4}

	first := ComputeNextContact(now, domain.StatusQualified, intervals)
	second := ComputeNextContact(now, domain.StatusQualified, intervals)
	if !first.Equal(second) {
		t.Fatal("same inputs must yield the same result")
	}

	// A later config change must not affect an already computed value.
	intervals[domain.StatusQualified] = 9
	if !first.Equal(now.Add(4 * 24 * time.Hour)) {
		t.Fatal("previously computed value changed after config edit")
	}
}

func TestComputeNextContact_DefaultsWhenUnset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := ComputeNextContact(now, domain.StatusInConversation, nil)
	if want := now.Add(2 * 24 * time.Hour); !got.Equal(want) {
		t.Fatalf("expected built-in default of 2 days, got %v", got)
	}

	got = ComputeNextContact(now, domain.Status("unknown"), nil)
	if want := now.Add(fallbackIntervalDays * 24 * time.Hour); !got.Equal(want) {
		t.Fatalf("expected fixed fallback, got %v", got)
	}
}

type fakeSchedulingStore struct {
	intervals map[domain.Status]int
	setLead   uuid.UUID
	setAt     *time.Time
}

func (f *fakeSchedulingStore) FollowUpIntervals(context.Context, uuid.UUID) (map[domain.Status]int, error) {
	return f.intervals, nil
}

func (f *fakeSchedulingStore) SetNextScheduledMessageAt(_ context.Context, id uuid.UUID, at *time.Time) error {
	f.setLead = id
	f.setAt = at
	return nil
}

func TestReschedule_PersistsComputedTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeSchedulingStore{intervals: map[domain.Status]int{domain.StatusInConversation: 3}}
	svc := NewWithClock(store, func() time.Time { return now })

	leadID := uuid.New()
	next, err := svc.Reschedule(context.Background(), leadID, uuid.New(), domain.StatusInConversation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := now.Add(3 * 24 * time.Hour); !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
	if store.setLead != leadID || store.setAt == nil || !store.setAt.Equal(next) {
		t.Fatal("computed time was not persisted for the lead")
	}
}
