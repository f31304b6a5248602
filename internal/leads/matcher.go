// Package leads provides the lead bounded context: the lifecycle state
// machine, phone matching, follow-up scheduling, and the operator surface.
package leads

import (
	"context"
	"errors"

	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/phone"
)

// MatcherStore is the lookup capability the matcher needs.
// This is a consumer-driven interface - only what matching needs.
type MatcherStore interface {
	GetByExactPhone(ctx context.Context, normalized string) (repository.Lead, error)
	GetByPhoneSuffix(ctx context.Context, suffix string) (repository.Lead, error)
	ListAll(ctx context.Context) ([]repository.Lead, error)
}

// Matcher resolves a raw inbound contact identifier to a known lead.
type Matcher struct {
	store MatcherStore
}

// NewMatcher creates a phone matcher over the given store.
func NewMatcher(store MatcherStore) *Matcher {
	return &Matcher{store: store}
}

// Match runs the three matching tiers in order, first hit wins:
//  1. exact match on the stored normalized number
//  2. indexed match on the last-10-digit suffix
//  3. full scan comparing suffixes
//
// The second return value is false when no tier matched. Suffix collisions
// across operators are not disambiguated; the oldest matching lead wins.
func (m *Matcher) Match(ctx context.Context, raw string) (repository.Lead, bool, error) {
	normalized := phone.NormalizeE164(raw)

	lead, err := m.store.GetByExactPhone(ctx, normalized)
	if err == nil {
		return lead, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, false, err
	}

	suffix := phone.Last10(normalized)
	if suffix != "" {
		lead, err = m.store.GetByPhoneSuffix(ctx, suffix)
		if err == nil {
			return lead, true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, false, err
		}
	}

	all, err := m.store.ListAll(ctx)
	if err != nil {
		return repository.Lead{}, false, err
	}
	for _, candidate := range all {
		if phone.SameSuffix(candidate.Phone, normalized) {
			return candidate, true, nil
		}
	}

	return repository.Lead{}, false, nil
}
