package leads

import (
	"context"
	"testing"

	"nurture_backend/internal/leads/repository"

	"github.com/google/uuid"
)

type fakeMatcherStore struct {
	byPhone  map[string]repository.Lead
	bySuffix map[string]repository.Lead
	all      []repository.Lead

	exactCalls  int
	suffixCalls int
	scanCalls   int
}

func (f *fakeMatcherStore) GetByExactPhone(_ context.Context, normalized string) (repository.Lead, error) {
	f.exactCalls++
	if l, ok := f.byPhone[normalized]; ok {
		return l, nil
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (f *fakeMatcherStore) GetByPhoneSuffix(_ context.Context, suffix string) (repository.Lead, error) {
	f.suffixCalls++
	if l, ok := f.bySuffix[suffix]; ok {
		return l, nil
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (f *fakeMatcherStore) ListAll(_ context.Context) ([]repository.Lead, error) {
	f.scanCalls++
	return f.all, nil
}

func TestMatch_ExactWinsFirst(t *testing.T) {
	want := repository.Lead{ID: uuid.New(), Phone: "+14155552671"}
	store := &fakeMatcherStore{
		byPhone:  map[string]repository.Lead{"+14155552671": want},
		bySuffix: map[string]repository.Lead{"4155552671": {ID: uuid.New()}},
	}

	got, ok, err := NewMatcher(store).Match(context.Background(), "(415) 555-2671")
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	if got.ID != want.ID {
		t.Fatal("exact tier must win over suffix tier")
	}
	if store.suffixCalls != 0 || store.scanCalls != 0 {
		t.Fatal("later tiers must not run after an exact hit")
	}
}

func TestMatch_SuffixToleratesCountryCode(t *testing.T) {
	want := repository.Lead{ID: uuid.New(), Phone: "4155552671"}
	store := &fakeMatcherStore{
		byPhone:  map[string]repository.Lead{},
		bySuffix: map[string]repository.Lead{"4155552671": want},
	}

	got, ok, err := NewMatcher(store).Match(context.Background(), "+1 415 555 2671")
	if err != nil || !ok {
		t.Fatalf("expected suffix match, ok=%v err=%v", ok, err)
	}
	if got.ID != want.ID {
		t.Fatal("expected the suffix-tier lead")
	}
}

func TestMatch_ScanFallback(t *testing.T) {
	want := repository.Lead{ID: uuid.New(), Phone: "001-415-555-2671"}
	store := &fakeMatcherStore{
		byPhone:  map[string]repository.Lead{},
		bySuffix: map[string]repository.Lead{},
		all:      []repository.Lead{{ID: uuid.New(), Phone: "+31612345678"}, want},
	}

	got, ok, err := NewMatcher(store).Match(context.Background(), "+14155552671")
	if err != nil || !ok {
		t.Fatalf("expected scan match, ok=%v err=%v", ok, err)
	}
	if got.ID != want.ID {
		t.Fatal("expected the scan-tier lead")
	}
}

func TestMatch_NoMatch(t *testing.T) {
	store := &fakeMatcherStore{byPhone: map[string]repository.Lead{}, bySuffix: map[string]repository.Lead{}}

	_, ok, err := NewMatcher(store).Match(context.Background(), "+14155550000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected no match")
	}
}
