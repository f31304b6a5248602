package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	if got := NormalizeE164("(415) 555-2671"); got != "+14155552671" {
		t.Fatalf("expected +14155552671, got %q", got)
	}
	if got := NormalizeE164("+14155552671"); got != "+14155552671" {
		t.Fatalf("expected +14155552671, got %q", got)
	}
	// Unparseable input passes through trimmed
	if got := NormalizeE164("  not a number "); got != "not a number" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := NormalizeE164(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestLast10(t *testing.T) {
	if got := Last10("+1 (415) 555-2671"); got != "4155552671" {
		t.Fatalf("expected 4155552671, got %q", got)
	}
	if got := Last10("555-2671"); got != "5552671" {
		t.Fatalf("expected 5552671, got %q", got)
	}
	if got := Last10(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestSameSuffix(t *testing.T) {
	if !SameSuffix("+14155552671", "4155552671") {
		t.Fatal("expected country-code variants to match")
	}
	if SameSuffix("", "") {
		t.Fatal("empty keys must not match")
	}
}
