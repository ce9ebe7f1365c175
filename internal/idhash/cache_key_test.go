package idhash

import "testing"

func TestPnlCacheKey(t *testing.T) {
	key := PnlCacheKey("0xAbC", "2025-01-01", "2025-01-31")
	if len(key) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(key))
	}

	// Wallet case does not change the key
	if lower := PnlCacheKey("0xabc", "2025-01-01", "2025-01-31"); lower != key {
		t.Errorf("case-insensitive wallet expected: %s != %s", lower, key)
	}

	// Determinism
	for i := 0; i < 10; i++ {
		if got := PnlCacheKey("0xAbC", "2025-01-01", "2025-01-31"); got != key {
			t.Fatalf("Determinism failed: %s != %s", got, key)
		}
	}
}

func TestPnlCacheKey_DifferentInputs(t *testing.T) {
	base := PnlCacheKey("0xabc", "2025-01-01", "2025-01-31")

	if base == PnlCacheKey("0xdef", "2025-01-01", "2025-01-31") {
		t.Error("Different wallet should produce different key")
	}
	if base == PnlCacheKey("0xabc", "2025-01-02", "2025-01-31") {
		t.Error("Different start should produce different key")
	}
	if base == PnlCacheKey("0xabc", "2025-01-01", "2025-01-30") {
		t.Error("Different end should produce different key")
	}
}
