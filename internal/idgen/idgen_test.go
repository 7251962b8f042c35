package idgen

import (
	"strings"
	"testing"
)

func TestWithPrefix(t *testing.T) {
	id := WithPrefix(PrefixWithdrawal)
	if !strings.HasPrefix(id, "wd_") {
		t.Errorf("expected wd_ prefix, got %s", id)
	}
	if len(id) != len("wd_")+24 {
		t.Errorf("unexpected length %d for %s", len(id), id)
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate ID: %s", id)
		}
		seen[id] = true
	}
}

func TestHexLength(t *testing.T) {
	if got := len(Hex(16)); got != 32 {
		t.Errorf("expected 32 hex chars, got %d", got)
	}
}
