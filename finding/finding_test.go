package finding

import (
	"encoding/json"
	"testing"
)

func TestMakeSignature(t *testing.T) {
	t.Parallel()

	got := MakeSignature("archive_anomaly", "size", "/pkg.zip", "data/huge.bin")
	want := "archive_anomaly#size#/pkg.zip#data/huge.bin"
	if got != want {
		t.Fatalf("unexpected signature: got %q want %q", got, want)
	}
}

func TestEqualComparesSignaturesOnly(t *testing.T) {
	t.Parallel()

	a := New("/a", "first message", "kind#sub#x", 10, nil)
	b := New("/b", "different message", "kind#sub#x", 99, nil)
	c := New("/a", "first message", "kind#sub#y", 10, nil)

	if !a.Equal(b) {
		t.Fatalf("findings with equal signatures must be equal")
	}
	if a.Equal(c) {
		t.Fatalf("findings with different signatures must not be equal")
	}
	if a.Equal(nil) {
		t.Fatalf("finding must not equal nil")
	}
}

func TestExtraPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	extra := NewExtra().
		Set("reason", "file_size_exceeded").
		Set("size", 10).
		Set("limit", 5).
		Set("archive_path", "data/huge.bin")

	raw, err := json.Marshal(extra)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := `{"reason":"file_size_exceeded","size":10,"limit":5,"archive_path":"data/huge.bin"}`
	if string(raw) != want {
		t.Fatalf("unexpected JSON: got %s want %s", raw, want)
	}
}

func TestExtraSetOverwritesWithoutReordering(t *testing.T) {
	t.Parallel()

	extra := NewExtra().Set("a", 1).Set("b", 2).Set("a", 3)

	if extra.Len() != 2 {
		t.Fatalf("unexpected length: %d", extra.Len())
	}

	raw, err := json.Marshal(extra)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `{"a":3,"b":2}` {
		t.Fatalf("unexpected JSON: %s", raw)
	}

	v, ok := extra.Get("a")
	if !ok || v != 3 {
		t.Fatalf("unexpected value for a: %v (%v)", v, ok)
	}
}

func TestFindingSerializesWithExtra(t *testing.T) {
	t.Parallel()

	f := New("/pkg.zip", "weak key", "crypto#gen_key#/pkg.zip#3", 100,
		NewExtra().Set("key_type", "rsa").Set("key_size", 1024))

	raw, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if decoded["signature"] != "crypto#gen_key#/pkg.zip#3" {
		t.Fatalf("unexpected signature field: %v", decoded["signature"])
	}
}
