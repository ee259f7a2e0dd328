package hash

import "testing"

func TestHMACSHA256(t *testing.T) {
	h, err := NewHMACSHA256("flow-secret")
	if err != nil {
		t.Fatalf("NewHMACSHA256: %v", err)
	}

	sig, err := h.Hash("0192f0c4-7d1e-7b7a-9c1e-2a3b4c5d6e7f")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	t.Run("RoundTrip", func(t *testing.T) {
		if !h.Verify(string(sig), "0192f0c4-7d1e-7b7a-9c1e-2a3b4c5d6e7f") {
			t.Fatal("expected signature to verify")
		}
	})

	t.Run("TamperedValue", func(t *testing.T) {
		if h.Verify(string(sig), "0192f0c4-7d1e-7b7a-9c1e-2a3b4c5d6e70") {
			t.Fatal("expected tampered value to fail")
		}
	})

	t.Run("OtherSecret", func(t *testing.T) {
		other, _ := NewHMACSHA256("another")
		if other.Verify(string(sig), "0192f0c4-7d1e-7b7a-9c1e-2a3b4c5d6e7f") {
			t.Fatal("expected signature from another secret to fail")
		}
	})

	t.Run("EmptySecret", func(t *testing.T) {
		if _, err := NewHMACSHA256(""); err == nil {
			t.Fatal("expected ErrEmptySecret")
		}
	})
}
