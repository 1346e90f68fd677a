package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestTokenSealer_RoundTrip(t *testing.T) {
	t.Parallel()

	s, err := NewTokenSealer("sealing-secret")
	if err != nil {
		t.Fatalf("NewTokenSealer() error = %v", err)
	}

	tests := []string{"ya29.a0AfH6SMB", "1//0gLongRefreshToken", "", strings.Repeat("x", 4096)}
	for _, plaintext := range tests {
		sealed, err := s.Seal(plaintext)
		if err != nil {
			t.Fatalf("Seal() error = %v", err)
		}
		if !strings.HasPrefix(sealed, sealedPrefix) {
			t.Errorf("sealed value %q missing version prefix", sealed)
		}
		if plaintext != "" && strings.Contains(sealed, plaintext) {
			t.Error("sealed value leaks plaintext")
		}

		opened, err := s.Open(sealed)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if opened != plaintext {
			t.Errorf("Open() = %q, want %q", opened, plaintext)
		}
	}
}

func TestTokenSealer_NonceIsRandom(t *testing.T) {
	t.Parallel()

	s, _ := NewTokenSealer("sealing-secret")
	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Error("two seals of the same plaintext should differ")
	}
}

func TestTokenSealer_Open(t *testing.T) {
	t.Parallel()

	s, _ := NewTokenSealer("sealing-secret")
	other, _ := NewTokenSealer("other-secret")
	sealed, _ := s.Seal("token")
	foreign, _ := other.Seal("token")

	if got, err := s.Open("legacy-plaintext"); err != nil || got != "legacy-plaintext" {
		t.Errorf("Open(legacy) = %q, %v; want passthrough", got, err)
	}

	corrupt := []string{
		sealedPrefix + "!!!",
		sealedPrefix + "AAAA",
		sealed[:len(sealed)-3] + "abc",
		foreign,
	}
	for _, c := range corrupt {
		if _, err := s.Open(c); !errors.Is(err, ErrSealedTokenCorrupt) {
			t.Errorf("Open(%q) error = %v, want ErrSealedTokenCorrupt", c, err)
		}
	}
}

func TestNewTokenSealer_EmptySecret(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenSealer(""); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestGenerateState(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s, err := GenerateState()
		if err != nil {
			t.Fatalf("GenerateState() error = %v", err)
		}
		if len(s) != StateLen {
			t.Errorf("len = %d, want %d", len(s), StateLen)
		}
		if seen[s] {
			t.Fatal("duplicate state")
		}
		seen[s] = true
	}
}
