package id

import (
	"encoding/hex"
	"regexp"
	"testing"

	"github.com/google/uuid"
)

var (
	reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)
	reHex64 = regexp.MustCompile(`^[a-f0-9]{64}$`)
)

func TestNewID32_FormatAndDecode(t *testing.T) {
	got := NewID32()

	if !reHex32.MatchString(got) {
		t.Fatalf("not 32-char lowercase hex: %q", got)
	}
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("hex.DecodeString error: %v", err)
	}
	if len(b) != 16 {
		t.Fatalf("decoded bytes = %d, want 16", len(b))
	}
}

func TestNewClientToken_Format(t *testing.T) {
	got := NewClientToken()
	if !reHex64.MatchString(got) {
		t.Fatalf("not 64-char lowercase hex: %q", got)
	}
}

func TestNewClientToken_Uniqueness(t *testing.T) {
	const n = 200
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		tok := NewClientToken()
		if _, ok := seen[tok]; ok {
			t.Fatalf("duplicate token after %d iterations: %q", i, tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestNewApplicationID_IsUUIDv4(t *testing.T) {
	got := NewApplicationID()
	u, err := uuid.Parse(got)
	if err != nil {
		t.Fatalf("uuid.Parse(%q): %v", got, err)
	}
	if u.Version() != 4 {
		t.Fatalf("version = %d, want 4", u.Version())
	}
}
