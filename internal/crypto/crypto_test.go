package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
)

func newTestCipher(t *testing.T) *FieldCipher {
	t.Helper()
	key := make([]byte, 32)
	rand.Read(key)
	c, err := NewFieldCipher(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("NewFieldCipher: %v", err)
	}
	return c
}

func TestSealOpen(t *testing.T) {
	c := newTestCipher(t)
	sealed, err := c.Seal("max@example.com")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !IsSealed(sealed) || strings.Contains(sealed, "max@") {
		t.Errorf("unexpected sealed value %q", sealed)
	}
	again, _ := c.Seal(sealed)
	if again != sealed {
		t.Error("sealing twice must be a no-op")
	}
	plain, err := c.Open(sealed)
	if err != nil || plain != "max@example.com" {
		t.Errorf("Open = %q, %v", plain, err)
	}
}

func TestOpenPassesPlaintextThrough(t *testing.T) {
	c := newTestCipher(t)
	if v, err := c.Open("legacy@example.com"); err != nil || v != "legacy@example.com" {
		t.Errorf("Open = %q, %v", v, err)
	}
}

func TestOpenWrongKey(t *testing.T) {
	sealed, _ := newTestCipher(t).Seal("x@y.de")
	if _, err := newTestCipher(t).Open(sealed); err == nil {
		t.Error("expected decryption failure with a different key")
	}
}

func TestNewFieldCipherRejectsBadKeys(t *testing.T) {
	for _, k := range []string{"", "not-base64!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := NewFieldCipher(k); err == nil {
			t.Errorf("expected error for key %q", k)
		}
	}
}
