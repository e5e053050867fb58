package service

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_LegacyKnownVector(t *testing.T) {
	h := NewPasswordHasher(SchemeLegacy)
	hash, salt, err := h.Hash("secret", "abc")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if salt != "abc" {
		t.Fatalf("expected salt to be kept, got %q", salt)
	}
	if want := "f6ba18523c6942ba1e1b54f8256527ab1b8db94496cf6f4a2b6db9695c0fc6f9"; hash != want {
		t.Fatalf("expected %s, got %s", want, hash)
	}
}

func TestPasswordHasher_GeneratesSalt(t *testing.T) {
	h := NewPasswordHasher(SchemeLegacy)
	h.rand = bytes.NewReader(bytes.Repeat([]byte{0xab}, SaltBytes))

	hash, salt, err := h.Hash("secret", "")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if len(salt) != 2*SaltBytes || salt != strings.Repeat("ab", SaltBytes) {
		t.Fatalf("unexpected salt %q", salt)
	}
	if !h.Verify("secret", hash, salt) {
		t.Fatalf("expected generated hash to verify")
	}
}

func TestPasswordHasher_SaltFailure(t *testing.T) {
	h := NewPasswordHasher(SchemeLegacy)
	h.rand = bytes.NewReader(nil)
	if _, _, err := h.Hash("secret", ""); err == nil {
		t.Fatalf("expected error when the salt source is exhausted")
	}
}

func TestPasswordHasher_Verify(t *testing.T) {
	h := NewPasswordHasher(SchemeLegacy)
	const (
		salt = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
		hash = "f0be116c4f04fd00d6a04dac1ee87f0efb4950ebcf55b6ea29aec68f719d3c04"
	)

	tests := []struct {
		name     string
		password string
		hash     string
		salt     string
		want     bool
	}{
		{"match", "correct-horse", hash, salt, true},
		{"uppercase stored hash", "correct-horse", strings.ToUpper(hash), salt, true},
		{"wrong password", "wrong-horse", hash, salt, false},
		{"wrong salt", "correct-horse", hash, "ff", false},
		{"empty stored hash", "correct-horse", "", salt, false},
		{"truncated stored hash", "correct-horse", hash[:10], salt, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Verify(tt.password, tt.hash, tt.salt); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPasswordHasher_VerifyFailsClosed(t *testing.T) {
	h := NewPasswordHasher(SchemeLegacy)
	h.digest = func([]byte) []byte { panic(errors.New("digest exploded")) }

	if h.Verify("secret", "f6ba18523c6942ba1e1b54f8256527ab1b8db94496cf6f4a2b6db9695c0fc6f9", "abc") {
		t.Fatalf("expected false when hashing panics")
	}
}

func TestPasswordHasher_BcryptScheme(t *testing.T) {
	h := NewPasswordHasher(SchemeBcrypt)
	hash, salt, err := h.Hash("secret", "ignored")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if salt != "" {
		t.Fatalf("expected empty salt for bcrypt, got %q", salt)
	}
	if !h.Verify("secret", hash, "") {
		t.Fatalf("expected bcrypt hash to verify")
	}
	if h.Verify("nope", hash, "") {
		t.Fatalf("expected wrong password to fail")
	}
	if h.NeedsUpgrade(hash) {
		t.Fatalf("bcrypt hash should not need upgrade")
	}
}

func TestPasswordHasher_LegacyHasherVerifiesBcryptRows(t *testing.T) {
	stored, err := bcrypt.GenerateFromPassword([]byte("migrated"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	h := NewPasswordHasher(SchemeLegacy)
	if !h.Verify("migrated", string(stored), "unused-salt") {
		t.Fatalf("expected bcrypt row to verify under the legacy scheme")
	}
	if !h.NeedsUpgrade("f6ba18523c6942ba1e1b54f8256527ab1b8db94496cf6f4a2b6db9695c0fc6f9") {
		t.Fatalf("expected legacy hash to need upgrade")
	}
}

func TestNewPasswordHasher_UnknownSchemeFallsBackToLegacy(t *testing.T) {
	if h := NewPasswordHasher("argon2"); h.scheme != SchemeLegacy {
		t.Fatalf("expected legacy scheme, got %s", h.scheme)
	}
}
