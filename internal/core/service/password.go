package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// SaltBytes is the entropy drawn for a new legacy salt (hex encoded to 64 chars).
const SaltBytes = 32

// Password schemes accepted by NewPasswordHasher.
const (
	SchemeLegacy = "legacy"
	SchemeBcrypt = "bcrypt"
)

// dummySalt/dummyHash back the verification done for unknown usernames so
// that path costs the same as a wrong password.
const (
	dummySalt = "0000000000000000000000000000000000000000000000000000000000000000"
	dummyHash = "8b4a3f1f0c8c6c7a5fb0e6bb7ef3b2a58a8e0f22c2d1f7b3e1a1c5d9e0f7a6b2"
)

// PasswordHasher salts, hashes and verifies passwords.
//
// Stored hashes use the legacy format hex(sha256(password || salt)). It is a
// single fast digest kept for compatibility with rows already in the users
// table; rows carrying a bcrypt hash are verified with bcrypt so they can be
// migrated one by one.
type PasswordHasher struct {
	scheme string
	rand   io.Reader
	digest func(data []byte) []byte
}

func NewPasswordHasher(scheme string) *PasswordHasher {
	if scheme != SchemeBcrypt {
		scheme = SchemeLegacy
	}
	return &PasswordHasher{
		scheme: scheme,
		rand:   rand.Reader,
		digest: sha256Digest,
	}
}

func sha256Digest(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// Hash returns the stored form of password. With an empty salt a fresh one
// is generated. Under the bcrypt scheme the salt is embedded in the hash and
// the returned salt is empty.
func (h *PasswordHasher) Hash(password, salt string) (string, string, error) {
	if h.scheme == SchemeBcrypt {
		out, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", "", fmt.Errorf("bcrypt hash: %w", err)
		}
		return string(out), "", nil
	}

	if salt == "" {
		buf := make([]byte, SaltBytes)
		if _, err := io.ReadFull(h.rand, buf); err != nil {
			return "", "", fmt.Errorf("generate salt: %w", err)
		}
		salt = hex.EncodeToString(buf)
	}
	return h.legacy(password, salt), salt, nil
}

func (h *PasswordHasher) legacy(password, salt string) string {
	return hex.EncodeToString(h.digest([]byte(password + salt)))
}

// Verify reports whether password matches the stored hash and salt. It fails
// closed: any error while computing the digest yields false.
func (h *PasswordHasher) Verify(password, storedHash, storedSalt string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if storedHash == "" {
		return false
	}
	if isBcrypt(storedHash) {
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
	}

	candidate := h.legacy(password, storedSalt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(strings.ToLower(storedHash))) == 1
}

// NeedsUpgrade reports whether a stored hash is still in the legacy format.
func (h *PasswordHasher) NeedsUpgrade(storedHash string) bool {
	return storedHash != "" && !isBcrypt(storedHash)
}

// burn performs a verification whose result is discarded.
func (h *PasswordHasher) burn(password string) {
	_ = h.Verify(password, dummyHash, dummySalt)
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}
