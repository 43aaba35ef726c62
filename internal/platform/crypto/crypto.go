// Package crypto provides the hashing and token-generation helpers used
// by the API-key auth gate.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// HashAPIKey returns the salted SHA-256 hash of an opaque API key, as
// hex. Only this hash is ever persisted; the plaintext key is shown to
// the caller once, at mint time, and never stored.
func HashAPIKey(key, salt string) string {
	sum := sha256.Sum256([]byte(key + salt))
	return hex.EncodeToString(sum[:])
}

// EqualHash compares two hex-encoded hashes in constant time, so a
// timing side-channel can't be used to brute-force the stored hash.
func EqualHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GenerateAPIKey returns a new opaque API key: the configured prefix
// followed by 32 URL-safe characters of randomness. The same value must
// be hashed with HashAPIKey before it is persisted.
func GenerateAPIKey(prefix string) (string, error) {
	suffix, err := randomURLSafe(24)
	if err != nil {
		return "", err
	}
	return prefix + suffix, nil
}

// randomURLSafe returns n bytes of crypto/rand randomness, base64
// URL-safe encoded without padding.
func randomURLSafe(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
