// Package apikey holds the API key record resolved by the auth gate.
package apikey

import "time"

// APIKey is a tenant's credential. Only KeyHash is ever persisted; the
// plaintext token is shown to the caller once, at mint time.
type APIKey struct {
	ID           string     `db:"id" json:"id"`
	KeyHash      string     `db:"key_hash" json:"-"`
	Name         string     `db:"name" json:"name"`
	TenantID     string     `db:"tenant_id" json:"tenant_id"`
	RateLimit    int        `db:"rate_limit" json:"rate_limit"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	RequestCount int64      `db:"request_count" json:"request_count"`
	LastUsedAt   *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	ExpiresAt    *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Valid reports whether the key may authenticate a request: it must be
// active and, if it has an expiry, not yet past it.
func (k APIKey) Valid(now time.Time) bool {
	if !k.IsActive {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return true
}
