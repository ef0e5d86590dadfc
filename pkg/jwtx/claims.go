package jwtx

import (
	"time"
)

// TokenKind distinguishes the two token classes the service issues. The kind
// travels inside the signed payload (the "tok" claim) so a refresh token can
// never be replayed where an access token is expected.
type TokenKind string

const (
	// AccessToken is the short-lived, per-request token.
	AccessToken TokenKind = "access"

	// RefreshToken is the long-lived token used to mint new access tokens.
	RefreshToken TokenKind = "refresh"
)

// Valid reports whether k is one of the known token kinds.
func (k TokenKind) Valid() bool {
	return k == AccessToken || k == RefreshToken
}

// ClaimSet is the payload of a token. It is immutable once built; construct
// one through Builder, which enforces the expiry invariant and defaults.
type ClaimSet struct {
	// Identity/context fields. Empty means unset.
	Issuer   string
	Subject  string
	Audience string

	// ID is the unique token identifier (jti), used for replay and
	// revocation tracking.
	ID string

	// Timestamps, second precision. All three are set on a built ClaimSet
	// and ExpiresAt is strictly later than NotBefore.
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time

	// Extensions carries free-form additional claims. Keys never collide
	// with the registered claim names above.
	Extensions map[string]any
}

// Registered claim names plus the kind claim. Extension keys must not shadow
// any of these.
const kindClaim = "tok"

var reservedClaimNames = map[string]struct{}{
	"iss":     {},
	"sub":     {},
	"aud":     {},
	"exp":     {},
	"nbf":     {},
	"iat":     {},
	"jti":     {},
	kindClaim: {},
}

// Extension returns the named extension claim and whether it is present.
func (c ClaimSet) Extension(key string) (any, bool) {
	v, ok := c.Extensions[key]
	return v, ok
}
