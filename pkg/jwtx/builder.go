package jwtx

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

var (
	// ErrExpirationNotSet reports a build without an absolute expiry or a
	// relative lifetime. This is a configuration error and fatal to the
	// caller's setup path.
	ErrExpirationNotSet = errors.New("jwtx: expiration must be initialized")

	// ErrExpiryBeforeNotBefore reports an expiry at or before the
	// not-before instant.
	ErrExpiryBeforeNotBefore = errors.New("jwtx: expiry must be after not-before")

	// ErrReservedExtension reports an extension key shadowing a registered
	// claim name.
	ErrReservedExtension = errors.New("jwtx: extension key collides with a registered claim")
)

// Builder accumulates claim fields and produces an immutable ClaimSet. The
// zero Builder is not usable; start with NewBuilder. A Builder may be reused
// after Build, later builds see the same accumulated fields.
type Builder struct {
	issuer   string
	subject  string
	audience string
	tokenID  string

	expiresAt time.Time
	expiresIn time.Duration
	notBefore time.Time
	issuedAt  time.Time

	extensions map[string]any

	// now is the clock used for defaults; overridable in tests.
	now func() time.Time
}

// NewBuilder returns an empty claims builder.
func NewBuilder() *Builder {
	return &Builder{now: func() time.Time { return time.Now().UTC() }}
}

// Issuer sets the iss claim.
func (b *Builder) Issuer(issuer string) *Builder {
	b.issuer = issuer
	return b
}

// Subject sets the sub claim.
func (b *Builder) Subject(subject string) *Builder {
	b.subject = subject
	return b
}

// Audience sets the aud claim.
func (b *Builder) Audience(audience string) *Builder {
	b.audience = audience
	return b
}

// TokenID sets the jti claim.
func (b *Builder) TokenID(id string) *Builder {
	b.tokenID = id
	return b
}

// ExpiresAt sets the exp claim to an absolute instant.
func (b *Builder) ExpiresAt(t time.Time) *Builder {
	b.expiresAt = t
	b.expiresIn = 0
	return b
}

// ExpiresIn sets the exp claim relative to the build-time clock.
func (b *Builder) ExpiresIn(d time.Duration) *Builder {
	b.expiresIn = d
	b.expiresAt = time.Time{}
	return b
}

// NotBefore sets the nbf claim. Unset, it defaults to build time.
func (b *Builder) NotBefore(t time.Time) *Builder {
	b.notBefore = t
	return b
}

// IssuedAt sets the iat claim. Unset, it defaults to build time.
func (b *Builder) IssuedAt(t time.Time) *Builder {
	b.issuedAt = t
	return b
}

// Extension adds a free-form claim. Later writes to the same key win.
// Reserved claim names are rejected at Build.
func (b *Builder) Extension(key string, value any) *Builder {
	if b.extensions == nil {
		b.extensions = make(map[string]any)
	}
	b.extensions[key] = value
	return b
}

// Build validates the accumulated fields and produces the ClaimSet. The
// builder itself is left untouched.
func (b *Builder) Build() (ClaimSet, error) {
	now := b.now().Truncate(time.Second)

	var exp time.Time
	switch {
	case !b.expiresAt.IsZero():
		exp = b.expiresAt.Truncate(time.Second)
	case b.expiresIn != 0:
		exp = now.Add(b.expiresIn).Truncate(time.Second)
	default:
		return ClaimSet{}, ErrExpirationNotSet
	}

	nbf := b.notBefore.Truncate(time.Second)
	if nbf.IsZero() {
		nbf = now
	}
	iat := b.issuedAt.Truncate(time.Second)
	if iat.IsZero() {
		iat = now
	}

	if !exp.After(nbf) {
		return ClaimSet{}, fmt.Errorf("%w (exp=%d nbf=%d)", ErrExpiryBeforeNotBefore, exp.Unix(), nbf.Unix())
	}

	for key := range b.extensions {
		if _, reserved := reservedClaimNames[key]; reserved {
			return ClaimSet{}, fmt.Errorf("%w: %q", ErrReservedExtension, key)
		}
	}

	var ext map[string]any
	if len(b.extensions) > 0 {
		ext = make(map[string]any, len(b.extensions))
		maps.Copy(ext, b.extensions)
	}

	return ClaimSet{
		Issuer:     b.issuer,
		Subject:    b.subject,
		Audience:   b.audience,
		ID:         b.tokenID,
		IssuedAt:   iat,
		NotBefore:  nbf,
		ExpiresAt:  exp,
		Extensions: ext,
	}, nil
}
