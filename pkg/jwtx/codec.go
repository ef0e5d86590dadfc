package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Decode failure kinds. Callers branch on these with errors.Is, e.g. a
// client-facing layer collapses all of them to one opaque status while a
// refresh flow treats ErrExpired specially.
var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrExpired     = errors.New("jwtx: token expired")

	// ErrRevoked is not produced by Decode itself, the codec only carries
	// the token id. It is defined here so revocation-aware callers share
	// the same error taxonomy.
	ErrRevoked = errors.New("jwtx: token revoked")

	// ErrKindMismatch reports a structurally valid token of the wrong
	// kind, e.g. a refresh token presented as an access token.
	ErrKindMismatch = errors.New("jwtx: unexpected token kind")
)

// IsTokenError reports whether err is one of the decode failure kinds
// above. Boundaries use it to separate bad tokens from infrastructure
// faults.
func IsTokenError(err error) bool {
	for _, kind := range []error{
		ErrMalformed, ErrInvalidSig, ErrUnknownKID,
		ErrNotYetValid, ErrExpired, ErrRevoked, ErrKindMismatch,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Codec turns ClaimSets into signed compact tokens and back. The signing
// algorithm is fixed at construction and enforced on every decode, a token
// cannot talk the verifier into a different algorithm. Encoding and decoding
// are pure CPU work; the only shared state is read-mostly key material.
type Codec struct {
	manager *KeyManager
	leeway  time.Duration
}

// CodecOptions tunes decode behaviour.
type CodecOptions struct {
	// Leeway absorbs clock skew between issuer and verifier when checking
	// exp and nbf. Keep it small, seconds not minutes.
	Leeway time.Duration
}

// NewCodec builds a codec over the manager's keys.
func NewCodec(manager *KeyManager, opts CodecOptions) (*Codec, error) {
	if manager == nil {
		return nil, fmt.Errorf("jwtx: key manager is required")
	}
	if jwt.GetSigningMethod(manager.Algorithm()) == nil {
		return nil, fmt.Errorf("jwtx: unknown signing method %q", manager.Algorithm())
	}
	return &Codec{manager: manager, leeway: opts.Leeway}, nil
}

// Encode signs claims as a token of the given kind.
func (c *Codec) Encode(claims ClaimSet, kind TokenKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrKindMismatch, kind)
	}
	if claims.ExpiresAt.IsZero() {
		return "", ErrExpirationNotSet
	}

	mc := jwt.MapClaims{
		"exp":     claims.ExpiresAt.Unix(),
		"nbf":     claims.NotBefore.Unix(),
		"iat":     claims.IssuedAt.Unix(),
		kindClaim: string(kind),
	}
	if claims.Issuer != "" {
		mc["iss"] = claims.Issuer
	}
	if claims.Subject != "" {
		mc["sub"] = claims.Subject
	}
	if claims.Audience != "" {
		mc["aud"] = claims.Audience
	}
	if claims.ID != "" {
		mc["jti"] = claims.ID
	}
	for key, value := range claims.Extensions {
		if _, reserved := reservedClaimNames[key]; reserved {
			return "", fmt.Errorf("%w: %q", ErrReservedExtension, key)
		}
		mc[key] = value
	}

	signer := c.manager.Signer()
	if signer == nil {
		return "", fmt.Errorf("jwtx: no signing key available")
	}
	return signer.Sign(mc)
}

// Decode verifies a compact token and returns its ClaimSet and kind. Checks
// run in order: structure, signature (under the fixed algorithm, key chosen
// by kid), then exp/nbf within the configured leeway. Revocation is the
// caller's concern, branch on the returned ClaimSet.ID.
func (c *Codec) Decode(tokenStr string) (ClaimSet, TokenKind, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.manager.Algorithm()}),
		jwt.WithLeeway(c.leeway),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrInvalidSig)
		}
		return c.manager.KeySet().Get(kid)
	})
	if err != nil {
		return ClaimSet{}, "", classifyParseError(err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ClaimSet{}, "", ErrMalformed
	}

	kindStr, _ := mc[kindClaim].(string)
	kind := TokenKind(kindStr)
	if !kind.Valid() {
		return ClaimSet{}, "", fmt.Errorf("%w: missing or invalid %q claim", ErrMalformed, kindClaim)
	}

	claims, err := claimSetFromMap(mc)
	if err != nil {
		return ClaimSet{}, "", err
	}
	return claims, kind, nil
}

// classifyParseError maps golang-jwt parse failures onto the codec's error
// kinds without leaking library internals to callers.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, ErrUnknownKID):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func claimSetFromMap(mc jwt.MapClaims) (ClaimSet, error) {
	var claims ClaimSet

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return ClaimSet{}, fmt.Errorf("%w: bad exp claim", ErrMalformed)
	}
	claims.ExpiresAt = exp.Time

	if nbf, err := mc.GetNotBefore(); err == nil && nbf != nil {
		claims.NotBefore = nbf.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	claims.Issuer, _ = mc["iss"].(string)
	claims.Subject, _ = mc["sub"].(string)
	claims.ID, _ = mc["jti"].(string)

	switch aud := mc["aud"].(type) {
	case string:
		claims.Audience = aud
	case []any:
		if len(aud) > 0 {
			claims.Audience, _ = aud[0].(string)
		}
	}

	for key, value := range mc {
		if _, reserved := reservedClaimNames[key]; reserved {
			continue
		}
		if claims.Extensions == nil {
			claims.Extensions = make(map[string]any)
		}
		claims.Extensions[key] = value
	}

	return claims, nil
}
