package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bifrostlabs/heimdall/internal/revocation"
	"github.com/bifrostlabs/heimdall/pkg/jwtx"
	"github.com/bifrostlabs/heimdall/pkg/slogx"
)

// TokenService validates presented tokens and revokes them before their
// natural expiry. Decoding is pure CPU work in the codec; the revocation
// lookup is the only I/O here.
type TokenService struct {
	Codec   *jwtx.Codec
	Revoked revocation.Checker
}

// Validate decodes a token and enforces its kind and revocation status.
// Failures come back as the codec's error kinds (jwtx.ErrExpired,
// jwtx.ErrRevoked, jwtx.ErrKindMismatch and friends) so callers can branch
// on them with errors.Is.
func (s *TokenService) Validate(ctx context.Context, token string, expected jwtx.TokenKind) (jwtx.ClaimSet, error) {
	claims, kind, err := s.Codec.Decode(token)
	if err != nil {
		return jwtx.ClaimSet{}, err
	}

	if kind != expected {
		return jwtx.ClaimSet{}, fmt.Errorf("%w: got %q, want %q", jwtx.ErrKindMismatch, kind, expected)
	}

	if s.Revoked != nil && claims.ID != "" {
		revoked, err := s.Revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return jwtx.ClaimSet{}, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return jwtx.ClaimSet{}, jwtx.ErrRevoked
		}
	}

	return claims, nil
}

// Revoke invalidates a structurally valid token for the rest of its
// lifetime. Tokens without a token id cannot be revoked individually.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if s.Revoked == nil {
		return fmt.Errorf("no revocation backend configured")
	}

	claims, _, err := s.Codec.Decode(token)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return fmt.Errorf("token has no id, cannot revoke")
	}

	ttl := time.Until(claims.ExpiresAt)
	if err := s.Revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	slogx.FromContext(ctx).Info("token revoked", "token_id", claims.ID)
	return nil
}
