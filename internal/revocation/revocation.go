// Package revocation tracks token ids that were invalidated before their
// natural expiry. Token verification stays pure CPU work; callers consult a
// Checker with the decoded token id afterwards.
package revocation

import (
	"context"
	"time"
)

// Checker is the revocation set. Entries carry a time-to-live matching the
// revoked token's remaining lifetime, after which the token id no longer
// needs tracking because expiry rejects it anyway.
type Checker interface {
	// Revoke records a token id until ttl elapses.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error

	// IsRevoked reports whether a token id is in the revocation set.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
