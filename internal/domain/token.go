package domain

import "time"

// TokenPair is the result of a successful login: one short-lived access
// token and one long-lived refresh token, issued atomically.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
