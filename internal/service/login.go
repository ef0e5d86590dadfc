package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bifrostlabs/heimdall/internal/domain"
	"github.com/bifrostlabs/heimdall/internal/store"
	"github.com/bifrostlabs/heimdall/pkg/idx"
	"github.com/bifrostlabs/heimdall/pkg/jwtx"
	"github.com/bifrostlabs/heimdall/pkg/poolx"
	"github.com/bifrostlabs/heimdall/pkg/slogx"
)

// loginState names the phases of one login attempt. The values only appear
// in server-side logs.
type loginState string

const (
	stateReceived        loginState = "received"
	stateCredentialCheck loginState = "credential_check"
	stateAuthenticated   loginState = "authenticated"
	stateTokenIssuance   loginState = "token_issuance"
	stateCompleted       loginState = "completed"
	stateRejected        loginState = "rejected"
)

// LoginService drives a login attempt from request validation through
// credential verification to token issuance. Each call is an independent
// pass through the phases; the service holds no per-request state, so
// concurrent logins share nothing but the pool and the key material.
type LoginService struct {
	Store       store.Store
	Credentials *CredentialService
	Codec       *jwtx.Codec

	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login verifies the credentials and issues an access/refresh token pair.
// Every rejection a client can observe is ErrInvalidRequest,
// ErrInvalidCredentials or ErrInternal; anything finer grained stays in the
// logs. The database connection is held only for the credential check, token
// signing happens after it is released.
func (s *LoginService) Login(ctx context.Context, username, secret string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	s.logState(l, stateReceived, username)

	if username == "" || secret == "" {
		s.logState(l, stateRejected, username)
		return domain.TokenPair{}, fmt.Errorf("%w: username and password are required", ErrInvalidRequest)
	}

	s.logState(l, stateCredentialCheck, username)

	var cred domain.Credential
	err := s.Store.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		var verr error
		cred, verr = s.Credentials.Verify(ctx, conn, username, secret)
		return verr
	})
	if err != nil {
		s.logState(l, stateRejected, username)
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountUnavailable):
			// One client-visible rejection for every credential outcome.
			return domain.TokenPair{}, ErrInvalidCredentials
		case errors.Is(err, poolx.ErrAcquireTimeout):
			return domain.TokenPair{}, err
		default:
			l.Error("credential check failed", "error", err)
			return domain.TokenPair{}, ErrInternal
		}
	}

	s.logState(l, stateAuthenticated, username)
	s.logState(l, stateTokenIssuance, username)

	pair, err := s.issueTokens(cred.UserID)
	if err != nil {
		s.logState(l, stateRejected, username)
		l.Error("token issuance failed", "error", err)
		return domain.TokenPair{}, ErrInternal
	}

	s.logState(l, stateCompleted, username)
	l.Info("login succeeded", slog.String("user_id", cred.UserID))
	return pair, nil
}

// issueTokens builds and signs both tokens. Either both succeed or the
// caller gets nothing, a half pair is never returned.
func (s *LoginService) issueTokens(userID string) (domain.TokenPair, error) {
	accessClaims, err := s.claims(userID, s.AccessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("build access claims: %w", err)
	}
	refreshClaims, err := s.claims(userID, s.RefreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("build refresh claims: %w", err)
	}

	accessToken, err := s.Codec.Encode(accessClaims, jwtx.AccessToken)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := s.Codec.Encode(refreshClaims, jwtx.RefreshToken)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessClaims.ExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshClaims.ExpiresAt,
	}, nil
}

func (s *LoginService) claims(userID string, ttl time.Duration) (jwtx.ClaimSet, error) {
	b := jwtx.NewBuilder().
		Subject(userID).
		TokenID(idx.New().String()).
		ExpiresIn(ttl)
	if s.Issuer != "" {
		b = b.Issuer(s.Issuer)
	}
	if s.Audience != "" {
		b = b.Audience(s.Audience)
	}
	return b.Build()
}

func (s *LoginService) logState(l *slog.Logger, state loginState, username string) {
	l.Debug("login state", slog.String("state", string(state)), slog.String("username", username))
}
