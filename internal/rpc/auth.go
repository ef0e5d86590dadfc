// Package rpc exposes the auth service over gRPC. Handlers translate
// between the wire contract and the service layer, and collapse internal
// error detail into coarse status codes before it reaches a client.
package rpc

import (
	"context"
	"errors"

	authv1 "github.com/bifrostlabs/heimdall/api/gen/go/auth/v1"
	"github.com/bifrostlabs/heimdall/internal/service"
	"github.com/bifrostlabs/heimdall/pkg/jwtx"
	"github.com/bifrostlabs/heimdall/pkg/poolx"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AuthService implements the heimdall.auth.v1.AuthService contract.
type AuthService struct {
	authv1.UnimplementedAuthServiceServer

	logins *service.LoginService
	tokens *service.TokenService
}

func NewAuthService(logins *service.LoginService, tokens *service.TokenService) *AuthService {
	return &AuthService{logins: logins, tokens: tokens}
}

// Ping is the liveness probe.
func (s *AuthService) Ping(ctx context.Context, _ *authv1.PingRequest) (*authv1.PingResponse, error) {
	return &authv1.PingResponse{Message: "pong"}, nil
}

// Login runs the login flow and returns both tokens with their expiries.
// Every rejection, malformed input included, maps to one opaque
// Unauthenticated status; pool exhaustion maps to Unavailable so clients
// know to retry.
func (s *AuthService) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.LoginResponse, error) {
	pair, err := s.logins.Login(ctx, req.GetUsername(), req.GetPassword())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidCredentials):
			return nil, status.Error(codes.Unauthenticated, "invalid credentials")
		case errors.Is(err, poolx.ErrAcquireTimeout):
			return nil, status.Error(codes.Unavailable, "service busy, retry later")
		default:
			return nil, status.Error(codes.Internal, "internal error")
		}
	}

	return &authv1.LoginResponse{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt.Unix(),
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt.Unix(),
	}, nil
}

// Revoke invalidates the presented token for the rest of its lifetime.
// Tokens that fail to decode collapse to the same opaque Unauthenticated
// status the auth interceptor uses.
func (s *AuthService) Revoke(ctx context.Context, req *authv1.RevokeRequest) (*authv1.RevokeResponse, error) {
	if err := s.tokens.Revoke(ctx, req.GetToken()); err != nil {
		if jwtx.IsTokenError(err) {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &authv1.RevokeResponse{}, nil
}
