package grpcx

import (
	"context"
	"strings"

	"github.com/bifrostlabs/heimdall/pkg/jwtx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokenValidator checks a presented token of the expected kind and returns
// its claims. Satisfied by the token service.
type TokenValidator interface {
	Validate(ctx context.Context, token string, expected jwtx.TokenKind) (jwtx.ClaimSet, error)
}

type claimsContextKey struct{}

// AuthInterceptor requires a valid bearer access token on the listed
// methods. Methods not in the set pass through untouched. On success the
// token's claims are attached to the handler context; every failure mode
// collapses to a single Unauthenticated status so callers learn nothing
// about why a token was refused.
func AuthInterceptor(validator TokenValidator, methods ...string) grpc.UnaryServerInterceptor {
	protected := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		protected[m] = struct{}{}
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := protected[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		token := bearerToken(ctx)
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		claims, err := validator.Validate(ctx, token, jwtx.AccessToken)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(context.WithValue(ctx, claimsContextKey{}, claims), req)
	}
}

// ClaimsFromContext returns the claims attached by AuthInterceptor. The
// second return is false on unprotected methods.
func ClaimsFromContext(ctx context.Context) (jwtx.ClaimSet, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(jwtx.ClaimSet)
	return claims, ok
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	const prefix = "bearer "
	if len(vals[0]) <= len(prefix) || !strings.EqualFold(vals[0][:len(prefix)], prefix) {
		return ""
	}
	return vals[0][len(prefix):]
}
