package auth_test

import (
	"context"
	"testing"

	authv1 "github.com/bifrostlabs/heimdall/api/gen/go/auth/v1"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoginRateLimitEndToEnd(t *testing.T) {
	ta := startApp(t)
	ctx := context.Background()

	// Burn the per-peer login budget with bad credentials. Each attempt
	// must come back Unauthenticated, not ResourceExhausted, until the
	// limiter kicks in.
	var throttled bool
	for i := 0; i < 10; i++ {
		_, err := ta.authClient().Login(ctx, &authv1.LoginRequest{
			Username: "alice",
			Password: "wrong",
		})
		require.Error(t, err)

		if status.Code(err) == codes.ResourceExhausted {
			throttled = true
			break
		}
		require.Equal(t, codes.Unauthenticated, status.Code(err))
	}
	require.True(t, throttled, "limiter never engaged")

	// Ping is not rate limited and keeps working.
	_, err := ta.authClient().Ping(ctx, &authv1.PingRequest{})
	require.NoError(t, err)
}
