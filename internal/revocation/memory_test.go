package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/bifrostlabs/heimdall/internal/revocation"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevoke(t *testing.T) {
	ctx := context.Background()
	checker := revocation.NewMemory()

	revoked, err := checker.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, checker.Revoke(ctx, "tok-1", time.Minute))

	revoked, err = checker.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = checker.IsRevoked(ctx, "tok-2")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryEntryExpires(t *testing.T) {
	ctx := context.Background()
	checker := revocation.NewMemory()

	require.NoError(t, checker.Revoke(ctx, "tok-1", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	revoked, err := checker.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryIgnoresEmptyAndExpired(t *testing.T) {
	ctx := context.Background()
	checker := revocation.NewMemory()

	require.NoError(t, checker.Revoke(ctx, "", time.Minute))
	require.NoError(t, checker.Revoke(ctx, "tok-1", -time.Minute))

	revoked, err := checker.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, revoked)
}
