package jwtx_test

import (
	"testing"
	"time"

	"github.com/bifrostlabs/heimdall/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestBuilderRelativeExpiry(t *testing.T) {
	claims, err := jwtx.NewBuilder().
		Subject("alice").
		ExpiresIn(42 * time.Second).
		Build()
	require.NoError(t, err)

	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, int64(42), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
}

func TestBuilderMissingExpiry(t *testing.T) {
	_, err := jwtx.NewBuilder().Subject("alice").Build()
	require.ErrorIs(t, err, jwtx.ErrExpirationNotSet)
}

func TestBuilderDefaults(t *testing.T) {
	before := time.Now().UTC().Truncate(time.Second)
	claims, err := jwtx.NewBuilder().ExpiresIn(time.Minute).Build()
	require.NoError(t, err)
	after := time.Now().UTC().Truncate(time.Second)

	// nbf and iat default to the build-time clock.
	require.False(t, claims.NotBefore.Before(before))
	require.False(t, claims.NotBefore.After(after))
	require.Equal(t, claims.NotBefore, claims.IssuedAt)
}

func TestBuilderAbsoluteExpiry(t *testing.T) {
	exp := time.Now().UTC().Add(time.Hour)
	nbf := time.Now().UTC()

	claims, err := jwtx.NewBuilder().
		Issuer("heimdall").
		Audience("gateway").
		TokenID("tok-1").
		NotBefore(nbf).
		ExpiresAt(exp).
		Build()
	require.NoError(t, err)

	require.Equal(t, "heimdall", claims.Issuer)
	require.Equal(t, "gateway", claims.Audience)
	require.Equal(t, "tok-1", claims.ID)
	require.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
}

func TestBuilderExpiryBeforeNotBefore(t *testing.T) {
	now := time.Now().UTC()

	_, err := jwtx.NewBuilder().
		NotBefore(now.Add(time.Hour)).
		ExpiresAt(now.Add(time.Minute)).
		Build()
	require.ErrorIs(t, err, jwtx.ErrExpiryBeforeNotBefore)

	// Equal instants are rejected too, expiry must be strictly later.
	_, err = jwtx.NewBuilder().
		NotBefore(now).
		ExpiresAt(now).
		Build()
	require.ErrorIs(t, err, jwtx.ErrExpiryBeforeNotBefore)
}

func TestBuilderExtensions(t *testing.T) {
	t.Run("last write wins", func(t *testing.T) {
		claims, err := jwtx.NewBuilder().
			ExpiresIn(time.Minute).
			Extension("role", "viewer").
			Extension("role", "admin").
			Build()
		require.NoError(t, err)

		v, ok := claims.Extension("role")
		require.True(t, ok)
		require.Equal(t, "admin", v)
	})

	t.Run("reserved keys rejected", func(t *testing.T) {
		for _, key := range []string{"iss", "sub", "aud", "exp", "nbf", "iat", "jti", "tok"} {
			_, err := jwtx.NewBuilder().
				ExpiresIn(time.Minute).
				Extension(key, "x").
				Build()
			require.ErrorIs(t, err, jwtx.ErrReservedExtension, "key %q", key)
		}
	})

	t.Run("built set is detached from the builder", func(t *testing.T) {
		b := jwtx.NewBuilder().ExpiresIn(time.Minute).Extension("tier", "gold")
		claims, err := b.Build()
		require.NoError(t, err)

		b.Extension("tier", "bronze")
		v, _ := claims.Extension("tier")
		require.Equal(t, "gold", v)
	})
}

func TestBuilderReuse(t *testing.T) {
	b := jwtx.NewBuilder().Subject("alice").ExpiresIn(time.Minute)

	first, err := b.Build()
	require.NoError(t, err)
	second, err := b.Build()
	require.NoError(t, err)

	require.Equal(t, first.Subject, second.Subject)
}
