package cryptox_test

import (
	"path/filepath"
	"testing"

	"github.com/bifrostlabs/heimdall/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	const pepper = "test-pepper"

	hash, err := cryptox.HashSecret("hunter2", pepper)
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$")

	t.Run("correct secret", func(t *testing.T) {
		require.NoError(t, cryptox.VerifySecret("hunter2", pepper, hash))
	})

	t.Run("wrong secret", func(t *testing.T) {
		err := cryptox.VerifySecret("hunter3", pepper, hash)
		require.ErrorIs(t, err, cryptox.ErrMismatch)
	})

	t.Run("wrong pepper", func(t *testing.T) {
		err := cryptox.VerifySecret("hunter2", "other-pepper", hash)
		require.ErrorIs(t, err, cryptox.ErrMismatch)
	})

	t.Run("unique salts", func(t *testing.T) {
		again, err := cryptox.HashSecret("hunter2", pepper)
		require.NoError(t, err)
		require.NotEqual(t, hash, again)
	})
}

func TestVerifySecretRejectsBadHashes(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"not phc":       "plainhash",
		"wrong algo":    "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"wrong version": "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"bad salt":      "$argon2id$v=19$m=19456,t=2,p=1$!!$aGFzaA",
	}

	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			err := cryptox.VerifySecret("whatever", "", encoded)
			require.Error(t, err)
			require.NotErrorIs(t, err, cryptox.ErrMismatch)
		})
	}
}

func TestLoadOrCreatePepper(t *testing.T) {
	file := filepath.Join(t.TempDir(), "secrets", "pepper")

	created, err := cryptox.LoadOrCreatePepper(file)
	require.NoError(t, err)
	require.NotEmpty(t, created)

	loaded, err := cryptox.LoadOrCreatePepper(file)
	require.NoError(t, err)
	require.Equal(t, created, loaded, "second load must reuse the persisted pepper")
}
