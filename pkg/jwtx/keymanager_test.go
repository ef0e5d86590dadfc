package jwtx_test

import (
	"testing"
	"time"

	"github.com/bifrostlabs/heimdall/pkg/cryptox"
	"github.com/bifrostlabs/heimdall/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestKeyManagerDefaults(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{})
	require.NoError(t, err)

	require.Equal(t, jwtx.AlgorithmEdDSA, km.Algorithm())
	require.Equal(t, 3, km.NumSigners())
	require.Equal(t, 3, km.KeySet().Len())
}

func TestKeyManagerRejectsUnknownAlgorithm(t *testing.T) {
	_, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: "HS256"})
	require.Error(t, err)
}

func TestKeyManagerRejectsMismatchedSigner(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		NumKeys:   1,
	})
	require.NoError(t, err)

	pemKey, err := cryptox.GenerateES256Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSigner(jwtx.AlgorithmES256, "es-1", pemKey)
	require.NoError(t, err)

	require.Error(t, km.Add(signer))
}

func TestKeyManagerRotation(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		NumKeys:   1,
	})
	require.NoError(t, err)

	codec, err := jwtx.NewCodec(km, jwtx.CodecOptions{})
	require.NoError(t, err)

	oldKID := km.Signer().KID()

	claims, err := jwtx.NewBuilder().Subject("alice").ExpiresIn(time.Minute).Build()
	require.NoError(t, err)
	oldToken, err := codec.Encode(claims, jwtx.AccessToken)
	require.NoError(t, err)

	// Grow with a fresh key, then retire the old one.
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	fresh, err := jwtx.NewSigner(jwtx.AlgorithmEdDSA, "ed-new", pemKey)
	require.NoError(t, err)
	require.NoError(t, km.Add(fresh))
	require.NoError(t, km.Retire(oldKID))

	require.Equal(t, 1, km.NumSigners())
	require.Equal(t, "ed-new", km.Signer().KID())

	// The retired key stays in the KeySet, so the old token still verifies.
	_, _, err = codec.Decode(oldToken)
	require.NoError(t, err)

	newToken, err := codec.Encode(claims, jwtx.AccessToken)
	require.NoError(t, err)
	_, _, err = codec.Decode(newToken)
	require.NoError(t, err)
}

func TestKeyManagerRetireLastKey(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		NumKeys:   1,
	})
	require.NoError(t, err)

	require.Error(t, km.Retire(km.Signer().KID()))
}

func TestKeyManagerRetireUnknownKID(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		NumKeys:   2,
	})
	require.NoError(t, err)

	require.ErrorIs(t, km.Retire("nope"), jwtx.ErrUnknownKID)
}
