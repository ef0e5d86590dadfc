package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bifrostlabs/heimdall/internal/domain"
	"github.com/bifrostlabs/heimdall/internal/service"
	"github.com/bifrostlabs/heimdall/internal/store/drivers/sqlite"
	"github.com/bifrostlabs/heimdall/pkg/cryptox"
	"github.com/bifrostlabs/heimdall/pkg/idx"
	"github.com/bifrostlabs/heimdall/pkg/jwtx"
	"github.com/bifrostlabs/heimdall/pkg/poolx"
	"github.com/stretchr/testify/require"
)

const testPepper = "test-pepper"

type loginFixture struct {
	store *sqlite.Store
	login *service.LoginService
	codec *jwtx.Codec
}

func newLoginFixture(t *testing.T, poolCfg poolx.Config) *loginFixture {
	t.Helper()

	s, err := sqlite.NewStore("file:"+t.Name()+"?mode=memory&cache=shared", poolCfg)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{NumKeys: 1})
	require.NoError(t, err)
	codec, err := jwtx.NewCodec(km, jwtx.CodecOptions{})
	require.NoError(t, err)

	login := &service.LoginService{
		Store:       s,
		Credentials: &service.CredentialService{Store: s, Pepper: testPepper},
		Codec:       codec,
		Issuer:      "heimdall",
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  720 * time.Hour,
	}

	return &loginFixture{store: s, login: login, codec: codec}
}

func (f *loginFixture) seedUser(t *testing.T, username, secret string, status domain.AccountStatus) string {
	t.Helper()

	hash, err := cryptox.HashSecret(secret, testPepper)
	require.NoError(t, err)

	userID := idx.New().String()
	ctx := context.Background()
	err = f.store.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		return f.store.Credentials().Create(ctx, conn, domain.Credential{
			UserID:     userID,
			Username:   username,
			SecretHash: hash,
			Status:     status,
		})
	})
	require.NoError(t, err)
	return userID
}

func TestLoginSuccess(t *testing.T) {
	f := newLoginFixture(t, poolx.Config{Capacity: 2})
	userID := f.seedUser(t, "alice", "hunter2!", domain.AccountActive)

	pair, err := f.login.Login(context.Background(), "alice", "hunter2!")
	require.NoError(t, err)

	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))

	// Both tokens carry the verified user as subject and the right kind.
	claims, kind, err := f.codec.Decode(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, jwtx.AccessToken, kind)
	require.Equal(t, userID, claims.Subject)
	require.Equal(t, "heimdall", claims.Issuer)
	require.NotEmpty(t, claims.ID)

	refreshClaims, kind, err := f.codec.Decode(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, jwtx.RefreshToken, kind)
	require.Equal(t, userID, refreshClaims.Subject)
	require.NotEqual(t, claims.ID, refreshClaims.ID)
}

func TestLoginRejectsEmptyInput(t *testing.T) {
	f := newLoginFixture(t, poolx.Config{Capacity: 2})

	for _, tc := range []struct{ username, secret string }{
		{"", ""},
		{"alice", ""},
		{"", "hunter2!"},
	} {
		_, err := f.login.Login(context.Background(), tc.username, tc.secret)
		require.ErrorIs(t, err, service.ErrInvalidRequest)
	}
}

func TestLoginRejectionsAreUniform(t *testing.T) {
	f := newLoginFixture(t, poolx.Config{Capacity: 2})
	f.seedUser(t, "alice", "hunter2!", domain.AccountActive)
	f.seedUser(t, "mallory", "correct-secret", domain.AccountDisabled)
	f.seedUser(t, "larry", "correct-secret", domain.AccountLocked)

	// Unknown username, wrong secret and unavailable accounts all surface
	// as the same rejection.
	for _, tc := range []struct{ username, secret string }{
		{"ghost", "whatever"},
		{"alice", "wrong-secret"},
		{"mallory", "correct-secret"},
		{"larry", "correct-secret"},
	} {
		_, err := f.login.Login(context.Background(), tc.username, tc.secret)
		require.ErrorIs(t, err, service.ErrInvalidCredentials, "username %q", tc.username)
	}
}

func TestLoginTracksFailedAttempts(t *testing.T) {
	f := newLoginFixture(t, poolx.Config{Capacity: 2})
	f.seedUser(t, "alice", "hunter2!", domain.AccountActive)
	ctx := context.Background()

	_, err := f.login.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = f.login.Login(ctx, "alice", "also-wrong")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	err = f.store.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		cred, err := f.store.Credentials().GetByUsername(ctx, conn, "alice")
		require.NoError(t, err)
		require.Equal(t, 2, cred.FailedLogins)
		return nil
	})
	require.NoError(t, err)

	// A successful login resets the counter.
	_, err = f.login.Login(ctx, "alice", "hunter2!")
	require.NoError(t, err)

	err = f.store.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		cred, err := f.store.Credentials().GetByUsername(ctx, conn, "alice")
		require.NoError(t, err)
		require.Zero(t, cred.FailedLogins)
		return nil
	})
	require.NoError(t, err)
}

func TestLoginConcurrent(t *testing.T) {
	f := newLoginFixture(t, poolx.Config{Capacity: 2, AcquireTimeout: 10 * time.Second})
	f.seedUser(t, "alice", "hunter2!", domain.AccountActive)

	var wg sync.WaitGroup
	errCh := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.login.Login(context.Background(), "alice", "hunter2!")
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}
	require.Equal(t, 2, f.store.Pool().Available())
}

func TestLoginPoolTimeout(t *testing.T) {
	f := newLoginFixture(t, poolx.Config{Capacity: 1, AcquireTimeout: 50 * time.Millisecond})
	f.seedUser(t, "alice", "hunter2!", domain.AccountActive)
	ctx := context.Background()

	// Hold the only connection so the login cannot lease one.
	conn, err := f.store.Pool().Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	_, err = f.login.Login(ctx, "alice", "hunter2!")
	require.ErrorIs(t, err, poolx.ErrAcquireTimeout)
}
