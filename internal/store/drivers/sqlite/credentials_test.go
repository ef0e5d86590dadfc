package sqlite_test

import (
	"context"
	"testing"

	"github.com/bifrostlabs/heimdall/internal/domain"
	"github.com/bifrostlabs/heimdall/internal/store"
	"github.com/bifrostlabs/heimdall/internal/store/drivers/sqlite"
	"github.com/bifrostlabs/heimdall/pkg/idx"
	"github.com/bifrostlabs/heimdall/pkg/poolx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore("file:"+t.Name()+"?mode=memory&cache=shared", poolx.Config{Capacity: 2})
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCredential(t *testing.T, s *sqlite.Store, username string, status domain.AccountStatus) domain.Credential {
	t.Helper()

	cred := domain.Credential{
		UserID:     idx.New().String(),
		Username:   username,
		SecretHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Status:     status,
	}

	ctx := context.Background()
	err := s.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		return s.Credentials().Create(ctx, conn, cred)
	})
	require.NoError(t, err)
	return cred
}

func TestCredentialsCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seeded := seedCredential(t, s, "alice", domain.AccountActive)

	err := s.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		got, err := s.Credentials().GetByUsername(ctx, conn, "alice")
		require.NoError(t, err)
		require.Equal(t, seeded.UserID, got.UserID)
		require.Equal(t, "alice", got.Username)
		require.Equal(t, seeded.SecretHash, got.SecretHash)
		require.Equal(t, domain.AccountActive, got.Status)
		require.Zero(t, got.FailedLogins)
		require.Nil(t, got.LastFailureAt)
		require.False(t, got.CreatedAt.IsZero())
		return nil
	})
	require.NoError(t, err)
}

func TestCredentialsGetUnknownUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		_, err := s.Credentials().GetByUsername(ctx, conn, "ghost")
		return err
	})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCredentialsDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCredential(t, s, "alice", domain.AccountActive)

	err := s.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		return s.Credentials().Create(ctx, conn, domain.Credential{
			UserID:     idx.New().String(),
			Username:   "alice",
			SecretHash: "x",
			Status:     domain.AccountActive,
		})
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestCredentialsFailureCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred := seedCredential(t, s, "alice", domain.AccountActive)

	err := s.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		repo := s.Credentials()

		require.NoError(t, repo.RecordFailure(ctx, conn, cred.UserID))
		require.NoError(t, repo.RecordFailure(ctx, conn, cred.UserID))

		got, err := repo.GetByUsername(ctx, conn, "alice")
		require.NoError(t, err)
		require.Equal(t, 2, got.FailedLogins)
		require.NotNil(t, got.LastFailureAt)

		require.NoError(t, repo.ClearFailures(ctx, conn, cred.UserID))

		got, err = repo.GetByUsername(ctx, conn, "alice")
		require.NoError(t, err)
		require.Zero(t, got.FailedLogins)
		require.Nil(t, got.LastFailureAt)
		return nil
	})
	require.NoError(t, err)
}

func TestCredentialsFailureUnknownUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		return s.Credentials().RecordFailure(ctx, conn, "missing")
	})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCredentialsSetStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred := seedCredential(t, s, "alice", domain.AccountActive)

	err := s.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		require.NoError(t, s.Credentials().SetStatus(ctx, conn, cred.UserID, domain.AccountLocked))

		got, err := s.Credentials().GetByUsername(ctx, conn, "alice")
		require.NoError(t, err)
		require.Equal(t, domain.AccountLocked, got.Status)
		require.False(t, got.Status.Available())
		return nil
	})
	require.NoError(t, err)
}

func TestCredentialsIsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		empty, err := s.Credentials().IsEmpty(ctx, conn)
		require.NoError(t, err)
		require.True(t, empty)
		return nil
	})
	require.NoError(t, err)

	seedCredential(t, s, "alice", domain.AccountActive)

	err = s.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		empty, err := s.Credentials().IsEmpty(ctx, conn)
		require.NoError(t, err)
		require.False(t, empty)
		return nil
	})
	require.NoError(t, err)
}
