package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bifrostlabs/heimdall/internal/domain"
	"github.com/bifrostlabs/heimdall/internal/store"
	"github.com/bifrostlabs/heimdall/internal/store/drivers/postgres"
	"github.com/bifrostlabs/heimdall/pkg/idx"
	"github.com/bifrostlabs/heimdall/pkg/poolx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres spins up a disposable postgres container. These tests need
// a container runtime, so they are skipped in -short mode.
func startPostgres(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "heimdall_test",
				"POSTGRES_USER":     "heimdall",
				"POSTGRES_PASSWORD": "heimdall",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s dbname=heimdall_test user=heimdall password=heimdall sslmode=disable",
		host, port.Port())
}

func TestPostgresCredentials(t *testing.T) {
	dsn := startPostgres(t)

	s, err := postgres.NewStore(dsn, poolx.Config{Capacity: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))

	ctx := context.Background()
	userID := idx.New().String()

	err = s.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		repo := s.Credentials()

		empty, err := repo.IsEmpty(ctx, conn)
		require.NoError(t, err)
		require.True(t, empty)

		require.NoError(t, repo.Create(ctx, conn, domain.Credential{
			UserID:     userID,
			Username:   "alice",
			SecretHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
			Status:     domain.AccountActive,
		}))

		err = repo.Create(ctx, conn, domain.Credential{
			UserID:     idx.New().String(),
			Username:   "alice",
			SecretHash: "x",
			Status:     domain.AccountActive,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		got, err := repo.GetByUsername(ctx, conn, "alice")
		require.NoError(t, err)
		require.Equal(t, userID, got.UserID)
		require.Equal(t, domain.AccountActive, got.Status)

		_, err = repo.GetByUsername(ctx, conn, "ghost")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, repo.RecordFailure(ctx, conn, userID))
		got, err = repo.GetByUsername(ctx, conn, "alice")
		require.NoError(t, err)
		require.Equal(t, 1, got.FailedLogins)
		require.NotNil(t, got.LastFailureAt)

		require.NoError(t, repo.ClearFailures(ctx, conn, userID))
		require.NoError(t, repo.SetStatus(ctx, conn, userID, domain.AccountLocked))

		got, err = repo.GetByUsername(ctx, conn, "alice")
		require.NoError(t, err)
		require.Zero(t, got.FailedLogins)
		require.Equal(t, domain.AccountLocked, got.Status)
		return nil
	})
	require.NoError(t, err)
}
