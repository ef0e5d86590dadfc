package store

import (
	"context"
	"errors"

	"github.com/bifrostlabs/heimdall/internal/domain"
	"github.com/bifrostlabs/heimdall/pkg/poolx"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (postgres for
// deployments, sqlite for development and tests) implement this. Queries run
// on explicitly leased pool connections so a request's database work is
// pinned to one session for its whole lifetime.
type Store interface {
	Credentials() Credentials

	// Pool exposes the bounded connection pool. Callers lease through it
	// and pass the leased connection into repository calls.
	Pool() *poolx.Pool

	ApplyMigrations() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error

	// Close releases the pool and the underlying database handle.
	Close() error
}

// Credentials is the user identity repository. Every method runs on the
// caller's leased connection and never holds it beyond the call.
type Credentials interface {
	// GetByUsername returns the credential record for a username.
	GetByUsername(ctx context.Context, conn *poolx.Conn, username string) (domain.Credential, error)

	// Create inserts a new credential (user_id is provided by the app via ULID).
	Create(ctx context.Context, conn *poolx.Conn, c domain.Credential) error

	// RecordFailure bumps the failed-login counter and failure timestamp.
	RecordFailure(ctx context.Context, conn *poolx.Conn, userID string) error

	// ClearFailures resets the failed-login counter after a successful login.
	ClearFailures(ctx context.Context, conn *poolx.Conn, userID string) error

	// SetStatus updates the account status (active, disabled, locked).
	SetStatus(ctx context.Context, conn *poolx.Conn, userID string, status domain.AccountStatus) error

	// IsEmpty returns true if there are no credentials.
	IsEmpty(ctx context.Context, conn *poolx.Conn) (bool, error)
}
