package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bifrostlabs/heimdall/internal/store"
	"github.com/bifrostlabs/heimdall/pkg/poolx"

	_ "modernc.org/sqlite"
)

// Store is the sqlite driver, used for development runs and tests. It shares
// the same pooled access discipline as the postgres driver even though
// sqlite itself serializes writers.
type Store struct {
	db   *sql.DB
	pool *poolx.Pool
	dsn  string
}

func NewStore(dsn string, poolCfg poolx.Config) (*Store, error) {
	// Pragmas apply per connection, so foreign key enforcement travels in
	// the DSN where every pooled session picks it up.
	dsn = withForeignKeys(dsn)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	pool, err := poolx.New(db, poolCfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	return &Store{db: db, pool: pool, dsn: dsn}, nil
}

func (s *Store) Credentials() store.Credentials { return &credentialsRepo{} }

func (s *Store) Pool() *poolx.Pool { return s.pool }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error { return s.pool.Close() }

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_pragma=foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_pragma=foreign_keys(1)"
	}
	return dsn + "?_pragma=foreign_keys(1)"
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
