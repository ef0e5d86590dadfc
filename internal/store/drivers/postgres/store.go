package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bifrostlabs/heimdall/internal/store"
	"github.com/bifrostlabs/heimdall/pkg/poolx"

	"github.com/lib/pq"
)

// Store is the postgres driver, used for production deployments.
type Store struct {
	db   *sql.DB
	pool *poolx.Pool
	dsn  string
}

func NewStore(dsn string, poolCfg poolx.Config) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	pool, err := poolx.New(db, poolCfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
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

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapAlreadyExists(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return store.ErrAlreadyExists
	}
	return err
}
