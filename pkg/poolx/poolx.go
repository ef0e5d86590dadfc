// Package poolx provides a bounded database connection pool over
// database/sql dedicated connections. database/sql already pools, but its
// pool grows lazily and blocks without a tight bound on wait time; poolx
// layers a fixed capacity and an explicit acquire timeout over it so that
// overload turns into a fast typed error instead of an unbounded queue.
package poolx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrAcquireTimeout reports that no connection freed up within the
	// configured acquire timeout. Callers usually surface this as an
	// "unavailable" condition rather than a hard failure.
	ErrAcquireTimeout = errors.New("poolx: acquire timed out")

	// ErrClosed reports use of a pool after Close.
	ErrClosed = errors.New("poolx: pool is closed")
)

// Config tunes the pool.
type Config struct {
	// Capacity is the maximum number of concurrently leased connections.
	// Defaults to 8.
	Capacity int

	// AcquireTimeout bounds how long Acquire waits for a free slot when
	// the pool is exhausted. Defaults to 5s. The context passed to
	// Acquire can cut the wait shorter but never extend it.
	AcquireTimeout time.Duration
}

// Pool hands out exclusively-owned connections up to a fixed capacity.
// Acquire blocks while the pool is exhausted, Release returns the slot.
// The pool is safe for concurrent use.
type Pool struct {
	db      *sql.DB
	slots   chan struct{}
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// New wraps db in a bounded pool. The underlying database/sql limits are
// aligned with the pool capacity so the two layers never disagree about how
// many connections exist.
func New(db *sql.DB, cfg Config) (*Pool, error) {
	if db == nil {
		return nil, fmt.Errorf("poolx: db is required")
	}

	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 8
	}
	timeout := cfg.AcquireTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	db.SetMaxOpenConns(capacity)
	db.SetMaxIdleConns(capacity)

	slots := make(chan struct{}, capacity)
	for i := 0; i < capacity; i++ {
		slots <- struct{}{}
	}

	return &Pool{db: db, slots: slots, timeout: timeout}, nil
}

// Capacity returns the maximum number of concurrently leased connections.
func (p *Pool) Capacity() int { return cap(p.slots) }

// Available returns the number of free slots. Informational only, the value
// can be stale by the time the caller acts on it.
func (p *Pool) Available() int { return len(p.slots) }

// Acquire leases a dedicated connection. It blocks until a slot frees up,
// the acquire timeout elapses (ErrAcquireTimeout) or ctx is cancelled. The
// returned connection is owned exclusively by the caller until Release.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Unlock()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-p.slots:
	case <-timer.C:
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.slots <- struct{}{}
		return nil, fmt.Errorf("poolx: open connection: %w", err)
	}

	return &Conn{pool: p, conn: conn}, nil
}

// WithConn runs fn with a leased connection and releases it on every exit
// path, including panics and errors from fn.
func (p *Pool) WithConn(ctx context.Context, fn func(conn *Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return fn(conn)
}

// Close marks the pool closed and closes the underlying handle. In-flight
// connections finish their work; new Acquire calls fail with ErrClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

// Conn is a leased connection. It is owned by exactly one operation at a
// time and must be released exactly once; extra Release calls are no-ops.
type Conn struct {
	pool *Pool
	conn *sql.Conn

	mu       sync.Mutex
	released bool
	broken   bool
}

// QueryRowContext runs a single-row query on the leased connection.
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

// QueryContext runs a query on the leased connection.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	c.noteError(err)
	return rows, err
}

// ExecContext runs a statement on the leased connection.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.conn.ExecContext(ctx, query, args...)
	c.noteError(err)
	return res, err
}

// BeginTx starts a transaction pinned to the leased connection.
func (c *Conn) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := c.conn.BeginTx(ctx, opts)
	c.noteError(err)
	return tx, err
}

// Discard marks the connection broken so Release drops it instead of
// returning it for reuse. Call it after an error that indicates the
// underlying session is no longer usable.
func (c *Conn) Discard() {
	c.mu.Lock()
	c.broken = true
	c.mu.Unlock()
}

// Release returns the slot to the pool. Broken connections are closed hard
// so the next lease opens a fresh session. Safe to call more than once and
// safe after errors.
func (c *Conn) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	broken := c.broken
	c.mu.Unlock()

	if broken {
		// Raw with a bad-conn error makes database/sql discard the
		// underlying session instead of recycling it.
		_ = c.conn.Raw(func(any) error { return driver.ErrBadConn })
	}
	_ = c.conn.Close()

	c.pool.slots <- struct{}{}
}

func (c *Conn) noteError(err error) {
	if err == nil || errors.Is(err, sql.ErrNoRows) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if errors.Is(err, driver.ErrBadConn) {
		c.Discard()
	}
}
