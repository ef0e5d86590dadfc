package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bifrostlabs/heimdall/internal/domain"
	"github.com/bifrostlabs/heimdall/internal/store"
	"github.com/bifrostlabs/heimdall/pkg/poolx"
)

type credentialsRepo struct{}

func (r *credentialsRepo) GetByUsername(ctx context.Context, conn *poolx.Conn, username string) (domain.Credential, error) {
	row := conn.QueryRowContext(ctx, `
		SELECT user_id, username, secret_hash, status, failed_logins, last_failure_at, created_at, updated_at
		FROM credentials
		WHERE username = ?`, username)

	return scanCredential(row)
}

func (r *credentialsRepo) Create(ctx context.Context, conn *poolx.Conn, c domain.Credential) error {
	now := time.Now().UTC()
	_, err := conn.ExecContext(ctx, `
		INSERT INTO credentials (user_id, username, secret_hash, status, failed_logins, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		c.UserID, c.Username, c.SecretHash, string(c.Status), now, now)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *credentialsRepo) RecordFailure(ctx context.Context, conn *poolx.Conn, userID string) error {
	res, err := conn.ExecContext(ctx, `
		UPDATE credentials
		SET failed_logins = failed_logins + 1, last_failure_at = ?, updated_at = ?
		WHERE user_id = ?`,
		time.Now().UTC(), time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRowChanged(res)
}

func (r *credentialsRepo) ClearFailures(ctx context.Context, conn *poolx.Conn, userID string) error {
	res, err := conn.ExecContext(ctx, `
		UPDATE credentials
		SET failed_logins = 0, last_failure_at = NULL, updated_at = ?
		WHERE user_id = ?`,
		time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRowChanged(res)
}

func (r *credentialsRepo) SetStatus(ctx context.Context, conn *poolx.Conn, userID string, status domain.AccountStatus) error {
	res, err := conn.ExecContext(ctx, `
		UPDATE credentials
		SET status = ?, updated_at = ?
		WHERE user_id = ?`,
		string(status), time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRowChanged(res)
}

func (r *credentialsRepo) IsEmpty(ctx context.Context, conn *poolx.Conn) (bool, error) {
	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func scanCredential(row *sql.Row) (domain.Credential, error) {
	var (
		c             domain.Credential
		status        string
		lastFailureAt sql.NullTime
	)
	err := row.Scan(&c.UserID, &c.Username, &c.SecretHash, &status, &c.FailedLogins, &lastFailureAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}

	c.Status = domain.AccountStatus(status)
	if lastFailureAt.Valid {
		t := lastFailureAt.Time
		c.LastFailureAt = &t
	}
	return c, nil
}

func requireRowChanged(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
