package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bifrostlabs/heimdall/internal/domain"
	"github.com/bifrostlabs/heimdall/internal/store"
	"github.com/bifrostlabs/heimdall/pkg/cryptox"
	"github.com/bifrostlabs/heimdall/pkg/poolx"
	"github.com/bifrostlabs/heimdall/pkg/slogx"
)

// dummyHash is a valid argon2 encoding of a random secret. Verification
// against it always fails, it exists so unknown usernames burn the same
// hashing work as a wrong secret and stay indistinguishable by timing.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$t0YoFJIJ3qMbG1fyk1TVY+86Yq+AF+f0go0CuBE1ZFI"

// CredentialService verifies presented secrets against stored credential
// records. It runs on the caller's leased connection and updates the
// failed-attempt counters as a side effect.
type CredentialService struct {
	Store  store.Store
	Pepper string
}

// Verify looks up username and checks secret against the stored hash.
// Unknown username and wrong secret both return ErrInvalidCredentials.
// Disabled and locked accounts return ErrAccountUnavailable even when the
// secret is correct. The presented secret is never logged.
func (s *CredentialService) Verify(ctx context.Context, conn *poolx.Conn, username, secret string) (domain.Credential, error) {
	l := slogx.FromContext(ctx)
	repo := s.Store.Credentials()

	cred, err := repo.GetByUsername(ctx, conn, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifySecret(secret, s.Pepper, dummyHash)
			l.Info("credential check failed", slog.String("username", username), slog.String("reason", "unknown_username"))
			return domain.Credential{}, ErrInvalidCredentials
		}
		return domain.Credential{}, err
	}

	if !cred.Status.Available() {
		l.Info("credential check failed",
			slog.String("username", username),
			slog.String("reason", "account_unavailable"),
			slog.String("status", string(cred.Status)),
		)
		return domain.Credential{}, ErrAccountUnavailable
	}

	if err := cryptox.VerifySecret(secret, s.Pepper, cred.SecretHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			if rerr := repo.RecordFailure(ctx, conn, cred.UserID); rerr != nil {
				l.Warn("failed to record login failure", "error", rerr)
			}
			l.Info("credential check failed", slog.String("username", username), slog.String("reason", "secret_mismatch"))
			return domain.Credential{}, ErrInvalidCredentials
		}
		return domain.Credential{}, err
	}

	if cred.FailedLogins > 0 {
		if cerr := repo.ClearFailures(ctx, conn, cred.UserID); cerr != nil {
			l.Warn("failed to clear login failures", "error", cerr)
		}
	}

	return cred, nil
}
