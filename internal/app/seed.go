package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bifrostlabs/heimdall/internal/domain"
	"github.com/bifrostlabs/heimdall/internal/store"
	"github.com/bifrostlabs/heimdall/pkg/cryptox"
	"github.com/bifrostlabs/heimdall/pkg/idx"
	"github.com/bifrostlabs/heimdall/pkg/poolx"
)

// seedUsers are the development credentials inserted by
// `heimdall database setup -seed`. Never enabled outside development.
var seedUsers = []struct {
	username string
	password string
	status   domain.AccountStatus
}{
	{"admin", "admin-dev-password", domain.AccountActive},
	{"alice", "alice-dev-password", domain.AccountActive},
	{"disabled", "disabled-dev-password", domain.AccountDisabled},
}

// SeedDatabase inserts the development credentials, skipping any username
// that already exists so the command is safe to rerun.
func (app *Application) SeedDatabase(ctx context.Context) error {
	if app.cfg.Env == EnvProduction {
		return fmt.Errorf("refusing to seed a production database")
	}

	return app.db.Pool().WithConn(ctx, func(conn *poolx.Conn) error {
		for _, u := range seedUsers {
			hash, err := cryptox.HashSecret(u.password, app.pepper)
			if err != nil {
				return fmt.Errorf("hash seed secret for %s: %w", u.username, err)
			}

			err = app.db.Credentials().Create(ctx, conn, domain.Credential{
				UserID:     idx.New().String(),
				Username:   u.username,
				SecretHash: hash,
				Status:     u.status,
			})
			if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
				return fmt.Errorf("seed %s: %w", u.username, err)
			}
		}
		return nil
	})
}
