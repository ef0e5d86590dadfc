// Package app wires configuration, storage, key material and the gRPC
// server into one runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	authv1 "github.com/bifrostlabs/heimdall/api/gen/go/auth/v1"
	"github.com/bifrostlabs/heimdall/internal/revocation"
	"github.com/bifrostlabs/heimdall/internal/rpc"
	"github.com/bifrostlabs/heimdall/internal/service"
	"github.com/bifrostlabs/heimdall/internal/store"
	"github.com/bifrostlabs/heimdall/internal/store/drivers/postgres"
	"github.com/bifrostlabs/heimdall/internal/store/drivers/sqlite"
	"github.com/bifrostlabs/heimdall/pkg/cryptox"
	"github.com/bifrostlabs/heimdall/pkg/grpcx"
	"github.com/bifrostlabs/heimdall/pkg/jwtx"
	"github.com/bifrostlabs/heimdall/pkg/poolx"
	"github.com/bifrostlabs/heimdall/pkg/slogx"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	// BuildVersion is overridden at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	codec      *jwtx.Codec
	revoked    revocation.Checker
	pepper     string

	loginService *service.LoginService
	tokenService *service.TokenService

	server *grpc.Server
	health *health.Server
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "heimdall",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		RSABits:   cfg.RSABits,
		NumKeys:   cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager

	codec, err := jwtx.NewCodec(keyManager, jwtx.CodecOptions{Leeway: cfg.Leeway})
	if err != nil {
		return nil, err
	}
	app.codec = codec

	if err := app.initServices(); err != nil {
		return nil, err
	}
	app.initGRPC()

	return app, nil
}

// Store exposes the data layer, used by the database subcommand.
func (app *Application) Store() store.Store { return app.db }

// Logger exposes the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// TokenService exposes token validation and revocation for embedding hosts.
func (app *Application) TokenService() *service.TokenService { return app.tokenService }

// Serve starts the gRPC server on the given listener and blocks until the
// server stops. Split from Run so tests can serve on an in-memory listener.
func (app *Application) Serve(lis net.Listener) error {
	app.health.SetServingStatus("", healthv1.HealthCheckResponse_SERVING)
	app.logger.Info("heimdall starting", "addr", lis.Addr().String(), "version", BuildVersion, "db_driver", app.cfg.DatabaseDriver)
	return app.server.Serve(lis)
}

// Run starts the listener and blocks until shutdown is requested.
func (app *Application) Run() error {
	addr := fmt.Sprintf(":%d", app.cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.Serve(lis)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests and releases resources.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down heimdall...")

	app.health.SetServingStatus("", healthv1.HealthCheckResponse_NOT_SERVING)

	done := make(chan struct{})
	go func() {
		app.server.GracefulStop()
		close(done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	select {
	case <-done:
	case <-ctx.Done():
		app.logger.Error("graceful server shutdown timed out, forcing stop")
		app.server.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("heimdall stopped")
	return nil
}

func (app *Application) initDatabase() error {
	poolCfg := poolx.Config{
		Capacity:       app.cfg.PoolSize,
		AcquireTimeout: app.cfg.PoolAcquireTimeout,
	}

	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(app.cfg.DatabaseDSN(), poolCfg)
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseDSN(), poolCfg)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.pepper = pepper

	if app.cfg.RedisAddr != "" {
		app.revoked = revocation.NewRedis(redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr}))
	} else {
		app.revoked = revocation.NewMemory()
	}

	credentials := &service.CredentialService{Store: app.db, Pepper: pepper}

	app.loginService = &service.LoginService{
		Store:       app.db,
		Credentials: credentials,
		Codec:       app.codec,
		Issuer:      app.cfg.Issuer,
		Audience:    app.cfg.Audience,
		AccessTTL:   app.cfg.AccessTTL,
		RefreshTTL:  app.cfg.RefreshTTL,
	}
	app.tokenService = &service.TokenService{
		Codec:   app.codec,
		Revoked: app.revoked,
	}
	return nil
}

func (app *Application) initGRPC() {
	app.server = grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcx.LoggingInterceptor(app.logger),
			grpcx.RateLimitInterceptor(grpcx.StrictLimit, authv1.AuthService_Login_FullMethodName),
			grpcx.AuthInterceptor(app.tokenService, authv1.AuthService_Revoke_FullMethodName),
		),
	)

	authv1.RegisterAuthServiceServer(app.server, rpc.NewAuthService(app.loginService, app.tokenService))

	app.health = health.NewServer()
	healthv1.RegisterHealthServer(app.server, app.health)
}
