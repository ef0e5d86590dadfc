package auth_test

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	authv1 "github.com/bifrostlabs/heimdall/api/gen/go/auth/v1"
	"github.com/bifrostlabs/heimdall/internal/app"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

/*
 * End-to-end tests run the full application (config, migrations, key
 * generation, interceptors, gRPC surface) against an in-memory listener and
 * an in-memory sqlite database. No external services required.
 */

const bufSize = 1 << 20

type testApp struct {
	app  *app.Application
	conn *grpc.ClientConn
}

// startApp boots a full application in test mode, seeds the development
// credentials and returns a connected client.
func startApp(t *testing.T) *testApp {
	t.Helper()

	t.Setenv("HEIMDALL_ENV", "test")
	t.Setenv("HEIMDALL_DB_FILE", t.Name())
	t.Setenv("HEIMDALL_PEPPER_FILE", filepath.Join(t.TempDir(), "pepper"))
	t.Setenv("HEIMDALL_ACCESS_TTL", "1m")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)

	application, err := app.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, application.SeedDatabase(ctx))

	lis := bufconn.Listen(bufSize)
	go func() { _ = application.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		_ = application.Shutdown()
	})

	return &testApp{app: application, conn: conn}
}

func (ta *testApp) authClient() authv1.AuthServiceClient {
	return authv1.NewAuthServiceClient(ta.conn)
}

func (ta *testApp) healthClient() healthv1.HealthClient {
	return healthv1.NewHealthClient(ta.conn)
}
