// Package grpcx carries shared gRPC server plumbing as unary interceptors:
// request logging, per-peer rate limiting and bearer token authentication.
package grpcx

import (
	"context"
	"log/slog"
	"time"

	"github.com/bifrostlabs/heimdall/pkg/idx"
	"github.com/bifrostlabs/heimdall/pkg/slogx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor logs every unary call and attaches a contextual logger
// carrying the request id into the handler's context. The request id comes
// from the x-request-id metadata header when a client sends one, otherwise a
// fresh ULID is minted.
func LoggingInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		reqID := requestIDFromMetadata(ctx)
		if reqID == "" {
			reqID = idx.New().String()
		}

		logger := base.With(
			"req_id", reqID,
			"method", info.FullMethod,
			"remote_addr", peerAddr(ctx),
		)
		ctx = slogx.WithContext(ctx, logger)

		resp, err := handler(ctx, req)

		code := codes.OK
		if err != nil {
			code = status.Code(err)
		}
		logger.Info("grpc_request",
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get("x-request-id"); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func peerAddr(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	return p.Addr.String()
}
