package grpcx

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RateLimitConfig defines the rate limiting parameters for one method set.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// StrictLimit suits credential-carrying endpoints where throttling doubles
// as brute force protection.
var StrictLimit = RateLimitConfig{
	RequestsPerWindow: 5,
	Window:            time.Minute,
	Burst:             5,
}

// RateLimitInterceptor throttles the listed methods per peer IP. Methods not
// in the set pass through untouched. Throttled calls fail with
// ResourceExhausted before reaching the handler.
func RateLimitInterceptor(cfg RateLimitConfig, methods ...string) grpc.UnaryServerInterceptor {
	limited := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		limited[m] = struct{}{}
	}

	limiters := &peerLimiters{
		limit: rate.Every(cfg.Window / time.Duration(cfg.RequestsPerWindow)),
		burst: cfg.Burst,
		seen:  make(map[string]*peerLimiter),
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := limited[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		if !limiters.allow(peerIP(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, "too many requests")
		}
		return handler(ctx, req)
	}
}

type peerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type peerLimiters struct {
	limit rate.Limit
	burst int

	mu   sync.Mutex
	seen map[string]*peerLimiter
}

func (p *peerLimiters) allow(ip string) bool {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Drop limiters idle long enough to have fully refilled.
	if len(p.seen) > 1024 {
		for key, pl := range p.seen {
			if now.Sub(pl.lastSeen) > 10*time.Minute {
				delete(p.seen, key)
			}
		}
	}

	pl, ok := p.seen[ip]
	if !ok {
		pl = &peerLimiter{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.seen[ip] = pl
	}
	pl.lastSeen = now
	return pl.limiter.Allow()
}

func peerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
