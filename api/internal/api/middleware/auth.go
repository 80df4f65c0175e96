package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/bookmarket/addrvault/api/internal/api/respond"
	"github.com/bookmarket/addrvault/api/internal/core/domain"
)

// CallerResolver turns a bearer token into an AuthContext.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, token string) (domain.AuthContext, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

type AuthMiddleware struct {
	resolver CallerResolver
	logger   *slog.Logger
	limit    rate.Limit
	burst    int
	visitors sync.Map
}

// NewAuthMiddleware starts a visitor cleanup loop that runs until ctx is done.
func NewAuthMiddleware(ctx context.Context, resolver CallerResolver, logger *slog.Logger, rps float64, burst int) *AuthMiddleware {
	m := &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
		limit:    rate.Limit(rps),
		burst:    burst,
	}
	go m.cleanupVisitors(ctx)
	return m
}

// ==============================================================================
// 1. Identity
// ==============================================================================

// RequireAuthentication rejects requests without a valid bearer token before
// the body is looked at.
func (m *AuthMiddleware) RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "Unauthorized")
			return
		}

		caller, err := m.resolver.ResolveCaller(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "Invalid token")
				return
			}
			m.logger.ErrorContext(r.Context(), "caller resolution failed", slog.Any("error", err))
			respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, "Internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.WithCaller(r.Context(), caller)))
	})
}

// ==============================================================================
// 2. DoS Protection
// ==============================================================================

func (m *AuthMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr is the socket peer unless the router trusts proxy headers.
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		v, _ := m.visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(m.limit, m.burst)})
		vis := v.(*visitor)
		vis.lastSeen.Store(time.Now().UnixNano())

		if !vis.limiter.Allow() {
			respond.Error(w, http.StatusTooManyRequests, respond.CodeRateLimited, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) cleanupVisitors(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.visitors.Range(func(key, value any) bool {
				seen := time.Unix(0, value.(*visitor).lastSeen.Load())
				if time.Since(seen) > 3*time.Minute {
					m.visitors.Delete(key)
				}
				return true
			})
		}
	}
}

// Only the Authorization header is accepted; cookies would invite CSRF on
// the decrypt endpoint.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}
