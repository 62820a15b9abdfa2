package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cryptshare/internal/logging"
	"github.com/dmitrijs2005/cryptshare/internal/server/identity"
)

type ctxKey int

const (
	ctxKeyIdentity ctxKey = iota
	ctxKeyLogger
)

// requestLogger returns the per-request logger, falling back to the server
// logger for contexts that never passed through the middleware (tests).
func (s *Server) requestLogger(ctx context.Context) logging.Logger {
	if l, ok := ctx.Value(ctxKeyLogger).(logging.Logger); ok {
		return l
	}
	return s.logger
}

func requestIdentity(ctx context.Context) (identity.Prefix, bool) {
	p, ok := ctx.Value(ctxKeyIdentity).(identity.Prefix)
	return p, ok
}

// withRequestLog attaches a request-scoped logger carrying a fresh request id.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With("request_id", uuid.NewString(), "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyLogger, logger)))
	})
}

// withIdentity resolves the client identity from the connection and the
// forwarded-address chain. Resolution failure means the operator's proxy
// settings do not match reality, which is a server fault.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := identity.Resolve(r.RemoteAddr, r.Header.Get("X-Forwarded-For"), s.config.ProxyDepth)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyIdentity, p)))
	})
}

// withRateLimit admits or rejects against the shared leaky bucket. Rejected
// requests still raise the counter.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := requestIdentity(r.Context())
		if !ok {
			s.writeError(w, r, errMissingIdentity)
			return
		}
		if !s.limiter.Admit(p) {
			s.metrics.IncRateLimited()
			s.writeError(w, r, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
