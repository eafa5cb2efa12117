package httpx

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-order-workflows/internal/apperr"
	"github.com/ariefcatur/go-order-workflows/internal/auth"
	"github.com/ariefcatur/go-order-workflows/internal/config"
	"github.com/ariefcatur/go-order-workflows/internal/logger"
	"github.com/ariefcatur/go-order-workflows/internal/metrics"
	"github.com/ariefcatur/go-order-workflows/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.body != nil {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

// Logging seeds the request logger with the request id and records the
// request in the log and in metrics under its route pattern.
func Logging(log *logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := log.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
			ctx = log.WithFields(ctx, map[string]any{"method": r.Method, "path": r.URL.Path})

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			log.Info(ctx, "request.start")

			next.ServeHTTP(rec, r.WithContext(ctx))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.ObserveRequest(route, rec.status, elapsed)
			log.Info(log.WithFields(ctx, map[string]any{
				"status":      rec.status,
				"duration_ms": elapsed.Milliseconds(),
			}), "request.complete")
		})
	}
}

func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					err := fmt.Errorf("panic: %v", rec)
					WriteError(r.Context(), log, w, apperr.Wrap(apperr.CodeInternal, err, "panic"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

var errLoginRequired = apperr.New(apperr.CodeUnauthorized, "Please login first")

// Authenticate requires a valid bearer token and puts its claims in the context.
func Authenticate(cfg config.JWTConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				WriteError(r.Context(), log, w, errLoginRequired)
				return
			}
			claims, err := auth.Parse(cfg, strings.TrimSpace(token))
			if err != nil {
				WriteError(r.Context(), log, w, apperr.Wrap(apperr.CodeUnauthorized, err, "Invalid or expired token"))
				return
			}
			ctx := log.WithUserID(withClaims(r.Context(), claims), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAdmin(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ClaimsFrom(r.Context()).IsAdmin() {
				WriteError(r.Context(), log, w, apperr.New(apperr.CodeForbidden, "Admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit counts requests per client IP. The limiter fails open: when Redis
// is unreachable the request is served and a warning logged.
func RateLimit(l *redisx.Limiter, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), clientIP(r))
			if err != nil {
				log.Warn(log.WithField(r.Context(), "error", err.Error()), "ratelimit.unavailable")
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			if !d.Allowed {
				WriteError(r.Context(), log, w, apperr.New(apperr.CodeRateLimit, "Too many requests from this IP, please try again later."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

const idempotencyHeader = "Idempotency-Key"

// Idempotent replays the stored response when a request repeats an
// Idempotency-Key already completed by the same user. Requests without the
// header pass straight through. Only successful responses are stored; a
// failed attempt releases the key so the client can retry.
func Idempotent(idem *redisx.Idempotency, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if idem == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				WriteError(ctx, log, w, apperr.Wrap(apperr.CodeValidation, err, "Invalid request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(sum[:])
			key := redisx.IdemOrderCreateKey(userID(ctx), clientKey)

			stored, err := idem.Begin(ctx, key, fingerprint)
			switch {
			case errors.Is(err, redisx.ErrKeyReused):
				WriteError(ctx, log, w, apperr.New(apperr.CodeIdempotency, "Idempotency-Key reused with a different request body"))
				return
			case errors.Is(err, redisx.ErrInFlight):
				WriteError(ctx, log, w, apperr.New(apperr.CodeConflict, "A request with this Idempotency-Key is still being processed"))
				return
			case err != nil:
				WriteError(ctx, log, w, apperr.Wrap(apperr.CodeDependency, err, "Idempotency store unavailable"))
				return
			case stored != nil:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			// Detached: the order exists even if the client went away.
			saveCtx := context.WithoutCancel(ctx)
			finished := false
			defer func() {
				if finished {
					return
				}
				// The handler panicked; free the key before Recoverer answers.
				if err := idem.Abandon(saveCtx, key); err != nil {
					log.Warn(log.WithField(ctx, "error", err.Error()), "idempotency.release_failed")
				}
			}()

			rec := &statusRecorder{ResponseWriter: w, body: &bytes.Buffer{}}
			next.ServeHTTP(rec, r)
			finished = true

			if rec.status >= 200 && rec.status < 300 {
				if err := idem.Complete(saveCtx, key, fingerprint, rec.status, rec.body.Bytes()); err != nil {
					log.Warn(log.WithField(ctx, "error", err.Error()), "idempotency.save_failed")
				}
				return
			}
			if err := idem.Abandon(saveCtx, key); err != nil {
				log.Warn(log.WithField(ctx, "error", err.Error()), "idempotency.release_failed")
			}
		})
	}
}
