package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pahfm/fleet-backend/internal/http/response"
	"github.com/pahfm/fleet-backend/internal/service"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "X-Idempotency-Replayed"
	maxIdempotencyKeyLength   = 128
	maxIdempotentBodyBytes    = 64 << 10
)

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through untouched. Only 2xx responses are
// remembered; anything else releases the key for a retry.
func Idempotency(store service.IdempotencyStore, scope string, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLength {
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Idempotency-Key too long", nil)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentBodyBytes))
			if err != nil {
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := service.Fingerprint([]byte(r.Method), []byte(r.URL.Path), body)

			begin, err := store.Begin(r.Context(), scope, key, fingerprint, ttl)
			if err != nil {
				logger.WarnContext(r.Context(), "idempotency store unavailable, executing request",
					"scope", scope,
					"error", err.Error(),
				)
				next.ServeHTTP(w, r)
				return
			}
			switch begin.State {
			case service.IdempotencyStateReplay:
				w.Header().Set(IdempotencyReplayedHeader, "true")
				if begin.Cached.ContentType != "" {
					w.Header().Set("Content-Type", begin.Cached.ContentType)
				}
				w.WriteHeader(begin.Cached.StatusCode)
				_, _ = w.Write(begin.Cached.Body)
				return
			case service.IdempotencyStateConflict:
				response.Error(w, r, http.StatusConflict, "CONFLICT", "Idempotency-Key reused with a different request", nil)
				return
			case service.IdempotencyStateInProgress:
				response.Error(w, r, http.StatusConflict, "CONFLICT", "request with this Idempotency-Key is still in progress", nil)
				return
			}

			serveAndRecord(w, r, next, store, scope, key, fingerprint, ttl, logger)
		})
	}
}

// serveAndRecord runs next for a freshly reserved key and settles the
// reservation: 2xx is stored for replay, anything else (a panic included)
// releases the key.
func serveAndRecord(w http.ResponseWriter, r *http.Request, next http.Handler, store service.IdempotencyStore, scope, key, fingerprint string, ttl time.Duration, logger *slog.Logger) {
	abandon := func(ctx context.Context) {
		if err := store.Abandon(ctx, scope, key, fingerprint); err != nil {
			logger.WarnContext(ctx, "idempotency abandon failed", "scope", scope, "error", err.Error())
		}
	}
	defer func() {
		if p := recover(); p != nil {
			abandon(context.WithoutCancel(r.Context()))
			panic(p)
		}
	}()

	rec := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(rec, r)

	if rec.status >= 200 && rec.status < 300 {
		cached := service.CachedHTTPResponse{
			StatusCode:  rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
		}
		if err := store.Complete(r.Context(), scope, key, fingerprint, cached, ttl); err != nil {
			logger.WarnContext(r.Context(), "idempotency complete failed", "scope", scope, "error", err.Error())
		}
		return
	}
	abandon(r.Context())
}

type capturingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buf         bytes.Buffer
}

func (c *capturingWriter) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *capturingWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	c.buf.Write(p)
	return c.ResponseWriter.Write(p)
}
