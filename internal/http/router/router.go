package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pahfm/fleet-backend/internal/http/handler"
	"github.com/pahfm/fleet-backend/internal/http/middleware"
	"github.com/pahfm/fleet-backend/internal/http/response"
	"github.com/pahfm/fleet-backend/internal/service"
)

const verificationTokenPatchScope = "verification_token.patch"

type Dependencies struct {
	TokenHandler     *handler.VerificationTokenHandler
	DriveHandler     *handler.DriveHandler
	TokenRateLimiter middleware.Limiter
	TokenRateLimitPM int
	RateLimitMode    middleware.FailureMode
	IdempotencyStore service.IdempotencyStore
	IdempotencyTTL   time.Duration
	Logger           *slog.Logger
}

func NewRouter(dep Dependencies) http.Handler {
	logger := dep.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/verification-token/{token}", func(r chi.Router) {
		if dep.TokenRateLimiter != nil && dep.TokenRateLimitPM > 0 {
			rl := middleware.NewRateLimiter(dep.TokenRateLimiter, dep.TokenRateLimitPM, time.Minute, dep.RateLimitMode, "verification_token", logger)
			r.Use(rl.Middleware())
		}
		r.Get("/", dep.TokenHandler.Get)
		r.With(middleware.Idempotency(dep.IdempotencyStore, verificationTokenPatchScope, dep.IdempotencyTTL, logger)).
			Patch("/", dep.TokenHandler.Patch)
	})

	if dep.DriveHandler != nil {
		r.Post("/drives", dep.DriveHandler.Create)
	}
	return r
}
