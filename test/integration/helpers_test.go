package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pahfm/fleet-backend/internal/clock"
	"github.com/pahfm/fleet-backend/internal/config"
	"github.com/pahfm/fleet-backend/internal/database"
	"github.com/pahfm/fleet-backend/internal/domain"
	"github.com/pahfm/fleet-backend/internal/http/handler"
	"github.com/pahfm/fleet-backend/internal/http/middleware"
	"github.com/pahfm/fleet-backend/internal/http/router"
	"github.com/pahfm/fleet-backend/internal/repository"
	"github.com/pahfm/fleet-backend/internal/service"
)

type envelope struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type fleetTestServerOptions struct {
	cfgOverride func(cfg *config.Config)
}

type fleetTestServer struct {
	baseURL string
	client  *http.Client
	db      *gorm.DB
	clock   *clock.FakeClock
}

func newFleetTestServer(t *testing.T) (*fleetTestServer, func()) {
	return newFleetTestServerWithOptions(t, fleetTestServerOptions{})
}

func newFleetTestServerWithOptions(t *testing.T, opts fleetTestServerOptions) (*fleetTestServer, func()) {
	t.Helper()
	cfg := &config.Config{
		Env:                  "test",
		TokenExpiration:      domain.DefaultTokenExpiration,
		VerificationBaseURL:  "http://fleet.test",
		TokenRateLimitPerMin: 1000,
		IdempotencyTTL:       time.Hour,
	}
	if opts.cfgOverride != nil {
		opts.cfgOverride(cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.Fake(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	confirmations := service.NewConfirmationService(repository.NewVerificationTokenRepository(db), clk, cfg.TokenExpiration, log)
	drives := service.NewDriveService(repository.NewDriveRepository(db), service.NewLogDriveCreatedNotifier(log), clk, cfg.TokenExpiration, cfg.VerificationBaseURL, log)

	h := router.NewRouter(router.Dependencies{
		TokenHandler:     handler.NewVerificationTokenHandler(confirmations, log),
		DriveHandler:     handler.NewDriveHandler(drives, cfg.VerificationBaseURL, log),
		TokenRateLimiter: middleware.NewLocalFixedWindowLimiter(clk),
		TokenRateLimitPM: cfg.TokenRateLimitPerMin,
		RateLimitMode:    middleware.FailOpen,
		IdempotencyStore: service.NewInMemoryIdempotencyStore(),
		IdempotencyTTL:   cfg.IdempotencyTTL,
		Logger:           log,
	})
	srv := httptest.NewServer(h)
	return &fleetTestServer{baseURL: srv.URL, client: srv.Client(), db: db, clock: clk}, srv.Close
}

func (s *fleetTestServer) seedToken(t *testing.T) uuid.UUID {
	t.Helper()
	driver := domain.Driver{Email: uuid.NewString() + "@example.com", Name: "Driver"}
	if err := s.db.Create(&driver).Error; err != nil {
		t.Fatalf("create driver: %v", err)
	}
	passenger := domain.Passenger{FirstName: "Ada", LastName: "Passenger", Email: "ada@example.com"}
	if err := s.db.Create(&passenger).Error; err != nil {
		t.Fatalf("create passenger: %v", err)
	}
	drive := domain.Drive{DriverID: driver.ID, StartLocation: "Depot", EndLocation: "Airport"}
	if err := s.db.Create(&drive).Error; err != nil {
		t.Fatalf("create drive: %v", err)
	}
	tok := domain.VerificationToken{Token: uuid.New(), DriveID: drive.ID, PassengerID: passenger.ID, CreatedAt: s.clock.Now()}
	if err := s.db.Create(&tok).Error; err != nil {
		t.Fatalf("create token: %v", err)
	}
	return tok.Token
}

func doRawText(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(raw)
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	resp, raw := doRawText(t, client, method, url, body, headers)
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%q", err, raw)
	}
	return resp, env
}
