package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pahfm/fleet-backend/internal/service"
)

type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.status)
	_, _ = w.Write([]byte(`{"echo":` + string(body) + `}`))
}

type failingStore struct{ service.IdempotencyStore }

func (failingStore) Begin(context.Context, string, string, string, time.Duration) (service.IdempotencyBeginResult, error) {
	return service.IdempotencyBeginResult{}, errors.New("store down")
}

func patchRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPatch, "/verification-token/abc", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req
}

func TestIdempotencyReplaysCompletedResponse(t *testing.T) {
	h := &countingHandler{status: http.StatusOK}
	mw := Idempotency(service.NewInMemoryIdempotencyStore(), "verification_token.patch", time.Hour, quietLogger())(h)

	first := httptest.NewRecorder()
	mw.ServeHTTP(first, patchRequest("k1", `1`))
	second := httptest.NewRecorder()
	mw.ServeHTTP(second, patchRequest("k1", `1`))

	if h.calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", h.calls)
	}
	if second.Code != http.StatusOK || second.Body.String() != first.Body.String() {
		t.Fatalf("replay mismatch: %d %q vs %q", second.Code, second.Body.String(), first.Body.String())
	}
	if second.Header().Get(IdempotencyReplayedHeader) != "true" {
		t.Fatal("expected replay header on second response")
	}
	if first.Header().Get(IdempotencyReplayedHeader) != "" {
		t.Fatal("first response must not be marked as replayed")
	}
}

func TestIdempotencyConflictOnDifferentBody(t *testing.T) {
	h := &countingHandler{status: http.StatusOK}
	mw := Idempotency(service.NewInMemoryIdempotencyStore(), "scope", time.Hour, quietLogger())(h)

	mw.ServeHTTP(httptest.NewRecorder(), patchRequest("k1", `1`))
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, patchRequest("k1", `2`))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if h.calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", h.calls)
	}
}

func TestIdempotencyDoesNotRememberFailures(t *testing.T) {
	h := &countingHandler{status: http.StatusBadRequest}
	mw := Idempotency(service.NewInMemoryIdempotencyStore(), "scope", time.Hour, quietLogger())(h)

	mw.ServeHTTP(httptest.NewRecorder(), patchRequest("k1", `1`))
	mw.ServeHTTP(httptest.NewRecorder(), patchRequest("k1", `1`))
	if h.calls != 2 {
		t.Fatalf("expected failed request to be retried, handler ran %d times", h.calls)
	}
}

func TestIdempotencyPassThrough(t *testing.T) {
	h := &countingHandler{status: http.StatusOK}
	mw := Idempotency(service.NewInMemoryIdempotencyStore(), "scope", time.Hour, quietLogger())(h)
	mw.ServeHTTP(httptest.NewRecorder(), patchRequest("", `1`))
	mw.ServeHTTP(httptest.NewRecorder(), patchRequest("", `1`))
	if h.calls != 2 {
		t.Fatalf("requests without a key must always execute, ran %d times", h.calls)
	}

	degraded := Idempotency(failingStore{}, "scope", time.Hour, quietLogger())(h)
	rr := httptest.NewRecorder()
	degraded.ServeHTTP(rr, patchRequest("k1", `1`))
	if rr.Code != http.StatusOK || h.calls != 3 {
		t.Fatalf("expected store failure to fall through, code=%d calls=%d", rr.Code, h.calls)
	}
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	h := &countingHandler{status: http.StatusOK}
	mw := Idempotency(service.NewInMemoryIdempotencyStore(), "scope", time.Hour, quietLogger())(h)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, patchRequest(strings.Repeat("k", 200), `1`))
	if rr.Code != http.StatusBadRequest || h.calls != 0 {
		t.Fatalf("expected 400 without calling handler, code=%d calls=%d", rr.Code, h.calls)
	}
}

func TestIdempotencyReleasesKeyWhenHandlerPanics(t *testing.T) {
	calls := 0
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		w.WriteHeader(http.StatusOK)
	})
	mw := Idempotency(service.NewInMemoryIdempotencyStore(), "scope", time.Hour, quietLogger())(h)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate to outer recoverer")
			}
		}()
		mw.ServeHTTP(httptest.NewRecorder(), patchRequest("k1", `1`))
	}()

	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, patchRequest("k1", `1`))
	if rr.Code != http.StatusOK || calls != 2 {
		t.Fatalf("expected retry after panic to execute, code=%d calls=%d", rr.Code, calls)
	}
}
