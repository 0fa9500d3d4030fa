package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestProblemDetailsContentNegotiation_DefaultEnvelope(t *testing.T) {
	srv, closeFn := newFleetTestServer(t)
	defer closeFn()

	resp, env := doJSON(t, srv.client, http.MethodGet, srv.baseURL+"/verification-token/"+uuid.NewString(), nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json content type, got %q", got)
	}
	if env.Success || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected envelope NOT_FOUND, got %#v", env.Error)
	}
}

func TestProblemDetailsConsistencyFor404And405(t *testing.T) {
	srv, closeFn := newFleetTestServer(t)
	defer closeFn()
	accept := map[string]string{"Accept": "application/problem+json"}

	path := "/verification-token/" + uuid.NewString()
	resp, body := doRawText(t, srv.client, http.MethodGet, srv.baseURL+path, nil, accept)
	assertProblemDetails(t, resp, body, http.StatusNotFound, "NOT_FOUND", "Not Found", path)

	path = "/verification-token/" + srv.seedToken(t).String()
	resp, body = doRawText(t, srv.client, http.MethodDelete, srv.baseURL+path, nil, accept)
	assertProblemDetails(t, resp, body, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method Not Allowed", path)
}

func TestFieldErrorsAreNotWrapped(t *testing.T) {
	srv, closeFn := newFleetTestServer(t)
	defer closeFn()

	url := srv.baseURL + "/verification-token/" + srv.seedToken(t).String()
	resp, body := doRawText(t, srv.client, http.MethodPatch, url, `{"isOk":true}`, map[string]string{
		"Accept": "application/problem+json",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%q", resp.StatusCode, body)
	}
	var fields map[string][]string
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		t.Fatalf("decode field errors: %v body=%q", err, body)
	}
	if len(fields) != 1 || len(fields["comment"]) != 1 {
		t.Fatalf("expected only a comment error, got %v", fields)
	}
}

func assertProblemDetails(t *testing.T, resp *http.Response, raw string, wantStatus int, wantCode, wantTitle, wantInstance string) {
	t.Helper()
	if resp.StatusCode != wantStatus {
		t.Fatalf("expected status %d, got %d body=%q", wantStatus, resp.StatusCode, raw)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/problem+json" {
		t.Fatalf("expected application/problem+json, got %q body=%q", got, raw)
	}
	var p struct {
		Type      string `json:"type"`
		Title     string `json:"title"`
		Status    int    `json:"status"`
		Detail    string `json:"detail"`
		Instance  string `json:"instance"`
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode problem details: %v body=%q", err, raw)
	}
	if p.Status != wantStatus {
		t.Fatalf("unexpected status field: %d", p.Status)
	}
	if p.Code != wantCode {
		t.Fatalf("unexpected code field: %q", p.Code)
	}
	if p.Title != wantTitle {
		t.Fatalf("unexpected title field: %q", p.Title)
	}
	if p.Instance != wantInstance {
		t.Fatalf("unexpected instance field: %q", p.Instance)
	}
	if p.Type != "urn:problem:fleet:"+strings.ToLower(strings.ReplaceAll(wantCode, "_", "-")) {
		t.Fatalf("unexpected type field: %q", p.Type)
	}
	if p.RequestID == "" {
		t.Fatal("expected request_id in problem details")
	}
	if p.Detail == "" {
		t.Fatal("expected detail in problem details")
	}
}
