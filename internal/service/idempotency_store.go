package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type IdempotencyState string

const (
	IdempotencyStateNew        IdempotencyState = "new"
	IdempotencyStateReplay     IdempotencyState = "replay"
	IdempotencyStateConflict   IdempotencyState = "conflict"
	IdempotencyStateInProgress IdempotencyState = "in_progress"
)

type CachedHTTPResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type IdempotencyBeginResult struct {
	State  IdempotencyState
	Cached *CachedHTTPResponse
}

// IdempotencyStore reserves a key for one request fingerprint and remembers
// the response produced for it.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error)
	Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error
	// Abandon releases an in-progress reservation so the key can be retried.
	Abandon(ctx context.Context, scope, key, fingerprint string) error
}

// Fingerprint hashes the parts of a request that must match for a replay.
func Fingerprint(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = h.Write(p)
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type memoryIdempotencyEntry struct {
	fingerprint string
	completed   bool
	response    CachedHTTPResponse
	expiresAt   time.Time
}

type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*memoryIdempotencyEntry
	now     func() time.Time
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		entries: map[string]*memoryIdempotencyEntry{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryIdempotencyStore) Begin(_ context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	now := s.now()
	id := scope + ":" + key
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if ok && now.After(entry.expiresAt) {
		delete(s.entries, id)
		ok = false
	}
	if !ok {
		s.entries[id] = &memoryIdempotencyEntry{fingerprint: fingerprint, expiresAt: now.Add(ttl)}
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}
	if entry.fingerprint != fingerprint {
		return IdempotencyBeginResult{State: IdempotencyStateConflict}, nil
	}
	if !entry.completed {
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
	}
	cached := entry.response
	cached.Body = append([]byte(nil), entry.response.Body...)
	return IdempotencyBeginResult{State: IdempotencyStateReplay, Cached: &cached}, nil
}

func (s *InMemoryIdempotencyStore) Complete(_ context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	id := scope + ":" + key
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok || entry.fingerprint != fingerprint {
		return nil
	}
	entry.completed = true
	entry.response = CachedHTTPResponse{
		StatusCode:  response.StatusCode,
		ContentType: response.ContentType,
		Body:        append([]byte(nil), response.Body...),
	}
	entry.expiresAt = s.now().Add(ttl)
	return nil
}

func (s *InMemoryIdempotencyStore) Abandon(_ context.Context, scope, key, fingerprint string) error {
	id := scope + ":" + key
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[id]; ok && entry.fingerprint == fingerprint && !entry.completed {
		delete(s.entries, id)
	}
	return nil
}
