package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisIdempotencyBeginScript = redis.NewScript(`
local key = KEYS[1]
local fingerprint = ARGV[1]
local ttl_ms = ARGV[2]

if redis.call("EXISTS", key) == 0 then
  redis.call("HSET", key, "fingerprint", fingerprint, "status", "new")
  redis.call("PEXPIRE", key, ttl_ms)
  return {"new"}
end
if redis.call("HGET", key, "fingerprint") ~= fingerprint then
  return {"conflict"}
end
if redis.call("HGET", key, "status") == "completed" then
  return {"replay", redis.call("HGET", key, "response_status") or "", redis.call("HGET", key, "content_type") or "", redis.call("HGET", key, "response_body") or ""}
end
return {"in_progress"}
`)

var redisIdempotencyCompleteScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("HGET", key, "fingerprint") ~= ARGV[1] then
  return 0
end
redis.call("HSET", key, "status", "completed", "response_status", ARGV[3], "content_type", ARGV[4], "response_body", ARGV[5])
redis.call("PEXPIRE", key, ARGV[2])
return 1
`)

var redisIdempotencyAbandonScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("HGET", key, "fingerprint") == ARGV[1] and redis.call("HGET", key, "status") ~= "completed" then
  return redis.call("DEL", key)
end
return 0
`)

type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = "fleet:idem"
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

func (s *RedisIdempotencyStore) redisKey(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, scope, key)
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	raw, err := redisIdempotencyBeginScript.Run(ctx, s.client,
		[]string{s.redisKey(scope, key)},
		fingerprint, ttl.Milliseconds(),
	).Slice()
	if err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("idempotency begin: %w", err)
	}
	if len(raw) == 0 {
		return IdempotencyBeginResult{}, fmt.Errorf("idempotency begin: empty script result")
	}
	return decodeRedisBegin(raw)
}

func decodeRedisBegin(values []interface{}) (IdempotencyBeginResult, error) {
	state := IdempotencyState(asString(values[0]))
	switch state {
	case IdempotencyStateNew, IdempotencyStateConflict, IdempotencyStateInProgress:
		return IdempotencyBeginResult{State: state}, nil
	case IdempotencyStateReplay:
		if len(values) < 4 {
			return IdempotencyBeginResult{}, fmt.Errorf("idempotency begin: short replay payload")
		}
		status, err := strconv.Atoi(asString(values[1]))
		if err != nil {
			return IdempotencyBeginResult{}, fmt.Errorf("parse replay status: %w", err)
		}
		body, err := base64.StdEncoding.DecodeString(asString(values[3]))
		if err != nil {
			return IdempotencyBeginResult{}, fmt.Errorf("decode replay body: %w", err)
		}
		return IdempotencyBeginResult{
			State:  IdempotencyStateReplay,
			Cached: &CachedHTTPResponse{StatusCode: status, ContentType: asString(values[2]), Body: body},
		}, nil
	default:
		return IdempotencyBeginResult{}, fmt.Errorf("unknown idempotency state %q", state)
	}
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	return redisIdempotencyCompleteScript.Run(ctx, s.client,
		[]string{s.redisKey(scope, key)},
		fingerprint,
		ttl.Milliseconds(),
		response.StatusCode,
		response.ContentType,
		base64.StdEncoding.EncodeToString(response.Body),
	).Err()
}

func (s *RedisIdempotencyStore) Abandon(ctx context.Context, scope, key, fingerprint string) error {
	return redisIdempotencyAbandonScript.Run(ctx, s.client, []string{s.redisKey(scope, key)}, fingerprint).Err()
}

func asString(v interface{}) string {
	switch typed := v.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(v)
	}
}
