package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	errMissingRequestID = errors.New("missing Ax-Request-Id")
	errBadRequestID     = errors.New("invalid Ax-Request-Id format")
	errMissingRequestAt = errors.New("missing Ax-Request-At")
	errBadRequestAt     = errors.New("Ax-Request-At must be epoch seconds, epoch milliseconds or RFC3339 with zone")
	errSkewedRequestAt  = errors.New("Ax-Request-At too skewed")
)

// submission is one stored entry. Pending marks a claim whose handler has
// not finished; it expires after the claim TTL if the process dies.
type submission struct {
	Pending   bool      `json:"pending"`
	Code      int       `json:"code,omitempty"`
	Body      []byte    `json:"body,omitempty"`
	Digest    string    `json:"digest"`
	RequestAt time.Time `json:"request_at"`
	StoredAt  time.Time `json:"stored_at"`
}

func (s submission) replayable() bool { return !s.Pending && s.Code != 0 && len(s.Body) > 0 }

type replayStore struct {
	rdb      *redis.Client
	claimTTL time.Duration
	ttl      time.Duration
}

func replayKey(method, route, requestID string) string {
	return "idemp:" + strings.ToLower(method) + ":" + route + ":" + requestID
}

// claim writes a pending entry only if the key is free.
func (s *replayStore) claim(ctx context.Context, key string, sub submission) (bool, error) {
	raw, err := json.Marshal(sub)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, raw, s.claimTTL).Result()
}

func (s *replayStore) get(ctx context.Context, key string) (submission, error) {
	var sub submission
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return sub, err
	}
	err = json.Unmarshal(raw, &sub)
	return sub, err
}

func (s *replayStore) complete(ctx context.Context, key string, sub submission) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, raw, s.ttl).Err()
}

func (s *replayStore) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// parseRequestID lowercases the header and accepts a dashed RFC 4122 UUID
// (versions 1 to 7) or 32 hex characters.
func parseRequestID(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	switch len(id) {
	case 0:
		return "", errMissingRequestID
	case 32, 36:
	default:
		return "", errBadRequestID
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", errBadRequestID
	}
	if len(id) == 36 && (u.Variant() != uuid.RFC4122 || u.Version() < 1 || u.Version() > 7) {
		return "", errBadRequestID
	}
	return id, nil
}

// parseRequestAt reads Ax-Request-At as epoch seconds, epoch milliseconds or
// RFC3339 with an explicit zone, and rejects values further than skew from now.
func parseRequestAt(raw string, now time.Time, skew time.Duration) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errMissingRequestAt
	}
	var at time.Time
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			at = time.UnixMilli(n)
		} else {
			at = time.Unix(n, 0)
		}
	} else {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return time.Time{}, errBadRequestAt
		}
		at = t
	}
	at = at.UTC()
	if d := now.Sub(at); d > skew || d < -skew {
		return at, errSkewedRequestAt
	}
	return at, nil
}
