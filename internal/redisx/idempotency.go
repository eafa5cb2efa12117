package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInFlight  = errors.New("request with this idempotency key is still in flight")
	ErrKeyReused = errors.New("idempotency key reused with a different request")
)

// KV is the subset of redis commands the idempotency store needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// StoredResponse is what a replay writes back verbatim.
type StoredResponse struct {
	Fingerprint string          `json:"fingerprint"`
	Status      int             `json:"status,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	Done        bool            `json:"done"`
}

type Idempotency struct {
	kv  KV
	ttl time.Duration
}

func NewIdempotency(kv KV, ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Idempotency{kv: kv, ttl: ttl}
}

// Begin claims key for a request with the given fingerprint. When the key was
// already completed the stored response is returned for replay. A key that is
// claimed but not completed yields ErrInFlight.
func (i *Idempotency) Begin(ctx context.Context, key, fingerprint string) (*StoredResponse, error) {
	marker, err := json.Marshal(StoredResponse{Fingerprint: fingerprint})
	if err != nil {
		return nil, err
	}
	claimed, err := i.kv.SetNX(ctx, key, marker, i.ttl).Result()
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, nil
	}

	raw, err := i.kv.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls; treat as a fresh claim next time.
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, err
	}
	var stored StoredResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	if stored.Fingerprint != fingerprint {
		return nil, ErrKeyReused
	}
	if !stored.Done {
		return nil, ErrInFlight
	}
	return &stored, nil
}

func (i *Idempotency) Complete(ctx context.Context, key, fingerprint string, status int, body []byte) error {
	raw, err := json.Marshal(StoredResponse{Fingerprint: fingerprint, Status: status, Body: body, Done: true})
	if err != nil {
		return err
	}
	return i.kv.Set(ctx, key, raw, i.ttl).Err()
}

// Abandon drops the claim so the client may retry a request that failed.
func (i *Idempotency) Abandon(ctx context.Context, key string) error {
	return i.kv.Del(ctx, key).Err()
}
