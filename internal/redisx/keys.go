package redisx

import (
	"fmt"
	"time"
)

const (
	// idem:order:create:{user_id}:{idempotency_key} -> stored response
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// ratelimit:{scope}:{client}:{window_start_unix} -> request count
	KeyRateLimit = "ratelimit:%s:%s:%d"
)

func IdemOrderCreateKey(userID, key string) string {
	return fmt.Sprintf(KeyIdemOrderCreate, userID, key)
}

// RateLimitKey buckets now into fixed windows so every key expires on its own.
func RateLimitKey(scope, client string, window time.Duration, now time.Time) string {
	start := now.Truncate(window).Unix()
	return fmt.Sprintf(KeyRateLimit, scope, client, start)
}
