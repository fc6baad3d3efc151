package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "donorhub_is_token_revoked_duration_ms",
		Help:    "Latency of token revocation checks in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	})
)

const (
	// Redis key prefix for revoked tokens
	revokedTokenKeyPrefix = "trl:jti:"
)

// RedisTRL is a Redis-backed revocation list shared by every API instance.
// Keys expire with the token, so the list never needs pruning.
type RedisTRL struct {
	client *redis.Client
}

func NewRedisTRL(client *redis.Client) *RedisTRL {
	return &RedisTRL{client: client}
}

// RevokeToken marks jti as revoked for ttl using SET with expiry.
func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	// The key's existence is what matters
	return t.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti is on the list. Missing or expired keys are
// not revoked.
func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if jti == "" {
		return false, nil
	}
	_, err := t.client.Get(ctx, revokedTokenKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
