package access

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var roleLookupDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "onboard_role_lookup_duration_ms",
	Help:    "Latency of role-set resolution in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
})

// Redis key prefix for cached role-sets
const roleCacheKeyPrefix = "roles:user:"

// CachedDirectory fronts the identity provider with a shared Redis cache so
// every request does not pay a remote role lookup. Cache failures degrade to
// the inner directory; they never fail the request on their own.
type CachedDirectory struct {
	inner  Directory
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedDirectory wraps inner with a Redis role cache.
func NewCachedDirectory(inner Directory, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedDirectory {
	return &CachedDirectory{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (d *CachedDirectory) ResolveRoles(ctx context.Context, userID string) ([]Role, error) {
	start := time.Now()
	defer func() {
		roleLookupDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	key := roleCacheKeyPrefix + userID
	cached, err := d.client.Get(ctx, key).Result()
	if err == nil {
		var roles []Role
		if jsonErr := json.Unmarshal([]byte(cached), &roles); jsonErr == nil {
			return roles, nil
		}
		// Corrupt cache entry: fall through to the authoritative lookup.
	} else if err != redis.Nil {
		d.logger.WarnContext(ctx, "role cache read failed", "error", err)
	}

	roles, err := d.inner.ResolveRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(roles); jsonErr == nil {
		if setErr := d.client.Set(ctx, key, payload, d.ttl).Err(); setErr != nil {
			d.logger.WarnContext(ctx, "role cache write failed", "error", setErr)
		}
	}
	return roles, nil
}
