package invalidate

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/tenqz/videosos/internal/infra"
)

// Channel is the pub/sub channel the UI query layer subscribes to. Messages
// carry the project identifier whose media set changed.
const Channel = "media:invalidate"

// RedisInvalidator publishes project invalidation signals over redis
// pub/sub. Delivery is fire and forget; the receiver may coalesce repeated
// signals for the same project.
type RedisInvalidator struct {
	rdb    *redis.Client
	logger *infra.Logger
}

// NewRedisInvalidator wires a redis client into an invalidator.
func NewRedisInvalidator(rdb *redis.Client, logger *infra.Logger) *RedisInvalidator {
	return &RedisInvalidator{rdb: rdb, logger: logger}
}

// Invalidate publishes the project id. Publish failures are logged only;
// a missed signal is recovered by the receiver's own refresh cycle.
func (i *RedisInvalidator) Invalidate(ctx context.Context, projectID string) {
	if err := i.rdb.Publish(ctx, Channel, projectID).Err(); err != nil {
		i.logger.Warn().Err(err).Str("project_id", projectID).Msg("invalidate: publish failed")
	}
}

// NopInvalidator drops every signal. Used when no redis address is
// configured.
type NopInvalidator struct{}

// Invalidate does nothing.
func (NopInvalidator) Invalidate(context.Context, string) {}
