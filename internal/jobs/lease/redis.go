package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/fabricator/internal/platform/logger"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process talking to the same Redis.
type Redis struct {
	rdb    *goredis.Client
	prefix string
	log    *logger.Logger
}

func NewRedis(rdb *goredis.Client, prefix string, log *logger.Logger) *Redis {
	if prefix == "" {
		prefix = "fabricator:lease:"
	}
	return &Redis{rdb: rdb, prefix: prefix, log: log.With("component", "RedisLease")}
}

func (r *Redis) Backend() string { return "redis" }

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	full := r.prefix + key
	ok, err := r.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		// The caller's context may already be done; release on a fresh one.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, r.rdb, []string{full}, token).Err(); err != nil && err != goredis.Nil {
			r.log.Warn("lease release failed", "key", key, "error", err)
		}
	}, true, nil
}
