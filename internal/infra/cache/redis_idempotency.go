package cache

import (
	"context"
	"time"

	repo "pos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "pos:idem:"

// 自分が置いたトークンのときだけ消す
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisIdempotencyGuard struct {
	client *redis.Client
}

func NewRedisIdempotencyGuard(client *redis.Client) *RedisIdempotencyGuard {
	return &RedisIdempotencyGuard{client: client}
}

// SET NX でキーを取る。TTLは処理が落ちたときの保険で、通常はreleaseで消す
func (g *RedisIdempotencyGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	redisKey := idempotencyKeyPrefix + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, g.client, []string{redisKey}, token).Err()
	}
	return release, true, nil
}

// Redisを使わない構成用。常に取れる
type NoopIdempotencyGuard struct{}

func (NoopIdempotencyGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

var (
	_ repo.IdempotencyGuard = (*RedisIdempotencyGuard)(nil)
	_ repo.IdempotencyGuard = NoopIdempotencyGuard{}
)
