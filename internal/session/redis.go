package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix — префикс ключей, если не задан явно.
const DefaultRedisPrefix = "portal:session:"

// RedisKV хранит значения сессии в Redis Hash "<prefix>data",
// а об изменениях сообщает в канал "<prefix>events".
// Сообщение канала: "<origin>:<key>", где origin — id экземпляра RedisKV.
type RedisKV struct {
	rdb    redis.UniversalClient
	prefix string
	origin string
	owned  bool
}

// NewRedisKV создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется DefaultRedisPrefix.
func NewRedisKV(redisURL, prefix string) (*RedisKV, error) {
	const op = "session.NewRedisKV"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	kv := NewRedisKVWithClient(rdb, prefix)
	kv.owned = true

	return kv, nil
}

// NewRedisKVWithClient оборачивает готовый клиент. Close его не закрывает.
func NewRedisKVWithClient(rdb redis.UniversalClient, prefix string) *RedisKV {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &RedisKV{
		rdb:    rdb,
		prefix: prefix,
		origin: strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}

func (r *RedisKV) dataKey() string { return r.prefix + "data" }
func (r *RedisKV) channel() string { return r.prefix + "events" }

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "session.RedisKV.Get"

	v, err := r.rdb.HGet(ctx, r.dataKey(), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return v, true, nil
}

func (r *RedisKV) SetMany(ctx context.Context, values map[string]string) error {
	const op = "session.RedisKV.SetMany"

	if len(values) == 0 {
		return nil
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.dataKey(), values)
	for k := range values {
		pipe.Publish(ctx, r.channel(), r.origin+":"+k)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	const op = "session.RedisKV.Delete"

	if len(keys) == 0 {
		return nil
	}

	pipe := r.rdb.TxPipeline()
	pipe.HDel(ctx, r.dataKey(), keys...)
	for _, k := range keys {
		pipe.Publish(ctx, r.channel(), r.origin+":"+k)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Watch подписывается на канал событий. Возврат происходит после
// подтверждения подписки сервером.
func (r *RedisKV) Watch(ctx context.Context) (<-chan string, error) {
	const op = "session.RedisKV.Watch"

	sub := r.rdb.Subscribe(ctx, r.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make(chan string, watchBuffer)
	msgs := sub.Channel()

	go func() {
		defer close(out)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				origin, key, found := strings.Cut(msg.Payload, ":")
				if !found || origin == r.origin {
					continue
				}

				select {
				case out <- key:
				default:
				}
			}
		}
	}()

	return out, nil
}

// Close закрывает клиент Redis, если он создан через NewRedisKV.
func (r *RedisKV) Close() error {
	if !r.owned {
		return nil
	}

	return r.rdb.Close()
}

var (
	_ KV      = (*RedisKV)(nil)
	_ Watcher = (*RedisKV)(nil)
)
