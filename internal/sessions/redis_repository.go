package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository implements Repository using Redis. Each session is stored
// as JSON under "<prefix><refreshToken>" with a TTL matching its expiry, and
// "<prefix>user:<username>" is a set of the user's refresh tokens.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(refresh string) string {
	return r.prefix + refresh
}

func (r *RedisRepository) userKey(username string) string {
	return r.prefix + "user:" + username
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(s.RefreshToken), b, ttl)
	pipe.SAdd(ctx, r.userKey(s.Username), s.RefreshToken)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	b, err := r.client.Get(ctx, r.key(refresh)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.expired(time.Now().UTC()) {
		_ = r.DeleteByRefresh(ctx, refresh)
		return nil, nil
	}
	return &s, nil
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	s, err := r.peek(ctx, refresh)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(refresh))
	if s != nil {
		pipe.SRem(ctx, r.userKey(s.Username), refresh)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteByUsername removes every session listed in the user's token set.
// Tokens whose session key already expired are counted only if still present.
func (r *RedisRepository) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	tokens, err := r.client.SMembers(ctx, r.userKey(username)).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		keys = append(keys, r.key(t))
	}
	var n int64
	if len(keys) > 0 {
		if n, err = r.client.Del(ctx, keys...).Result(); err != nil {
			return 0, err
		}
	}
	return n, r.client.Del(ctx, r.userKey(username)).Err()
}

func (r *RedisRepository) peek(ctx context.Context, refresh string) (*Session, error) {
	b, err := r.client.Get(ctx, r.key(refresh)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
