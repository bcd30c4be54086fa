package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:access:"

// Blacklist records revoked access tokens until they expire. A Blacklist
// without a Redis client accepts every call and blacklists nothing.
type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(c *redis.Client) *Blacklist {
	return &Blacklist{client: c}
}

// Add stores token for ttl. Non-positive ttls are ignored since the token is
// already expired.
func (b *Blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if b == nil || b.client == nil || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
}

// Contains reports whether token has been revoked.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	if b == nil || b.client == nil {
		return false, nil
	}
	n, err := b.client.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
