package BlackListRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlackListRepo remembers revoked bearer tokens by their jti until the
// token would have expired anyway.
type BlackListRepo struct {
	Client *redis.Client
	now    func() time.Time
}

func NewBlackListRepo(client *redis.Client) *BlackListRepo {
	return &BlackListRepo{
		Client: client,
		now:    time.Now,
	}
}

func (r *BlackListRepo) buildKey(tokenID string) string {
	return fmt.Sprintf("blacklist:%s", tokenID)
}

func (r *BlackListRepo) AddToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.Client.Set(ctx, r.buildKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (r *BlackListRepo) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.Client.Exists(ctx, r.buildKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}
