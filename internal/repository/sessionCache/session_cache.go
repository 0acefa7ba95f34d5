// Package sessionCache keeps recently used demo sessions in Redis in front of
// the PostgreSQL repository. PostgreSQL stays the source of truth: cache
// failures are logged and the call falls through.
package sessionCache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"filetree-service/internal/model/session"
	"filetree-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, s *session.DemoSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*session.DemoSession, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionCache struct {
	Client *redis.Client
	next   Store
	now    func() time.Time
}

type entry struct {
	ID           uuid.UUID `json:"id"`
	SessionToken string    `json:"session_token"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func New(client *redis.Client, next Store) *SessionCache {
	return &SessionCache{Client: client, next: next, now: time.Now}
}

func (c *SessionCache) buildKey(id uuid.UUID) string {
	return fmt.Sprintf("demo_session:%s", id)
}

func (c *SessionCache) Create(ctx context.Context, s *session.DemoSession) error {
	if err := c.next.Create(ctx, s); err != nil {
		return err
	}
	c.store(ctx, s)
	return nil
}

func (c *SessionCache) GetByID(ctx context.Context, id uuid.UUID) (*session.DemoSession, error) {
	raw, err := c.Client.Get(ctx, c.buildKey(id)).Bytes()
	switch {
	case err == nil:
		var e entry
		if jsonErr := json.Unmarshal(raw, &e); jsonErr == nil {
			return &session.DemoSession{
				ID:           e.ID,
				SessionToken: e.SessionToken,
				CreatedAt:    e.CreatedAt,
				ExpiresAt:    e.ExpiresAt,
			}, nil
		}
		logger.GetLogger(ctx).Warn("dropping unreadable demo session cache entry", zap.String("session_id", id.String()))
	case !errors.Is(err, redis.Nil):
		logger.GetLogger(ctx).Warn("demo session cache read failed", zap.String("session_id", id.String()), zap.Error(err))
	}

	s, err := c.next.GetByID(ctx, id)
	if err != nil || s == nil {
		return s, err
	}
	c.store(ctx, s)
	return s, nil
}

func (c *SessionCache) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return c.next.DeleteExpired(ctx, cutoff)
}

// store caches s until it expires. Sessions that are already dead are not cached.
func (c *SessionCache) store(ctx context.Context, s *session.DemoSession) {
	ttl := s.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(entry{
		ID:           s.ID,
		SessionToken: s.SessionToken,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
	})
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, c.buildKey(s.ID), raw, ttl).Err(); err != nil {
		logger.GetLogger(ctx).Warn("demo session cache write failed", zap.String("session_id", s.ID.String()), zap.Error(err))
	}
}
