package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/pkg/metrics"
)

const defaultUserTTL = 5 * time.Minute

// KV is the subset of *redis.Client used by UserCache.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// UserCache is a read-through cache in front of a ports.UserRepository.
// Only FindByID is cached. Key format: user:<id>
// Redis failures fall through to the underlying repository.
//
// A read that overlaps a write through this cache does not leave its result
// in Redis. Writes from other processes are bounded only by the TTL.
type UserCache struct {
	ports.UserRepository
	kv     KV
	ttl    time.Duration
	log    zerolog.Logger
	writes atomic.Uint64
}

// NewUserCache wraps repo. A non-positive ttl uses defaultUserTTL.
func NewUserCache(repo ports.UserRepository, kv KV, ttl time.Duration, log zerolog.Logger) *UserCache {
	if ttl <= 0 {
		ttl = defaultUserTTL
	}
	return &UserCache{UserRepository: repo, kv: kv, ttl: ttl, log: log}
}

type cachedUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *UserCache) FindByID(ctx context.Context, id string) (*domain.User, error) {
	raw, err := c.kv.Get(ctx, c.key(id)).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if jsonErr := json.Unmarshal(raw, &cu); jsonErr == nil {
			metrics.UserCacheLookupsTotal.WithLabelValues("hit").Inc()
			return cu.toDomain(), nil
		}
		metrics.UserCacheLookupsTotal.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.UserCacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		metrics.UserCacheLookupsTotal.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Str("user_id", id).Msg("user cache read failed")
	}

	gen := c.writes.Load()
	user, err := c.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.storeIfCurrent(ctx, user, gen)
	return user, nil
}

// Update invalidates the cached entry after a successful write.
func (c *UserCache) Update(ctx context.Context, id string, update ports.UserUpdate) (*domain.User, error) {
	user, err := c.UserRepository.Update(ctx, id, update)
	c.writes.Add(1)
	c.invalidate(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (c *UserCache) Delete(ctx context.Context, id string) error {
	err := c.UserRepository.Delete(ctx, id)
	c.writes.Add(1)
	c.invalidate(ctx, id)
	return err
}

// storeIfCurrent caches user unless a write has completed since gen was
// read. A write landing between the check and the Set is caught by the
// second check, or by the writer's own Del if it comes later.
func (c *UserCache) storeIfCurrent(ctx context.Context, user *domain.User, gen uint64) {
	if c.writes.Load() != gen {
		return
	}
	c.store(ctx, user)
	if c.writes.Load() != gen {
		c.invalidate(ctx, user.ID)
	}
}

func (c *UserCache) store(ctx context.Context, user *domain.User) {
	payload, err := json.Marshal(fromDomain(user))
	if err != nil {
		return
	}
	if err := c.kv.Set(ctx, c.key(user.ID), payload, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("user_id", user.ID).Msg("user cache write failed")
	}
}

func (c *UserCache) invalidate(ctx context.Context, id string) {
	if err := c.kv.Del(ctx, c.key(id)).Err(); err != nil {
		c.log.Warn().Err(err).Str("user_id", id).Msg("user cache invalidation failed")
	}
}

func (c *UserCache) key(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func fromDomain(u *domain.User) cachedUser {
	return cachedUser{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (cu cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:           cu.ID,
		Email:        cu.Email,
		Name:         cu.Name,
		PasswordHash: cu.PasswordHash,
		Role:         domain.Role(cu.Role),
		CreatedAt:    cu.CreatedAt,
		UpdatedAt:    cu.UpdatedAt,
	}
}
