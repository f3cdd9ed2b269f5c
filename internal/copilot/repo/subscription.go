package repo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	errx "github.com/fieldops-copilot/server/internal/core/error"
	logx "github.com/fieldops-copilot/server/pkg/logger"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// RedisSubscriptionStore reads the subscription tier written by the billing
// system. A missing key means the user has no subscription record.
type RedisSubscriptionStore struct {
	rdb redis.Cmdable
}

func NewRedisSubscriptionStore(rdb redis.Cmdable) *RedisSubscriptionStore {
	return &RedisSubscriptionStore{rdb: rdb}
}

func (s *RedisSubscriptionStore) subscriptionKey(userID string) string {
	return fmt.Sprintf("subscription:%s:tier", userID)
}

func (s *RedisSubscriptionStore) GetTier(ctx context.Context, userID string) (model.Tier, bool, error) {
	key := s.subscriptionKey(userID)
	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return model.TierFree, false, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load subscription tier from redis")
		return model.TierFree, false, errx.WrapRedis(err)
	}

	tier := model.Tier(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range model.Tiers() {
		if tier == known {
			return tier, true, nil
		}
	}
	logx.Warn().Str("user_id", userID).Str("tier", raw).Msg("unknown subscription tier, treating as FREE")
	return model.TierFree, false, nil
}

var _ model.SubscriptionStore = (*RedisSubscriptionStore)(nil)

// MemorySubscriptionStore is a fixed tier map, used in tests and when no
// billing backend is wired.
type MemorySubscriptionStore struct {
	mu    sync.RWMutex
	tiers map[string]model.Tier
}

func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{tiers: map[string]model.Tier{}}
}

// SetTier assigns a tier to a user.
func (s *MemorySubscriptionStore) SetTier(userID string, tier model.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[userID] = tier
}

func (s *MemorySubscriptionStore) GetTier(_ context.Context, userID string) (model.Tier, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tier, ok := s.tiers[userID]
	if !ok {
		return model.TierFree, false, nil
	}
	return tier, true, nil
}

var _ model.SubscriptionStore = (*MemorySubscriptionStore)(nil)
