package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/fieldops-copilot/server/internal/core/error"
	logx "github.com/fieldops-copilot/server/pkg/logger"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// RedisPlanStore keeps the single pending plan of a conversation under one
// key with the plan TTL. A lapsed TTL makes the plan absent, which callers
// treat the same as never having planned.
type RedisPlanStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisPlanStore(rdb redis.Cmdable, ttl time.Duration) *RedisPlanStore {
	return &RedisPlanStore{rdb: rdb, ttl: ttl}
}

func (s *RedisPlanStore) planKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:plan", conversationID)
}

func (s *RedisPlanStore) SavePlan(ctx context.Context, plan *model.PlanSummary) error {
	b, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	key := s.planKey(plan.ConversationID)
	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save plan to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisPlanStore) GetPlan(ctx context.Context, conversationID string) (*model.PlanSummary, error) {
	key := s.planKey(conversationID)
	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load plan from redis")
		return nil, errx.WrapRedis(err)
	}

	var plan model.PlanSummary
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &plan, nil
}

func (s *RedisPlanStore) ClearPlan(ctx context.Context, conversationID string) error {
	key := s.planKey(conversationID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete plan from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.PlanStore = (*RedisPlanStore)(nil)
