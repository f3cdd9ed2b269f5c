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

// RedisPreviewStore keeps payment previews under their id with the preview
// TTL. The charge tool double-checks ExpiresAt; the TTL here just caps how
// long a stale preview lingers.
type RedisPreviewStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisPreviewStore(rdb redis.Cmdable, ttl time.Duration) *RedisPreviewStore {
	return &RedisPreviewStore{rdb: rdb, ttl: ttl}
}

func (s *RedisPreviewStore) previewKey(previewID string) string {
	return fmt.Sprintf("payment:preview:%s", previewID)
}

func (s *RedisPreviewStore) SavePreview(ctx context.Context, preview *model.PaymentPreview) error {
	b, err := json.Marshal(preview)
	if err != nil {
		return fmt.Errorf("marshal preview: %w", err)
	}
	key := s.previewKey(preview.ID)
	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save payment preview to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisPreviewStore) GetPreview(ctx context.Context, previewID string) (*model.PaymentPreview, error) {
	key := s.previewKey(previewID)
	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load payment preview from redis")
		return nil, errx.WrapRedis(err)
	}

	var preview model.PaymentPreview
	if err := json.Unmarshal([]byte(raw), &preview); err != nil {
		return nil, fmt.Errorf("unmarshal preview: %w", err)
	}
	return &preview, nil
}

var _ model.PreviewStore = (*RedisPreviewStore)(nil)
