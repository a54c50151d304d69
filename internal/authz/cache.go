package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/echolist/backend-go/internal/logger"
	"github.com/echolist/backend-go/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	accessibleKeyPrefix = "authz:accessible:"
	defaultCacheTTL     = 30 * time.Second
)

// SectionCache 可访问分区集合的 Redis 缓存
// 缓存只是加速，任何 Redis 故障都按未命中处理。
type SectionCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewSectionCache 创建缓存，ttl <= 0 时使用默认值
func NewSectionCache(client *redis.Client, ttl time.Duration) *SectionCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &SectionCache{
		client: client,
		ttl:    ttl,
		log:    logger.GetLogger(),
	}
}

func cacheKey(userID uint) string {
	return fmt.Sprintf("%s%d", accessibleKeyPrefix, userID)
}

// Get 读取缓存，第二个返回值表示是否命中
func (c *SectionCache) Get(ctx context.Context, userID uint) ([]uint, bool) {
	raw, err := c.client.Get(ctx, cacheKey(userID)).Result()
	if err == redis.Nil {
		metrics.AccessibleSectionsCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.AccessibleSectionsCache.WithLabelValues("error").Inc()
		c.log.Warn("accessible-section cache read failed", zap.Error(err))
		return nil, false
	}

	var ids []uint
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		metrics.AccessibleSectionsCache.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.AccessibleSectionsCache.WithLabelValues("hit").Inc()
	return ids, true
}

// Set 写入缓存，失败只记日志
func (c *SectionCache) Set(ctx context.Context, userID uint, ids []uint) {
	data, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(userID), data, c.ttl).Err(); err != nil {
		c.log.Warn("accessible-section cache write failed", zap.Error(err))
	}
}

// Invalidate 删除指定用户的缓存条目
func (c *SectionCache) Invalidate(ctx context.Context, userIDs ...uint) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cacheKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("accessible-section cache invalidation failed", zap.Error(err))
	}
}
