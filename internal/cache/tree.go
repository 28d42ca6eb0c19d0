// 包 cache：树响应的 Redis 缓存，按根层级分键；Redis 不可用时退化为未命中
package cache

import (
	"context"
	"strconv"
	"time"

	"dvhc-api/internal/logger"
	"dvhc-api/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dvhc:tree:"

// GenKey：缓存代数计数器；不在 keyPrefix 之下，Invalidate 的 SCAN 不会删到它
const GenKey = "dvhc:tree-gen"

// Tree：缓存序列化后的森林 JSON，键按“代数 + 根层级”划分
// 约束：rc 为 nil 时全部操作为空操作；写入单元或导入数据后必须调用 Invalidate
// 读取方须在读取存储之前取得代数，并以该代数写回；Invalidate 递增代数后，旧代数写入的结果不会再被读到
type Tree struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewTree(rc *redis.Client, ttl time.Duration) *Tree {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Tree{rc: rc, ttl: ttl}
}

func Key(gen int64, rootLevel string) string {
	return keyPrefix + strconv.FormatInt(gen, 10) + ":" + rootLevel
}

// Generation：当前代数；缓存不可用时返回 false，调用方应跳过缓存
func (t *Tree) Generation(ctx context.Context) (int64, bool) {
	if t == nil || t.rc == nil {
		return 0, false
	}
	gen, err := t.rc.Get(ctx, GenKey).Int64()
	switch {
	case err == redis.Nil:
		return 0, true
	case err != nil:
		logger.L().Debug("tree_cache_gen_error", "err", err)
		return 0, false
	}
	return gen, true
}

// Get：命中返回缓存字节；Redis 错误只记录日志
func (t *Tree) Get(ctx context.Context, gen int64, rootLevel string) ([]byte, bool) {
	if t == nil || t.rc == nil {
		return nil, false
	}
	b, err := t.rc.Get(ctx, Key(gen, rootLevel)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.L().Debug("tree_cache_get_error", "err", err)
		}
		metrics.TreeCacheMissesTotal.Inc()
		return nil, false
	}
	metrics.TreeCacheHitsTotal.Inc()
	return b, true
}

func (t *Tree) Set(ctx context.Context, gen int64, rootLevel string, b []byte) {
	if t == nil || t.rc == nil {
		return
	}
	if err := t.rc.Set(ctx, Key(gen, rootLevel), b, t.ttl).Err(); err != nil {
		logger.L().Debug("tree_cache_set_error", "err", err)
	}
}

// Invalidate：先递增代数，再删除全部已缓存的树
func (t *Tree) Invalidate(ctx context.Context) {
	if t == nil || t.rc == nil {
		return
	}
	if err := t.rc.Incr(ctx, GenKey).Err(); err != nil {
		logger.L().Error("tree_cache_gen_incr_error", "err", err)
	}
	iter := t.rc.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.L().Error("tree_cache_scan_error", "err", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := t.rc.Del(ctx, keys...).Err(); err != nil {
		logger.L().Error("tree_cache_invalidate_error", "err", err)
		return
	}
	logger.L().Debug("tree_cache_invalidated", "keys", len(keys))
}
