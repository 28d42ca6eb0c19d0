// 包 utils：Postgres/Redis 连接与 TLS 证书等启动期工具
package utils

import (
	"dvhc-api/internal/config"
	"dvhc-api/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：按配置打开 Redis 客户端
// 约束：未启用或地址为空时返回 nil，调用方据此关闭缓存；DB 为负数时回退到 0
func OpenRedis(o config.RedisOptions) *redis.Client {
	if !o.Enabled || o.Host == "" {
		return nil
	}
	db := o.DB
	if db < 0 {
		db = 0
	}
	logger.L().Debug("redis_config", "addr", o.Addr(), "db", db)
	return redis.NewClient(&redis.Options{Addr: o.Addr(), Password: o.Pass, DB: db})
}
