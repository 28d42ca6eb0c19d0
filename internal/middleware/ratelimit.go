package middleware

import (
	"net/http"
	"sync"
	"time"

	"dvhc-api/internal/config"
	"dvhc-api/internal/logger"
)

// 文档注释：令牌桶限流（每秒）
// 背景：树接口需全量读取记录，峰值时对入口限速，避免数据库被过载
// 约束：不排队，超出直接返回 429
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
	mu       sync.Mutex
}

func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = 200
	}
	tb := &TokenBucket{capacity: qps, tokens: qps, now: time.Now}
	tb.lastSec = tb.now().Unix()
	return tb
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimit：未启用时原样返回 next
func RateLimit(o config.RateLimitOptions, next http.Handler) http.Handler {
	if !o.Enabled {
		return next
	}
	tb := NewTokenBucket(o.QPS)
	logger.L().Info("rate_limit_enabled", "qps", tb.capacity)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.Allow() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
