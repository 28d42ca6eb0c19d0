package middleware

import (
	"net/http"

	"dvhc-api/internal/config"

	"github.com/rs/cors"
)

// CORS：只读与写接口均允许跨域调用；origins 含 "*" 时放开全部来源
func CORS(origins []string, next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         600,
	})
	return c.Handler(next)
}

// Wrap：按固定顺序组装中间件（CORS 在最外层，预检请求不占用限流配额）
func Wrap(origins []string, rl config.RateLimitOptions, next http.Handler) http.Handler {
	return CORS(origins, RateLimit(rl, next))
}
