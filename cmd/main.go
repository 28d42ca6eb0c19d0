// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dvhc-api/internal/api"
	"dvhc-api/internal/cache"
	"dvhc-api/internal/config"
	"dvhc-api/internal/division"
	"dvhc-api/internal/ingest"
	"dvhc-api/internal/logger"
	"dvhc-api/internal/metrics"
	"dvhc-api/internal/middleware"
	"dvhc-api/internal/migrate"
	"dvhc-api/internal/store"
	"dvhc-api/internal/utils"
	"dvhc-api/internal/version"

	"github.com/pkg/errors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("config_error", "err", err)
		os.Exit(1)
	}
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	l.Debug("log_init_ok", "commit", version.Commit)
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := utils.OpenPostgres(cfg.Postgres)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	l.Info("db_open_ok")
	if err := db.PingContext(ctx); err != nil {
		l.Error("db_ping_error", "err", err)
	} else {
		l.Info("db_ping_ok")
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db)

	rc := utils.OpenRedis(cfg.Redis)
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}
	tc := cache.NewTree(rc, cfg.TreeCacheTTL)

	if src := cfg.Import.SourceURL; src != "" {
		if cfg.Import.OnStart {
			go func() {
				ran, err := ingest.EnsureInitialized(ctx, db, src, cfg.Import.BatchSize)
				switch {
				case err != nil:
					l.Error("ingest_init_error", "err", err)
				case ran:
					tc.Invalidate(ctx)
					l.Info("ingest_init_success")
				default:
					l.Info("ingest_init_skipped", "reason", "units_present")
				}
			}()
		}
		if cfg.Import.Weekly {
			ingest.StartWeekly(ctx, db, src, cfg.Import.Hour, cfg.Import.BatchSize, func(res ingest.Result) {
				tc.Invalidate(ctx)
				l.Info("ingest_weekly_success", "units", res.Units)
			})
		}
	} else {
		l.Info("ingest_skipped", "reason", "no_source")
	}

	// 文档注释：构建路由；树根层级来自 TREE_ROOT_LEVEL
	apiMux := api.BuildRoutes(api.Deps{
		Units:     st,
		Provinces: st,
		Communes:  st,
		Stats:     st,
		Cache:     tc,
		RootLevel: division.Level(cfg.RootLevel),
	})
	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(cfg.CORSOrigins, cfg.RateLimit, handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- serve(s, cfg, l) }()

	select {
	case err := <-errc:
		if err != nil {
			l.Error("server_error", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		l.Info("shutdown_begin")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			l.Error("shutdown_error", "err", err)
		}
		l.Info("shutdown_done")
	}
}

// serve：按配置启动 HTTP 或 HTTPS；正常关闭时返回 nil
func serve(s *http.Server, cfg *config.Config, l *slog.Logger) error {
	var err error
	if cfg.TLS.Enable {
		if e := utils.EnsureSelfSignedCert(cfg.TLS.CertPath, cfg.TLS.KeyPath, "dvhc-api.local"); e != nil {
			return errors.Wrap(e, "tls cert")
		}
		if cfg.TLS.Redirect {
			go func() {
				l.Info("http_redirect_listening", "addr", cfg.TLS.RedirectAddr, "to", "https"+cfg.Addr)
				if e := http.ListenAndServe(cfg.TLS.RedirectAddr, middleware.HTTPSRedirect(cfg.Addr)); e != nil {
					l.Error("http_redirect_error", "err", e)
				}
			}()
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLS.CertPath)
		err = s.ListenAndServeTLS(cfg.TLS.CertPath, cfg.TLS.KeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
