// 包 api：行政区划 HTTP 接口，提供单元/省/乡的增删改查与树形视图
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"dvhc-api/internal/division"
	"dvhc-api/internal/metrics"
	"dvhc-api/internal/store"
	"dvhc-api/internal/version"

	"github.com/gorilla/mux"
)

// UnitStore：通用单元的存取
type UnitStore interface {
	ListUnits(ctx context.Context) ([]division.Unit, error)
	ListChildUnits(ctx context.Context, parentCode string) ([]division.Unit, error)
	GetUnit(ctx context.Context, code string) (*division.Unit, error)
	UpsertUnit(ctx context.Context, u division.Unit) error
	DeleteUnit(ctx context.Context, code string) error
}

type ProvinceStore interface {
	ListProvinces(ctx context.Context) ([]division.Province, error)
	GetProvince(ctx context.Context, code string) (*division.Province, error)
	UpsertProvince(ctx context.Context, p division.Province) error
	DeleteProvince(ctx context.Context, code string) error
}

type CommuneStore interface {
	ListCommunes(ctx context.Context) ([]division.Commune, error)
	ListCommunesByProvince(ctx context.Context, provinceCode string) ([]division.Commune, error)
	GetCommune(ctx context.Context, code string) (*division.Commune, error)
	UpsertCommune(ctx context.Context, c division.Commune) error
	DeleteCommune(ctx context.Context, code string) error
}

// StatsStore：健康检查与计数
type StatsStore interface {
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (*store.Counts, error)
}

// TreeCache：序列化森林的缓存；实现需容忍后端不可用
// Generation 在读取存储前调用，Set 以同一代数写回；Invalidate 之后旧代数的写回不再可读
type TreeCache interface {
	Generation(ctx context.Context) (int64, bool)
	Get(ctx context.Context, gen int64, rootLevel string) ([]byte, bool)
	Set(ctx context.Context, gen int64, rootLevel string, b []byte)
	Invalidate(ctx context.Context)
}

// Deps：路由依赖；Cache 为空时不缓存，RootLevel 为空时取省级
type Deps struct {
	Units     UnitStore
	Provinces ProvinceStore
	Communes  CommuneStore
	Stats     StatsStore
	Cache     TreeCache
	RootLevel division.Level
}

type handler struct {
	Deps
}

type noCache struct{}

func (noCache) Generation(context.Context) (int64, bool)          { return 0, false }
func (noCache) Get(context.Context, int64, string) ([]byte, bool) { return nil, false }
func (noCache) Set(context.Context, int64, string, []byte)        {}
func (noCache) Invalidate(context.Context)                        {}

// BuildRoutes：构建路由；路径相对 API 基础前缀，由主入口 StripPrefix 挂载
// 约束：/units/tree 必须先于 /units/{code} 注册
func BuildRoutes(d Deps) *mux.Router {
	if d.Cache == nil {
		d.Cache = noCache{}
	}
	if d.RootLevel == "" {
		d.RootLevel = division.LevelProvince
	}
	h := &handler{Deps: d}

	r := mux.NewRouter()
	r.Use(instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.stats).Methods(http.MethodGet)

	r.HandleFunc("/units/tree", h.tree).Methods(http.MethodGet)
	r.HandleFunc("/units", h.listUnits).Methods(http.MethodGet)
	r.HandleFunc("/units", h.createUnit).Methods(http.MethodPost)
	r.HandleFunc("/units/{code}", h.getUnit).Methods(http.MethodGet)
	r.HandleFunc("/units/{code}", h.putUnit).Methods(http.MethodPut)
	r.HandleFunc("/units/{code}", h.deleteUnit).Methods(http.MethodDelete)
	r.HandleFunc("/units/{code}/children", h.childUnits).Methods(http.MethodGet)

	r.HandleFunc("/provinces", h.listProvinces).Methods(http.MethodGet)
	r.HandleFunc("/provinces", h.createProvince).Methods(http.MethodPost)
	r.HandleFunc("/provinces/{code}", h.getProvince).Methods(http.MethodGet)
	r.HandleFunc("/provinces/{code}", h.putProvince).Methods(http.MethodPut)
	r.HandleFunc("/provinces/{code}", h.deleteProvince).Methods(http.MethodDelete)
	r.HandleFunc("/provinces/{code}/communes", h.provinceCommunes).Methods(http.MethodGet)

	r.HandleFunc("/communes", h.listCommunes).Methods(http.MethodGet)
	r.HandleFunc("/communes", h.createCommune).Methods(http.MethodPost)
	r.HandleFunc("/communes/{code}", h.getCommune).Methods(http.MethodGet)
	r.HandleFunc("/communes/{code}", h.putCommune).Methods(http.MethodPut)
	r.HandleFunc("/communes/{code}", h.deleteCommune).Methods(http.MethodDelete)
	return r
}

type recorder struct {
	http.ResponseWriter
	status int
}

func (w *recorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument：按路由模板统计请求数与耗时，避免 code 进入标签
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if h.Stats == nil || h.Stats.Ping(ctx) != nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "record store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "commit": version.Commit})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	c, err := h.Stats.Counts(r.Context())
	if err != nil {
		storeFailure(w, "counts", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
