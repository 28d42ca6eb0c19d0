package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dvhc-api/internal/division"
	"dvhc-api/internal/logger"
	"dvhc-api/internal/metrics"
)

// tree：GET /units/tree[?root=level]
// 背景：每次从存储读取全部单元并在内存中重建森林；结果按根层级缓存
// 约束：环与未解析父级只记录日志和指标，不影响响应状态；仅已知层级进入缓存
func (h *handler) tree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	root := h.RootLevel
	if q := strings.TrimSpace(r.URL.Query().Get("root")); q != "" {
		if err := validate.Var(q, "max=32,alphanum"); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "root must be a level name of at most 32 letters or digits")
			return
		}
		root = division.Level(q)
	}
	gen, cacheable := h.Cache.Generation(ctx)
	cacheable = cacheable && h.cacheableRoot(root)
	if cacheable {
		if b, ok := h.Cache.Get(ctx, gen, string(root)); ok {
			w.Header().Set("X-Cache", "hit")
			writeRaw(w, http.StatusOK, b)
			return
		}
	}

	units, err := h.Units.ListUnits(ctx)
	if err != nil {
		storeFailure(w, "list_units", err)
		return
	}
	start := time.Now()
	forest, rep, err := division.Builder{RootLevel: root}.Build(units)
	metrics.TreeBuildDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		logger.L().Error("tree_invalid_dataset", "root", root, "err", err)
		writeError(w, http.StatusInternalServerError, "invalid_dataset", err.Error())
		return
	}
	logReport(root, rep)

	nodes, depth := division.Measure(forest)
	metrics.TreeNodes.Set(float64(nodes))
	logger.L().Debug("tree_built", "root", root, "units", len(units), "roots", len(forest), "nodes", nodes, "depth", depth)

	b, err := json.Marshal(forest)
	if err != nil {
		logger.L().Error("tree_serialize_error", "root", root, "err", err)
		writeError(w, http.StatusInternalServerError, "serialization_failed", "tree could not be serialized")
		return
	}
	if cacheable {
		h.Cache.Set(ctx, gen, string(root), b)
		w.Header().Set("X-Cache", "miss")
	} else {
		w.Header().Set("X-Cache", "bypass")
	}
	writeRaw(w, http.StatusOK, b)
}

// cacheableRoot：配置的根层级与两级架构的固定层级才缓存，避免任意取值在 Redis 中产生无界键
func (h *handler) cacheableRoot(root division.Level) bool {
	return root == h.RootLevel || root == division.LevelProvince || root == division.LevelCommune
}

func logReport(root division.Level, rep division.Report) {
	if rep.Clean() {
		return
	}
	l := logger.L()
	for _, s := range rep.Skipped {
		l.Warn("tree_record_skipped", "index", s.Index, "reason", s.Reason)
	}
	if n := len(rep.Skipped); n > 0 {
		metrics.TreeSkippedTotal.Add(float64(n))
	}
	if n := len(rep.Omitted); n > 0 {
		metrics.TreeOmittedTotal.Add(float64(n))
		l.Warn("tree_units_omitted", "root", root, "count", n, "codes", rep.Omitted)
	}
	if n := len(rep.SelfParented); n > 0 {
		l.Warn("tree_self_parented", "count", n, "codes", rep.SelfParented)
	}
	for _, c := range rep.Cycles {
		metrics.TreeCyclesTotal.Inc()
		l.Warn("tree_cycle_detected", "codes", c)
	}
}
