package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dvhc_requests_total",
		Help: "Total number of API requests by route and status",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dvhc_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	TreeBuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dvhc_tree_build_duration_ms",
		Help:    "Tree build duration in milliseconds (fetch excluded)",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	TreeNodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dvhc_tree_nodes",
		Help: "Number of nodes reachable from the last built forest",
	})
	TreeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvhc_tree_cache_hits_total",
		Help: "Total redis tree cache hits",
	})
	TreeCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvhc_tree_cache_misses_total",
		Help: "Total redis tree cache misses",
	})
	TreeCyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvhc_tree_cycles_total",
		Help: "Total parent-chain cycles detected while building trees",
	})
	TreeSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvhc_tree_skipped_records_total",
		Help: "Total malformed records skipped while building trees",
	})
	TreeOmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dvhc_tree_omitted_units_total",
		Help: "Total units omitted (unresolved parent, non-root level)",
	})
	StoreErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dvhc_store_errors_total",
		Help: "Total record store errors by operation",
	}, []string{"op"})
	ImportRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dvhc_import_records_total",
		Help: "Total records written by dataset imports",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(TreeBuildDurationMs)
	prometheus.MustRegister(TreeNodes)
	prometheus.MustRegister(TreeCacheHitsTotal)
	prometheus.MustRegister(TreeCacheMissesTotal)
	prometheus.MustRegister(TreeCyclesTotal)
	prometheus.MustRegister(TreeSkippedTotal)
	prometheus.MustRegister(TreeOmittedTotal)
	prometheus.MustRegister(StoreErrorsTotal)
	prometheus.MustRegister(ImportRecordsTotal)
}

// 文档注释：返回 Prometheus 指标处理器，在主入口挂载到 <API_BASE>/metrics
func Handler() http.Handler { return promhttp.Handler() }
