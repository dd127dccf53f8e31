package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "valgkart_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "valgkart_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	LayerCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "valgkart_layer_cache_hits_total",
		Help: "Total redis layer cache hits",
	})
	LayerCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "valgkart_layer_cache_misses_total",
		Help: "Total redis layer cache misses",
	})
	BoundaryLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "valgkart_boundary_loads_total",
		Help: "Total boundary loads delegated to the loader",
	}, []string{"repo"})
	BoundaryCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "valgkart_boundary_cache_hits_total",
		Help: "Total boundary repository cache hits",
	}, []string{"repo"})
	JoinedFeaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "valgkart_joined_features_total",
		Help: "Joined boundary features by status",
	}, []string{"status"})
	ColorFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "valgkart_color_fallback_total",
		Help: "Total lookups of categories missing from the color table",
	})
	BuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "valgkart_builds_total",
		Help: "Layer set builds by granularity and outcome",
	}, []string{"granularity", "outcome"})
	BuildDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "valgkart_build_duration_ms",
		Help:    "Layer set build duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"granularity"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(LayerCacheHitsTotal)
	prometheus.MustRegister(LayerCacheMissesTotal)
	prometheus.MustRegister(BoundaryLoadsTotal)
	prometheus.MustRegister(BoundaryCacheHitsTotal)
	prometheus.MustRegister(JoinedFeaturesTotal)
	prometheus.MustRegister(ColorFallbackTotal)
	prometheus.MustRegister(BuildsTotal)
	prometheus.MustRegister(BuildDurationMs)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
