// Package metrics exposes Prometheus collectors for the generation pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "AI completion requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI completion latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"provider"},
	)
	imageResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolutions_total",
			Help: "Image chain resolutions by winning provider",
		},
		[]string{"provider"},
	)
	recipesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_generated_total",
			Help: "Recipes persisted by the generation pipeline",
		},
		[]string{"kind"},
	)
	backgroundTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_tasks_total",
			Help: "Background tasks by name and outcome",
		},
		[]string{"task", "outcome"},
	)
)

// ObserveAIRequest records one AI completion call.
func ObserveAIRequest(provider, outcome string, elapsed time.Duration) {
	aiRequestsTotal.WithLabelValues(provider, outcome).Inc()
	aiRequestDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveImageResolution records which provider produced an image.
func ObserveImageResolution(provider string) {
	imageResolutionsTotal.WithLabelValues(provider).Inc()
}

// AddRecipesGenerated counts persisted generated recipes.
func AddRecipesGenerated(kind string, n int) {
	recipesGeneratedTotal.WithLabelValues(kind).Add(float64(n))
}

// ObserveBackgroundTask records the outcome of a worker task.
func ObserveBackgroundTask(task, outcome string) {
	backgroundTasksTotal.WithLabelValues(task, outcome).Inc()
}

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
