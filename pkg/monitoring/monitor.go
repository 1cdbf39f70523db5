package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	RoundsGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_rounds_graded_total",
			Help: "Adaptive rounds graded, by level and decision",
		},
		[]string{"level", "decision"},
	)

	RoundRatio = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placement_round_ratio",
			Help:    "Score ratio of graded rounds",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"level"},
	)

	Placements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_finalized_total",
			Help: "Finished placement attempts, by mode and recommended level",
		},
		[]string{"mode", "level"},
	)

	AttemptsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_attempts_rejected_total",
			Help: "Rounds rejected by the attempt guard",
		},
		[]string{"reason"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(RoundsGraded)
		prometheus.MustRegister(RoundRatio)
		prometheus.MustRegister(Placements)
		prometheus.MustRegister(AttemptsRejected)
	})
}

func ObserveRound(level, decision string, ratio float64) {
	RoundsGraded.WithLabelValues(level, decision).Inc()
	RoundRatio.WithLabelValues(level).Observe(ratio)
}

func ObservePlacement(mode, level string) {
	Placements.WithLabelValues(mode, level).Inc()
}

func ObserveRejected(reason string) {
	AttemptsRejected.WithLabelValues(reason).Inc()
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
