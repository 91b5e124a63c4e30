package utils

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckInOutcomes counts check-in submissions by outcome.
	CheckInOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurowell_checkin_submissions_total",
		Help: "Check-in submissions by outcome",
	}, []string{"outcome"})

	// StreakResets counts streaks zeroed by the decay sweep.
	StreakResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neurowell_streak_resets_total",
		Help: "Total number of streaks reset by the decay sweep",
	})

	// SweepRuns counts decay sweep runs by result.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurowell_sweep_runs_total",
		Help: "Decay sweep runs by result",
	}, []string{"result"})

	// AIFallbacks counts recommendation/chat calls answered by the built-in fallback.
	AIFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurowell_ai_fallbacks_total",
		Help: "Recommendation service calls served by fallback content",
	}, []string{"endpoint", "reason"})

	// HTTPRequestDuration records API latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neurowell_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// MetricsMiddleware records request latency using the matched route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
