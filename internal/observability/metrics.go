package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_http_requests_total",
			Help: "Total number of HTTP requests processed by the meme service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meme_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meme_ws_active_sessions",
			Help: "Number of active websocket sessions.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_ws_events_total",
			Help: "Total number of websocket session events.",
		},
		[]string{"event"},
	)
	snapshotFoldsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_snapshot_folds_total",
			Help: "Total number of live-query snapshots folded into view state.",
		},
		[]string{"scope"},
	)
	snapshotFoldSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meme_snapshot_fold_size",
			Help:    "Messages per folded snapshot.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"scope"},
	)
	snapshotFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_snapshot_fallbacks_total",
			Help: "Total number of ordered-query failures degraded to client-side sorting.",
		},
		[]string{"scope"},
	)
	readMarksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_read_marks_total",
			Help: "Total number of read-flag updates issued by thread views.",
		},
		[]string{"status"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meme_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveSessions,
		wsEventsTotal,
		snapshotFoldsTotal,
		snapshotFoldSize,
		snapshotFallbacksTotal,
		readMarksTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveSessions.Inc()
}

func DecWSActive() {
	wsActiveSessions.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func ObserveSnapshotFold(scope string, messages int) {
	snapshotFoldsTotal.WithLabelValues(scope).Inc()
	snapshotFoldSize.WithLabelValues(scope).Observe(float64(messages))
}

func IncSnapshotFallback(scope string) {
	snapshotFallbacksTotal.WithLabelValues(scope).Inc()
}

func IncReadMark(status string) {
	readMarksTotal.WithLabelValues(status).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
