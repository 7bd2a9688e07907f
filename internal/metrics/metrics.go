package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	WebhookResultSent    = "sent"
	WebhookResultFailed  = "failed"
	WebhookResultSkipped = "skipped"

	ConversionResultForwarded = "forwarded"
	ConversionResultRejected  = "rejected"
	ConversionResultFailed    = "failed"

	UploadModeSingle      = "single"
	UploadModeMultiFormat = "multi_format"

	unmatchedRoutePath = "unmatched"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	leadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_created_total",
			Help: "Total number of leads captured",
		},
		[]string{"type"},
	)

	webhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total number of webhook dispatch outcomes",
		},
		[]string{"result"},
	)

	conversionsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversions_forwarded_total",
			Help: "Total number of conversion events relayed",
		},
		[]string{"result"},
	)

	uploadsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Total number of stored uploads",
		},
		[]string{"mode"},
	)
)

// Middleware records request counts and latency labelled by the matched route template.
func Middleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		start := time.Now()
		context.Next()

		path := context.FullPath()
		if path == "" {
			path = unmatchedRoutePath
		}
		method := context.Request.Method
		status := strconv.Itoa(context.Writer.Status())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordLeadCreated(leadType string) {
	leadsCreated.WithLabelValues(leadType).Inc()
}

func RecordWebhookDelivery(result string) {
	webhookDeliveries.WithLabelValues(result).Inc()
}

func RecordConversion(result string) {
	conversionsForwarded.WithLabelValues(result).Inc()
}

func RecordUpload(mode string) {
	uploadsStored.WithLabelValues(mode).Inc()
}
