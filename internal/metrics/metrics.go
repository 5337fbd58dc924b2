// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherlog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherlog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// GatewayCalls counts weather API calls by operation and outcome.
	GatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherlog_gateway_calls_total",
			Help: "Total weather API calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// GatewayDuration observes weather API latency by operation.
	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherlog_gateway_call_duration_seconds",
			Help:    "Weather API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// RecordsWritten counts weather records persisted by the pipeline, by mode.
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherlog_records_written_total",
			Help: "Total weather records written by mode",
		},
		[]string{"mode"},
	)

	// PipelineFailures counts record pipeline failures by stage.
	PipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherlog_pipeline_failures_total",
			Help: "Total record pipeline failures by stage",
		},
		[]string{"stage"},
	)
)

// Middleware records request count and latency per route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method

			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// ObserveGateway records one gateway call.
func ObserveGateway(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	GatewayCalls.WithLabelValues(operation, outcome).Inc()
	GatewayDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
