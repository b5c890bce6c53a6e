package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonnymous_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jsonnymous_http_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonnymous_operations_total",
			Help: "Total number of operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	fieldsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonnymous_fields_total",
			Help: "Fields generated, anonymized or flagged as sensitive",
		},
		[]string{"operation"},
	)

	rateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jsonnymous_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)
)

func observeRequest(route, method string, status int, d time.Duration) {
	requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func observeOperation(operation string, err error, fields int) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
	if fields > 0 {
		fieldsProcessed.WithLabelValues(operation).Add(float64(fields))
	}
}
