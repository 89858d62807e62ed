package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	ResultAccepted    = "accepted"
	ResultRejected    = "rejected"
	ResultDebounced   = "debounced"
	ResultDecodeError = "decode_error"
	ResultSuccess     = "success"
	ResultFailure     = "failure"
	ResultStored      = "stored"
)

// Prometheus metrics for the scan flow and the receiver
var (
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credlink_endpoint_scans_total",
			Help: "Endpoint QR scans by outcome",
		},
		[]string{"result"},
	)

	TagReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credlink_tag_reads_total",
			Help: "NFC tag reads by outcome",
		},
		[]string{"result"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credlink_submissions_total",
			Help: "Credential submissions by outcome",
		},
		[]string{"result"},
	)

	SubmissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "credlink_submission_duration_seconds",
			Help:    "Duration of credential submissions",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credlink_received_credentials_total",
			Help: "Credentials received by the node-side endpoint by outcome",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method"},
	)
)

var registerOnce sync.Once

// Register registers all metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ScansTotal)
		prometheus.MustRegister(TagReadsTotal)
		prometheus.MustRegister(SubmissionsTotal)
		prometheus.MustRegister(SubmissionDuration)
		prometheus.MustRegister(ReceivedTotal)
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
	})
}
