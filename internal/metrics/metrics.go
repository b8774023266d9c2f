// Package metrics exposes the Prometheus surface every worker process
// registers: promauto vectors behind a small Recorder value, plus the
// scrape handler the health server mounts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentpipe_messages_processed_total",
			Help: "Total number of messages a stage finished processing, by outcome",
		},
		[]string{"stage", "outcome"},
	)

	messagesRetriedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentpipe_messages_retried_total",
			Help: "Total number of messages republished for retry",
		},
		[]string{"stage"},
	)

	dlqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentpipe_dlq_total",
			Help: "Total number of messages routed to a stage's error queue",
		},
		[]string{"stage"},
	)

	processDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentpipe_process_duration_seconds",
			Help:    "Stage process function duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	inflightMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contentpipe_inflight_messages",
			Help: "Number of messages currently being processed by a stage",
		},
		[]string{"stage"},
	)
)

// Recorder implements broker.Recorder against the package-level vectors
// above. There is one process per stage so a single Recorder value per
// worker is all any caller needs.
type Recorder struct{}

func (Recorder) Processed(stageName, outcome string) {
	messagesProcessedTotal.WithLabelValues(stageName, outcome).Inc()
}

func (Recorder) Retried(stageName string) {
	messagesRetriedTotal.WithLabelValues(stageName).Inc()
}

func (Recorder) DLQ(stageName string) {
	dlqTotal.WithLabelValues(stageName).Inc()
}

func (Recorder) ObserveDuration(stageName string, d time.Duration) {
	processDuration.WithLabelValues(stageName).Observe(d.Seconds())
}

func (Recorder) InflightInc(stageName string) {
	inflightMessages.WithLabelValues(stageName).Inc()
}

func (Recorder) InflightDec(stageName string) {
	inflightMessages.WithLabelValues(stageName).Dec()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
