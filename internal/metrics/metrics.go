// Package metrics exposes pipeline and view-traffic counters on a private
// prometheus registry, constructed once and passed down rather than held in
// package globals.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	JobsStarted    prometheus.Counter
	JobsCompleted  prometheus.Counter
	JobsFailed     prometheus.Counter
	JobRetries     prometheus.Counter
	ClaimConflicts prometheus.Counter

	RenditionsCompleted *prometheus.CounterVec

	ViewReports      prometheus.Counter
	DuplicateReports prometheus.Counter
	RejectedReports  prometheus.Counter

	PendingVideos prometheus.Gauge
	ActiveJobs    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.JobsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamhive_transcode_jobs_started_total",
		Help: "Transcode jobs claimed by a worker.",
	})
	m.JobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamhive_transcode_jobs_completed_total",
		Help: "Transcode jobs that reached ready.",
	})
	m.JobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamhive_transcode_jobs_failed_total",
		Help: "Transcode jobs that exhausted their retry budget or hit a fatal error.",
	})
	m.JobRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamhive_transcode_job_retries_total",
		Help: "Retried transcode attempts.",
	})
	m.ClaimConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamhive_claim_conflicts_total",
		Help: "Claim attempts lost to another worker.",
	})
	m.RenditionsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamhive_renditions_completed_total",
		Help: "Published renditions by quality tier.",
	}, []string{"rendition"})
	m.ViewReports = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamhive_view_reports_total",
		Help: "Accepted view reports.",
	})
	m.DuplicateReports = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamhive_view_reports_duplicate_total",
		Help: "View reports dropped by the dedup window.",
	})
	m.RejectedReports = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamhive_view_reports_rejected_total",
		Help: "View reports for unknown videos.",
	})
	m.PendingVideos = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "streamhive_pending_videos",
		Help: "Videos eligible for claiming at the last poll.",
	})
	m.ActiveJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "streamhive_active_transcode_jobs",
		Help: "Transcode jobs currently held by workers.",
	})

	m.registry.MustRegister(
		m.JobsStarted, m.JobsCompleted, m.JobsFailed, m.JobRetries,
		m.ClaimConflicts, m.RenditionsCompleted,
		m.ViewReports, m.DuplicateReports, m.RejectedReports,
		m.PendingVideos, m.ActiveJobs,
	)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
