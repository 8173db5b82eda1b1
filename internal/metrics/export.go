// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExportJobsTotal counts finished export jobs by kind and status.
	ExportJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_export_jobs_total",
		Help: "Export and transcode jobs by terminal status",
	}, []string{"kind", "status"})

	// ExportDurationSeconds tracks wall time of export jobs.
	ExportDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitcap_export_duration_seconds",
		Help:    "Duration of export and transcode jobs",
		Buckets: prometheus.ExponentialBuckets(0.25, 2.0, 10), // 250ms to ~2m
	}, []string{"kind"})

	// ThumbnailsTotal counts thumbnail generation attempts.
	ThumbnailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_thumbnails_total",
		Help: "Thumbnail generation attempts by result",
	}, []string{"result"})

	// DeliveriesTotal counts handoffs of finished assets to the sink.
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_deliveries_total",
		Help: "Finished asset deliveries by result",
	}, []string{"result"})
)

// ObserveExport records a finished export job.
func ObserveExport(kind, status string, d time.Duration) {
	ExportJobsTotal.WithLabelValues(kind, status).Inc()
	ExportDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// IncThumbnail records a thumbnail attempt.
func IncThumbnail(result string) {
	ThumbnailsTotal.WithLabelValues(result).Inc()
}

// IncDelivery records a delivery attempt.
func IncDelivery(result string) {
	DeliveriesTotal.WithLabelValues(result).Inc()
}
