// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecorderTransitionsTotal counts committed state machine transitions.
	RecorderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_recorder_transitions_total",
		Help: "Recorder state machine transitions",
	}, []string{"from", "to"})

	// RecordingsTotal counts finished recording sessions by outcome (ready or error kind).
	RecordingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_recordings_total",
		Help: "Recording sessions by terminal outcome",
	}, []string{"outcome"})

	// SegmentDurationSeconds observes the measured length of each recorded phase.
	SegmentDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitcap_segment_duration_seconds",
		Help:    "Measured duration of recorded segments",
		Buckets: prometheus.LinearBuckets(0.5, 0.5, 20),
	}, []string{"ordinal"})
)

// ObserveTransition records a recorder state change.
func ObserveTransition(from, to string) {
	RecorderTransitionsTotal.WithLabelValues(from, to).Inc()
}

// ObserveRecordingOutcome records a terminal session outcome.
func ObserveRecordingOutcome(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	RecordingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSegment records the measured duration of one phase.
func ObserveSegment(ordinal string, d time.Duration) {
	SegmentDurationSeconds.WithLabelValues(ordinal).Observe(d.Seconds())
}
