// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionReconfigurationsTotal counts capture session configure attempts.
	SessionReconfigurationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_capture_reconfigurations_total",
		Help: "Capture session reconfigurations by facing and result",
	}, []string{"facing", "result"})

	// PreviewFramesTotal counts raw preview frames by outcome.
	PreviewFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_preview_frames_total",
		Help: "Preview frames by outcome (delivered, throttled, busy, stale)",
	}, []string{"outcome"})

	// CaptureStallsTotal counts segment writes aborted by the frame watchdog.
	CaptureStallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_capture_stalls_total",
		Help: "Segment writes aborted because frames stopped (timed_out, stalled)",
	}, []string{"reason"})
)

// IncReconfiguration records one configure attempt.
func IncReconfiguration(facing, result string) {
	SessionReconfigurationsTotal.WithLabelValues(facing, result).Inc()
}

// IncPreviewFrame records one preview frame outcome.
func IncPreviewFrame(outcome string) {
	PreviewFramesTotal.WithLabelValues(outcome).Inc()
}

// IncCaptureStall records one watchdog abort.
func IncCaptureStall(reason string) {
	CaptureStallsTotal.WithLabelValues(reason).Inc()
}
