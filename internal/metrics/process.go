// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_proc_terminate_total",
		Help: "Signals sent to child process groups by result",
	}, []string{"signal", "result"})

	procWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_proc_wait_total",
		Help: "Child process exits observed during termination",
	}, []string{"outcome"})

	// ProcessStartsTotal counts ffmpeg/ffprobe starts by role and result.
	ProcessStartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitcap_process_start_total",
		Help: "Child process starts by role and result",
	}, []string{"role", "result"})
)

// IncProcTerminate records a termination signal attempt.
func IncProcTerminate(signal, result string) {
	procTerminateTotal.WithLabelValues(signal, result).Inc()
}

// IncProcWait records how a terminated process exited.
func IncProcWait(outcome string) {
	procWaitTotal.WithLabelValues(outcome).Inc()
}

// IncProcessStart records a child process start.
func IncProcessStart(role, result string) {
	ProcessStartsTotal.WithLabelValues(role, result).Inc()
}
