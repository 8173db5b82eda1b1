// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func getHistogramCount(t *testing.T, vec *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	o, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, o.(prometheus.Histogram).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestIncBusDropReason_NormalizesEmptyLabels(t *testing.T) {
	initial := getCounterVecValue(t, BusDroppedTotal, "unknown", "unknown")

	IncBusDropReason("", "")

	assert.Equal(t, initial+1, getCounterVecValue(t, BusDroppedTotal, "unknown", "unknown"))
}

func TestObserveRecordingOutcome_DefaultsUnknown(t *testing.T) {
	initial := getCounterVecValue(t, RecordingsTotal, "unknown")

	ObserveRecordingOutcome("")

	assert.Equal(t, initial+1, getCounterVecValue(t, RecordingsTotal, "unknown"))
}

func TestObserveExport_CountsAndTimes(t *testing.T) {
	initialCount := getCounterVecValue(t, ExportJobsTotal, "export", "succeeded")
	initialObs := getHistogramCount(t, ExportDurationSeconds, "export")

	ObserveExport("export", "succeeded", 3*time.Second)

	assert.Equal(t, initialCount+1, getCounterVecValue(t, ExportJobsTotal, "export", "succeeded"))
	assert.Equal(t, initialObs+1, getHistogramCount(t, ExportDurationSeconds, "export"))
}

func TestObserveSegment_RecordsPerOrdinal(t *testing.T) {
	initial := getHistogramCount(t, SegmentDurationSeconds, "b")

	ObserveSegment("b", 3*time.Second)

	assert.Equal(t, initial+1, getHistogramCount(t, SegmentDurationSeconds, "b"))
}

func TestObserveHTTPRequest_UsesStatusCode(t *testing.T) {
	initial := getHistogramCount(t, HTTPRequestDuration, http.MethodPost, "/api/v1/recordings", "202")

	ObserveHTTPRequest(http.MethodPost, "/api/v1/recordings", http.StatusAccepted, 5*time.Millisecond)

	assert.Equal(t, initial+1, getHistogramCount(t, HTTPRequestDuration, http.MethodPost, "/api/v1/recordings", "202"))
}

func TestCaptureCounters(t *testing.T) {
	initial := getCounterVecValue(t, CaptureStallsTotal, "stalled")
	IncCaptureStall("stalled")
	assert.Equal(t, initial+1, getCounterVecValue(t, CaptureStallsTotal, "stalled"))

	before := getCounterVecValue(t, ProcessStartsTotal, "export", "ok")
	IncProcessStart("export", "ok")
	assert.Equal(t, before+1, getCounterVecValue(t, ProcessStartsTotal, "export", "ok"))
}
