// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Recording attributes
	SessionIDKey       = "recording.session_id"
	RecordingStateKey  = "recording.state"
	SegmentOrdinalKey  = "recording.segment"
	SegmentFacingKey   = "recording.facing"
	SegmentDurationKey = "recording.segment_duration_ms"

	// Composition attributes
	RenderWidthKey  = "composition.render_width"
	RenderHeightKey = "composition.render_height"
	HasAudioKey     = "composition.has_audio"

	// Job attributes
	JobIDKey       = "job.id"
	JobTypeKey     = "job.type"
	JobStatusKey   = "job.status"
	JobDurationKey = "job.duration_ms"

	// Transcode attributes
	TranscodeResolutionKey = "transcode.resolution"
	TranscodeBitrateKey    = "transcode.bitrate"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SegmentAttributes creates span attributes for one recorded segment.
func SegmentAttributes(ordinal, facing string, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SegmentOrdinalKey, ordinal),
		attribute.String(SegmentFacingKey, facing),
		attribute.Int64(SegmentDurationKey, durationMS),
	}
}

// CompositionAttributes creates span attributes describing a composed timeline.
func CompositionAttributes(renderWidth, renderHeight int, hasAudio bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(RenderWidthKey, renderWidth),
		attribute.Int(RenderHeightKey, renderHeight),
		attribute.Bool(HasAudioKey, hasAudio),
	}
}

// JobAttributes creates job-related span attributes. Empty id is omitted.
func JobAttributes(jobID, jobType, status string, durationMS int64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if jobID != "" {
		attrs = append(attrs, attribute.String(JobIDKey, jobID))
	}
	return append(attrs,
		attribute.String(JobTypeKey, jobType),
		attribute.String(JobStatusKey, status),
		attribute.Int64(JobDurationKey, durationMS),
	)
}

// TranscodeAttributes creates delivery-transcode span attributes.
func TranscodeAttributes(resolution, bitrate string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TranscodeResolutionKey, resolution),
		attribute.String(TranscodeBitrateKey, bitrate),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
