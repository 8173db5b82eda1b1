// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSegmentAttributes(t *testing.T) {
	attrs := SegmentAttributes("A", "front", 3012)

	verifyAttribute(t, attrs, SegmentOrdinalKey, "A")
	verifyAttribute(t, attrs, SegmentFacingKey, "front")
	verifyInt64Attribute(t, attrs, SegmentDurationKey, 3012)
}

func TestCompositionAttributes(t *testing.T) {
	attrs := CompositionAttributes(1080, 1920, false)

	verifyInt64Attribute(t, attrs, RenderWidthKey, 1080)
	verifyInt64Attribute(t, attrs, RenderHeightKey, 1920)
	verifyBoolAttribute(t, attrs, HasAudioKey, false)
}

func TestJobAttributes(t *testing.T) {
	attrs := JobAttributes("job-1", "export", "completed", 1500)
	if len(attrs) != 4 {
		t.Fatalf("Expected 4 attributes, got %d", len(attrs))
	}
	verifyAttribute(t, attrs, JobIDKey, "job-1")
	verifyAttribute(t, attrs, JobTypeKey, "export")
	verifyAttribute(t, attrs, JobStatusKey, "completed")
	verifyInt64Attribute(t, attrs, JobDurationKey, 1500)

	if got := len(JobAttributes("", "transcode", "running", 0)); got != 3 {
		t.Errorf("Expected empty job id to be omitted, got %d attributes", got)
	}
}

func TestTranscodeAttributes(t *testing.T) {
	attrs := TranscodeAttributes("720x1280", "3500k")
	verifyAttribute(t, attrs, TranscodeResolutionKey, "720x1280")
	verifyAttribute(t, attrs, TranscodeBitrateKey, "3500k")
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes("export_failed")
	verifyBoolAttribute(t, attrs, ErrorKey, true)
	verifyAttribute(t, attrs, ErrorTypeKey, "export_failed")
}

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, expectedValue string) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsString() != expectedValue {
				t.Errorf("Expected %s=%s, got %s", key, expectedValue, attr.Value.AsString())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyInt64Attribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int64) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsInt64() != expectedValue {
				t.Errorf("Expected %s=%d, got %d", key, expectedValue, attr.Value.AsInt64())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyBoolAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue bool) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsBool() != expectedValue {
				t.Errorf("Expected %s=%t, got %t", key, expectedValue, attr.Value.AsBool())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
