// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package capture owns the camera session: permission checks, device and
// format selection, and the serialized configure/start/stop/toggle lifecycle.
package capture

import (
	"context"

	"github.com/ManuGH/splitcap/internal/domain"
)

// Graph is the complete input/output configuration of one session generation.
type Graph struct {
	Facing     domain.Facing
	Device     domain.Device
	Format     domain.Format
	FPS        float64
	Mirrored   bool
	Microphone *domain.Device
	// OrientationDegrees is the fixed clockwise correction for the sensor.
	OrientationDegrees int
}

// SegmentWriter is one in-flight segment write.
type SegmentWriter interface {
	Path() string
	// Stop requests the write to finalize. It does not block and may be called
	// more than once.
	Stop()
	// Finished is closed exactly once, when the file is finalized or the write failed.
	Finished() <-chan struct{}
	// Err reports the write outcome. Only valid after Finished is closed.
	Err() error
}

// Backend drives the capture hardware. Implementations are not required to be
// safe for concurrent use; Controller serializes every call except Frames.
type Backend interface {
	// Apply atomically replaces the session graph. On error the previous
	// graph stays in effect.
	Apply(ctx context.Context, g Graph) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Record begins writing a segment of the running session to path.
	Record(ctx context.Context, path string) (SegmentWriter, error)
	// Frames delivers raw preview frames. The channel is closed by Close.
	Frames() <-chan domain.RawFrame
	Close() error
}
