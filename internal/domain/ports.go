// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package domain

import (
	"context"
	"time"
)

// PermissionProvider resolves platform capture permissions. Each call may
// return immediately (already granted/denied) or block on a user prompt.
type PermissionProvider interface {
	RequestVideoAccess(ctx context.Context) bool
	RequestAudioAccess(ctx context.Context) bool
}

// DeviceEnumerator locates capture hardware.
type DeviceEnumerator interface {
	// DefaultDevice returns the camera for facing, or nil when none is present.
	DefaultDevice(facing Facing) *Device
	// DefaultMicrophone returns the audio input, or nil when none is present.
	DefaultMicrophone() *Device
}

// TemporaryFileStore hands out writable paths scoped to the process lifetime.
type TemporaryFileStore interface {
	Allocate(prefix, ext string) (string, error)
	Release(path string) error
}

// Ticker is the subset of *time.Ticker the pipeline relies on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock is a monotonic time source.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	NewTicker(d time.Duration) Ticker
	After(d time.Duration) <-chan time.Time
}
