// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup starts child processes in their own process group so that
// ffmpeg and anything it spawns can be signalled and reaped together.
package procgroup

import "errors"

var (
	ErrProcessNotFound = errors.New("process not found")
	ErrKillFailed      = errors.New("kill operation failed")
)
