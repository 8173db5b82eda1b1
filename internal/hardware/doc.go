// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package hardware binds the capture abstractions to the host: permissions
// derived from configuration and device node access, config-declared
// cameras, and an ffmpeg-driven capture backend.
package hardware
