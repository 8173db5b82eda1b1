// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recorder

import (
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
)

// Topic is the bus topic every recorder event is published on.
const Topic = "recorder"

// StateEvent reports a committed transition.
type StateEvent struct {
	SessionID string
	From      State
	To        State
	At        time.Time
}

// ProgressEvent carries one progress sample.
type ProgressEvent struct {
	SessionID string
	Progress  Progress
}

// Asset is the finished deliverable of a recording.
type Asset struct {
	Path        string        `json:"path"`
	Thumbnail   []byte        `json:"-"`
	Duration    time.Duration `json:"duration"`
	ExportJobID string        `json:"export_job_id"`
}

// AssetEvent is published once per successful recording.
type AssetEvent struct {
	SessionID string
	Asset     Asset
}

// ErrorEvent is published when a recording fails.
type ErrorEvent struct {
	SessionID string
	Kind      domain.Kind
	Err       error
}

// Snapshot is the last known recorder status.
type Snapshot struct {
	SessionID string      `json:"session_id,omitempty"`
	State     State       `json:"state"`
	Progress  *Progress   `json:"progress,omitempty"`
	ErrorKind domain.Kind `json:"error_kind,omitempty"`
	Error     string      `json:"error,omitempty"`
	Asset     *Asset      `json:"asset,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}
