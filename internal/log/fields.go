// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Capture fields
	FieldFacing   = "facing"
	FieldDevice   = "device"
	FieldOrdinal  = "ordinal"
	FieldFPS      = "fps"
	FieldWidth    = "width"
	FieldHeight   = "height"
	FieldMirrored = "mirrored"

	// Media fields
	FieldCodec      = "codec"
	FieldResolution = "resolution"
	FieldDuration   = "duration"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldErrKind  = "error_kind"

	// Path fields
	FieldPath      = "path"
	FieldFinalPath = "final_path"
)
