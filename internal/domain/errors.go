// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package domain

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures for callers and the UI layer.
type Kind string

const (
	KindUnknown              Kind = "unknown"
	KindPermissionDenied     Kind = "permission_denied"
	KindDeviceUnavailable    Kind = "device_unavailable"
	KindConfigurationFailed  Kind = "configuration_failed"
	KindRecordingWriteFailed Kind = "recording_write_failed"
	KindRecordingCancelled   Kind = "recording_cancelled"
	KindMissingTrack         Kind = "missing_track"
	KindExportFailed         Kind = "export_failed"
	KindExportCancelled      Kind = "export_cancelled"
	KindBusy                 Kind = "busy"
)

// Sentinels for errors.Is matching. Wrapped by *Error.
var (
	ErrPermissionDenied     = errors.New("permission denied")
	ErrDeviceUnavailable    = errors.New("device unavailable")
	ErrConfigurationFailed  = errors.New("configuration failed")
	ErrRecordingWriteFailed = errors.New("recording write failed")
	ErrRecordingCancelled   = errors.New("recording cancelled")
	ErrMissingTrack         = errors.New("missing track")
	ErrExportFailed         = errors.New("export failed")
	ErrExportCancelled      = errors.New("export cancelled")
	ErrBusy                 = errors.New("recording session already active")
)

var kindSentinels = map[Kind]error{
	KindPermissionDenied:     ErrPermissionDenied,
	KindDeviceUnavailable:    ErrDeviceUnavailable,
	KindConfigurationFailed:  ErrConfigurationFailed,
	KindRecordingWriteFailed: ErrRecordingWriteFailed,
	KindRecordingCancelled:   ErrRecordingCancelled,
	KindMissingTrack:         ErrMissingTrack,
	KindExportFailed:         ErrExportFailed,
	KindExportCancelled:      ErrExportCancelled,
	KindBusy:                 ErrBusy,
}

// Error is a typed pipeline error carrying its kind and the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError wraps err with kind and op. A nil err is replaced by the kind sentinel.
func NewError(kind Kind, op string, err error) *Error {
	if err == nil {
		err = kindSentinels[kind]
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind, so errors.Is(err, ErrExportFailed)
// holds for any *Error of KindExportFailed regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// KindOf extracts the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	for k, s := range kindSentinels {
		if errors.Is(err, s) {
			return k
		}
	}
	return KindUnknown
}
