// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package domain holds the types shared by the capture, recording, composition
// and export layers. It has no dependencies on hardware or ffmpeg.
package domain

import (
	"image"
	"time"
)

// Facing identifies which physical camera is active.
type Facing string

const (
	FacingFront Facing = "front"
	FacingBack  Facing = "back"
)

// Opposite returns the other facing.
func (f Facing) Opposite() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// Valid reports whether f is a known facing.
func (f Facing) Valid() bool {
	return f == FacingFront || f == FacingBack
}

// Format is one capture mode a camera supports.
type Format struct {
	Width  int     `yaml:"width" json:"width"`
	Height int     `yaml:"height" json:"height"`
	MaxFPS float64 `yaml:"max_fps" json:"max_fps"`
}

// Device identifies a physical camera or microphone.
// Devices are replaced, never mutated, when the session toggles facing.
type Device struct {
	ID          string
	Facing      Facing
	InputFormat string // ffmpeg demuxer, e.g. "v4l2", "avfoundation", "alsa"
	Path        string // device node or demuxer-specific name
	Formats     []Format
	// Default is used when no format satisfies the session requirements.
	Default Format
}

// SessionConfig is applied to one session generation and never changed afterwards.
type SessionConfig struct {
	TargetFPS float64
	MinWidth  int
	Preset    string
	// OrientationDegrees is the fixed landscape correction applied to the output.
	OrientationDegrees int
}

// Ordinal labels the two phases of a split capture.
type Ordinal string

const (
	OrdinalA Ordinal = "A"
	OrdinalB Ordinal = "B"
)

// Segment is one phase's captured media.
type Segment struct {
	Ordinal        Ordinal
	Path           string
	Facing         Facing
	ActualDuration time.Duration
	Media          MediaInfo
}

// MediaInfo is the probed track layout of a media container.
type MediaInfo struct {
	Container string
	Duration  time.Duration
	Video     *VideoTrack
	Audio     *AudioTrack
}

// VideoTrack describes the primary video track.
type VideoTrack struct {
	Codec  string
	Width  int
	Height int
	FPS    float64
}

// AudioTrack describes the primary audio track.
type AudioTrack struct {
	Codec      string
	SampleRate int
	Channels   int
}

// Size is a frame size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Swapped returns the size with width and height exchanged.
func (s Size) Swapped() Size {
	return Size{Width: s.Height, Height: s.Width}
}

// TrackKind distinguishes video and audio timeline entries.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// TimelineEntry places one track of a segment on the composition timeline.
type TimelineEntry struct {
	Kind     TrackKind
	Segment  Ordinal
	Source   string
	Offset   time.Duration
	Duration time.Duration
}

// Transform is a 2D affine transform in the column-vector convention:
//
//	x' = A*x + C*y + TX
//	y' = B*x + D*y + TY
type Transform struct {
	A, B, C, D float64
	TX, TY     float64
	// RotationDegrees is the clockwise rotation encoded by the matrix.
	RotationDegrees int
}

// Apply maps a point through the transform.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return t.A*x + t.C*y + t.TX, t.B*x + t.D*y + t.TY
}

// IsIdentity reports whether the transform leaves points unchanged.
func (t Transform) IsIdentity() bool {
	return t.A == 1 && t.B == 0 && t.C == 0 && t.D == 1 && t.TX == 0 && t.TY == 0
}

// CompositionTimeline is built once per recording session and consumed once by the exporter.
type CompositionTimeline struct {
	Segments    []Segment
	Entries     []TimelineEntry
	Transform   Transform
	NaturalSize Size
	RenderSize  Size
	Duration    time.Duration
}

// Tracks returns the entries of one kind in timeline order.
func (c CompositionTimeline) Tracks(kind TrackKind) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(c.Entries))
	for _, e := range c.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// JobStatus is the lifecycle of an export job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsTerminal returns true if the status is final.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// JobKind distinguishes composition exports from ad-hoc transcodes.
type JobKind string

const (
	JobKindExport    JobKind = "export"
	JobKindTranscode JobKind = "transcode"
)

// RawFrame is an unprocessed frame from the capture session.
type RawFrame struct {
	Image     *image.RGBA
	Timestamp time.Time
}

// PreviewFrame is a display-ready frame. It is never persisted.
type PreviewFrame struct {
	Image     *image.RGBA
	Timestamp time.Time
	Facing    Facing
}
