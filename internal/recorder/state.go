// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recorder

import "github.com/ManuGH/splitcap/internal/fsm"

// State is the lifecycle of a two-phase recording.
type State string

const (
	StateIdle           State = "idle"
	StateConfiguring    State = "configuring"
	StateRecordingA     State = "recording_a"
	StateSwappingCamera State = "swapping_camera"
	StateRecordingB     State = "recording_b"
	StateCombining      State = "combining"
	StateExporting      State = "exporting"
	StateReady          State = "ready"
	StateFailed         State = "failed"
)

// IsTerminal reports whether the state waits for a fresh start.
func (s State) IsTerminal() bool {
	return s == StateReady || s == StateFailed
}

// IsRecording reports whether a segment write is in progress.
func (s State) IsRecording() bool {
	return s == StateRecordingA || s == StateRecordingB
}

type event string

const (
	evStart            event = "start"
	evConfigured       event = "configured"
	evSegmentAFinished event = "segment_a_finalized"
	evCameraSwapped    event = "camera_swapped"
	evSegmentBFinished event = "segment_b_finalized"
	evTimelineBuilt    event = "timeline_built"
	evExportCompleted  event = "export_completed"
	evFail             event = "fail"
	evReset            event = "reset"
)

func transitions() []fsm.Transition[State, event] {
	ts := []fsm.Transition[State, event]{
		{From: StateIdle, Event: evStart, To: StateConfiguring},
		{From: StateConfiguring, Event: evConfigured, To: StateRecordingA},
		{From: StateRecordingA, Event: evSegmentAFinished, To: StateSwappingCamera},
		{From: StateSwappingCamera, Event: evCameraSwapped, To: StateRecordingB},
		{From: StateRecordingB, Event: evSegmentBFinished, To: StateCombining},
		{From: StateCombining, Event: evTimelineBuilt, To: StateExporting},
		{From: StateExporting, Event: evExportCompleted, To: StateReady},
		{From: StateReady, Event: evReset, To: StateIdle},
		{From: StateFailed, Event: evReset, To: StateIdle},
	}
	for _, s := range []State{StateIdle, StateConfiguring, StateRecordingA, StateSwappingCamera, StateRecordingB, StateCombining, StateExporting} {
		ts = append(ts, fsm.Transition[State, event]{From: s, Event: evFail, To: StateFailed})
	}
	return ts
}
