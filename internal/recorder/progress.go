// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recorder

import (
	"math"
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
)

// countdownWindow is how much remaining phase time shows a countdown.
const countdownWindow = 3.0

// Progress is the UI-facing progress of the current phase.
type Progress struct {
	Phase   domain.Ordinal `json:"phase"`
	Elapsed time.Duration  `json:"elapsed"`
	// TopBar grows 0 -> 1 during phase A and shrinks 1 -> 0 during phase B.
	TopBar float64 `json:"top_bar"`
	// RecordButton covers 0 -> 0.5 in phase A and 0.5 -> 1 in phase B.
	RecordButton  float64 `json:"record_button"`
	Countdown     int     `json:"countdown"`
	ShowCountdown bool    `json:"show_countdown"`
}

// ComputeProgress evaluates the progress formulas at elapsed time t into a
// phase of length phaseDuration.
func ComputeProgress(phase domain.Ordinal, t, phaseDuration time.Duration) Progress {
	p := Progress{Phase: phase, Elapsed: t}
	if phaseDuration <= 0 {
		return p
	}
	ratio := t.Seconds() / phaseDuration.Seconds()
	switch phase {
	case domain.OrdinalA:
		p.TopBar = math.Min(1, ratio)
		p.RecordButton = ratio * 0.5
	default:
		p.TopBar = math.Max(0, 1-ratio)
		p.RecordButton = 0.5 + math.Min(1, ratio)*0.5
	}

	remaining := (phaseDuration - t).Seconds()
	if remaining <= countdownWindow {
		p.Countdown = int(math.Max(0, math.Ceil(remaining)))
		p.ShowCountdown = remaining > 0.1
	}
	return p
}
