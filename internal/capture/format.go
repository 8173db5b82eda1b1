// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import "github.com/ManuGH/splitcap/internal/domain"

// SelectFormat returns the first format with MaxFPS >= targetFPS and
// Width >= minWidth, or fallback when none qualifies. ok reports whether a
// listed format matched.
func SelectFormat(formats []domain.Format, targetFPS float64, minWidth int, fallback domain.Format) (f domain.Format, ok bool) {
	for _, f := range formats {
		if f.MaxFPS >= targetFPS && f.Width >= minWidth {
			return f, true
		}
	}
	return fallback, false
}

// EffectiveFPS is the frame rate applied to a format: the target, capped by
// what the format supports when it declares a maximum.
func EffectiveFPS(f domain.Format, targetFPS float64) float64 {
	if f.MaxFPS > 0 && f.MaxFPS < targetFPS {
		return f.MaxFPS
	}
	return targetFPS
}
