// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/splitcap/internal/domain"
)

const tick = 100 * time.Millisecond

func TestComputeProgress_Scenario(t *testing.T) {
	t1, t2 := 3*time.Second, 3*time.Second

	p := ComputeProgress(domain.OrdinalA, 1500*time.Millisecond, t1)
	assert.InDelta(t, 0.5, p.TopBar, 1e-9)
	assert.InDelta(t, 0.25, p.RecordButton, 1e-9)

	end := ComputeProgress(domain.OrdinalA, t1, t1)
	assert.InDelta(t, 1.0, end.TopBar, 1e-9)
	assert.InDelta(t, 0.5, end.RecordButton, 1e-9)

	p = ComputeProgress(domain.OrdinalB, tick, t2)
	assert.Greater(t, p.TopBar, 0.95, "top bar resets toward 1 after the boundary")

	p = ComputeProgress(domain.OrdinalB, 1500*time.Millisecond, t2)
	assert.InDelta(t, 0.5, p.TopBar, 1e-9)
	assert.InDelta(t, 0.75, p.RecordButton, 1e-9)

	p = ComputeProgress(domain.OrdinalB, t2, t2)
	assert.InDelta(t, 1.0, p.RecordButton, 1e-9)
	assert.InDelta(t, 0.0, p.TopBar, 1e-9)
}

func TestComputeProgress_Boundaries(t *testing.T) {
	t1, t2 := 2500*time.Millisecond, 3500*time.Millisecond
	assert.Equal(t, 0.0, ComputeProgress(domain.OrdinalA, 0, t1).RecordButton)
	assert.InDelta(t, 0.5, ComputeProgress(domain.OrdinalA, t1, t1).RecordButton, 0.5*tick.Seconds()/t1.Seconds())
	assert.InDelta(t, 0.5, ComputeProgress(domain.OrdinalB, 0, t2).RecordButton, 1e-9)
	assert.InDelta(t, 1.0, ComputeProgress(domain.OrdinalB, t2, t2).RecordButton, 1e-9)
	assert.InDelta(t, 1.0, ComputeProgress(domain.OrdinalB, t2+tick, t2).RecordButton, 1e-9, "clamped after the phase")
}

func TestComputeProgress_Monotonic(t *testing.T) {
	t1, t2 := 3*time.Second, 3*time.Second
	prevTop, prevButton := -1.0, -1.0
	for el := time.Duration(0); el <= t1; el += 10 * time.Millisecond {
		p := ComputeProgress(domain.OrdinalA, el, t1)
		assert.GreaterOrEqual(t, p.TopBar, prevTop)
		assert.GreaterOrEqual(t, p.RecordButton, prevButton)
		prevTop, prevButton = p.TopBar, p.RecordButton
	}
	assert.InDelta(t, 0.5, prevButton, 1e-9)

	prevTop = 2.0
	for el := time.Duration(0); el <= t2; el += 10 * time.Millisecond {
		p := ComputeProgress(domain.OrdinalB, el, t2)
		assert.LessOrEqual(t, p.TopBar, prevTop)
		assert.GreaterOrEqual(t, p.RecordButton, prevButton, "record button is continuous across phases")
		prevTop, prevButton = p.TopBar, p.RecordButton
	}
}

func TestComputeProgress_Countdown(t *testing.T) {
	d := 6 * time.Second
	tests := []struct {
		elapsed   time.Duration
		countdown int
		show      bool
	}{
		{0, 0, false},
		{2900 * time.Millisecond, 0, false},
		{3 * time.Second, 3, true},
		{3100 * time.Millisecond, 3, true},
		{4 * time.Second, 2, true},
		{5500 * time.Millisecond, 1, true},
		{5850 * time.Millisecond, 1, true},
		{5950 * time.Millisecond, 1, false},
		{d, 0, false},
	}
	for _, tt := range tests {
		p := ComputeProgress(domain.OrdinalA, tt.elapsed, d)
		assert.Equal(t, tt.countdown, p.Countdown, "elapsed=%v", tt.elapsed)
		assert.Equal(t, tt.show, p.ShowCountdown, "elapsed=%v", tt.elapsed)
	}
}

func TestComputeProgress_ZeroDuration(t *testing.T) {
	p := ComputeProgress(domain.OrdinalA, time.Second, 0)
	assert.Equal(t, Progress{Phase: domain.OrdinalA, Elapsed: time.Second}, p)
}
