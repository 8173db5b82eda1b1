// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package watchdog detects a capture process that stopped producing frames.
package watchdog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
)

type State int

const (
	StateStarting State = iota
	StateRunning
	StateStalled
	StateTimedOut
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStalled:
		return "stalled"
	case StateTimedOut:
		return "timed_out"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

var (
	// ErrStartTimeout is returned when no frame arrives within the start timeout.
	ErrStartTimeout = errors.New("watchdog: no frames before start timeout")
	// ErrStalled is returned when frames stop for longer than the stall timeout.
	ErrStalled = errors.New("watchdog: frame stream stalled")
)

const (
	minInterval = 10 * time.Millisecond
	maxInterval = time.Second
)

// Watchdog enforces a start timeout until the first frame and a stall
// timeout between frames.
type Watchdog struct {
	clock        domain.Clock
	startTimeout time.Duration
	stallTimeout time.Duration
	interval     time.Duration

	mu       sync.Mutex
	lastBeat time.Time
	frames   int64
	state    State
}

// New arms a watchdog. The start timeout counts from now.
func New(clk domain.Clock, startTimeout, stallTimeout time.Duration) *Watchdog {
	interval := min(startTimeout, stallTimeout) / 4
	interval = max(minInterval, min(interval, maxInterval))
	return &Watchdog{
		clock:        clk,
		startTimeout: startTimeout,
		stallTimeout: stallTimeout,
		interval:     interval,
		lastBeat:     clk.Now(),
		state:        StateStarting,
	}
}

// Beat records one frame.
func (w *Watchdog) Beat() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames++
	w.lastBeat = w.clock.Now()
	if w.state == StateStarting {
		w.state = StateRunning
	}
}

// Run checks the heartbeat until ctx ends. It returns ErrStartTimeout or
// ErrStalled when a timeout expires, and nil once ctx is done.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.state == StateStarting || w.state == StateRunning {
				w.state = StateStopped
			}
			w.mu.Unlock()
			return nil
		case <-ticker.C():
			if err := w.check(); err != nil {
				return err
			}
		}
	}
}

func (w *Watchdog) check() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := w.clock.Since(w.lastBeat)
	switch w.state {
	case StateStarting:
		if elapsed > w.startTimeout {
			w.state = StateTimedOut
			return ErrStartTimeout
		}
	case StateRunning:
		if elapsed > w.stallTimeout {
			w.state = StateStalled
			return ErrStalled
		}
	}
	return nil
}

// State returns the current watchdog state.
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Frames returns the number of beats seen.
func (w *Watchdog) Frames() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}
