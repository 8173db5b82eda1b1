// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package recorder orchestrates the two-phase split capture: record one
// facing, swap cameras, record the other, then compose and export.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/splitcap/internal/bus"
	"github.com/ManuGH/splitcap/internal/capture"
	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/export"
	"github.com/ManuGH/splitcap/internal/fsm"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/metrics"
)

// ErrNotActive is returned by Cancel when no recording is in flight.
var ErrNotActive = errors.New("no active recording")

// publishTimeout bounds how long a slow subscriber can hold up the recorder.
const publishTimeout = 200 * time.Millisecond

// Session is the capture surface the recorder drives.
type Session interface {
	Configure(ctx context.Context, facing domain.Facing) error
	Start(ctx context.Context) error
	ToggleFacing(ctx context.Context) error
	Record(ctx context.Context, path string) (capture.SegmentWriter, error)
	State() capture.State
}

// Prober reads the track layout of a finished segment.
type Prober interface {
	Probe(ctx context.Context, path string) (domain.MediaInfo, error)
}

// Exporter renders timelines and derives thumbnails.
type Exporter interface {
	Export(ctx context.Context, tl domain.CompositionTimeline, output string) (*export.Job, error)
	GenerateThumbnail(ctx context.Context, asset string) ([]byte, error)
}

// Config is captured when a recording starts and fixed for its lifetime.
type Config struct {
	InitialFacing domain.Facing
	DurationA     time.Duration
	DurationB     time.Duration
	// SettleDelay separates the camera swap from the start of phase B.
	SettleDelay time.Duration
	// TickInterval is the progress sampling period.
	TickInterval time.Duration
	// RetainIntermediates keeps segment files and failed export output.
	RetainIntermediates bool
}

// Deps are the collaborators of a Recorder.
type Deps struct {
	Session  Session
	Prober   Prober
	Exporter Exporter
	Files    domain.TemporaryFileStore
	Clock    domain.Clock
	Bus      bus.Bus
}

// Recorder runs one recording at a time.
type Recorder struct {
	deps    Deps
	machine *fsm.Machine[State, event]
	logger  zerolog.Logger

	mu  sync.Mutex
	cfg Config
	cur *run

	snapMu sync.RWMutex
	snap   Snapshot
}

type run struct {
	id     string
	cfg    Config
	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}

	// Owned by the run goroutine.
	segments []string
	output   string
}

// New creates an idle recorder.
func New(deps Deps, cfg Config) (*Recorder, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	m, err := fsm.New(StateIdle, transitions())
	if err != nil {
		return nil, err
	}
	r := &Recorder{
		deps:    deps,
		machine: m,
		logger:  log.WithComponent("recorder"),
		cfg:     cfg,
		snap:    Snapshot{State: StateIdle, UpdatedAt: deps.Clock.Now()},
	}
	m.OnTransition(r.onTransition)
	return r, nil
}

func validateConfig(cfg Config) error {
	switch {
	case !cfg.InitialFacing.Valid():
		return fmt.Errorf("recorder: invalid initial facing %q", cfg.InitialFacing)
	case cfg.DurationA <= 0 || cfg.DurationB <= 0:
		return fmt.Errorf("recorder: phase durations must be positive")
	case cfg.TickInterval <= 0:
		return fmt.Errorf("recorder: tick interval must be positive")
	case cfg.SettleDelay < 0:
		return fmt.Errorf("recorder: settle delay must not be negative")
	}
	return nil
}

// SetConfig replaces the configuration used by the next recording.
func (r *Recorder) SetConfig(cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	return nil
}

// State returns the current machine state.
func (r *Recorder) State() State { return r.machine.State() }

// Snapshot returns the last published status.
func (r *Recorder) Snapshot() Snapshot {
	r.snapMu.RLock()
	defer r.snapMu.RUnlock()
	s := r.snap
	if s.Progress != nil {
		p := *s.Progress
		s.Progress = &p
	}
	if s.Asset != nil {
		a := *s.Asset
		s.Asset = &a
	}
	return s
}

// Subscribe returns a stream of StateEvent, ProgressEvent, AssetEvent and
// ErrorEvent values.
func (r *Recorder) Subscribe(ctx context.Context) (bus.Subscriber, error) {
	return r.deps.Bus.Subscribe(ctx, Topic)
}

// StartRecording begins a new recording and returns its session id. A
// terminal previous recording is discarded first; an active one yields
// ErrBusy. The recording outlives ctx and is stopped only by Cancel or Close.
func (r *Recorder) StartRecording(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev := r.cur; prev != nil {
		if !r.machine.State().IsTerminal() {
			return "", domain.NewError(domain.KindBusy, "recorder.start", nil)
		}
		select {
		case <-prev.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		r.cur = nil
	}
	if r.machine.State().IsTerminal() {
		if _, err := r.machine.Fire(ctx, evReset); err != nil {
			return "", err
		}
	}

	id := uuid.NewString()
	runCtx, cancel := context.WithCancelCause(log.ContextWithSessionID(context.WithoutCancel(ctx), id))
	rn := &run{id: id, cfg: r.cfg, ctx: runCtx, cancel: cancel, done: make(chan struct{})}

	r.snapMu.Lock()
	r.snap = Snapshot{SessionID: id, State: r.machine.State(), UpdatedAt: r.deps.Clock.Now()}
	r.snapMu.Unlock()

	if _, err := r.machine.Fire(runCtx, evStart); err != nil {
		cancel(err)
		return "", err
	}
	r.cur = rn
	go r.execute(rn)
	return id, nil
}

// Cancel stops the active recording. It ends in Failed with
// RecordingCancelled, or ExportCancelled once export has begun.
func (r *Recorder) Cancel() error {
	r.mu.Lock()
	rn := r.cur
	r.mu.Unlock()
	if rn == nil || r.machine.State().IsTerminal() {
		return ErrNotActive
	}
	rn.cancel(domain.ErrRecordingCancelled)
	return nil
}

// Wait blocks until the current recording reaches a terminal state.
func (r *Recorder) Wait(ctx context.Context) (Snapshot, error) {
	r.mu.Lock()
	rn := r.cur
	r.mu.Unlock()
	if rn != nil {
		select {
		case <-rn.done:
		case <-ctx.Done():
			return r.Snapshot(), ctx.Err()
		}
	}
	return r.Snapshot(), nil
}

// Close cancels any active recording and waits for it to finish.
func (r *Recorder) Close() error {
	r.mu.Lock()
	rn := r.cur
	r.mu.Unlock()
	if rn == nil {
		return nil
	}
	rn.cancel(domain.ErrRecordingCancelled)
	<-rn.done
	return nil
}

func (r *Recorder) onTransition(from, to State, ev event) {
	metrics.ObserveTransition(string(from), string(to))
	now := r.deps.Clock.Now()

	r.snapMu.Lock()
	r.snap.State = to
	r.snap.UpdatedAt = now
	if !to.IsRecording() {
		r.snap.Progress = nil
	}
	id := r.snap.SessionID
	r.snapMu.Unlock()

	r.logger.Info().
		Str(log.FieldSessionID, id).
		Str(log.FieldEvent, "recorder.state_changed").
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Str("trigger", string(ev)).
		Msg("recorder state changed")
	r.publish(StateEvent{SessionID: id, From: from, To: to, At: now})
}

func (r *Recorder) publish(msg bus.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	_ = r.deps.Bus.Publish(ctx, Topic, msg)
}

func (r *Recorder) publishProgress(rn *run, p Progress) {
	r.snapMu.Lock()
	r.snap.Progress = &p
	r.snapMu.Unlock()
	r.publish(ProgressEvent{SessionID: rn.id, Progress: p})
}
