// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package hardware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/splitcap/internal/capture"
	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/media/ffmpeg"
	"github.com/ManuGH/splitcap/internal/media/ffmpeg/watchdog"
	"github.com/ManuGH/splitcap/internal/metrics"
)

var (
	// ErrNotRunning is returned by Record when the session is stopped.
	ErrNotRunning = errors.New("capture session not running")
	// ErrRecordingInProgress is returned by Record while a segment is open.
	ErrRecordingInProgress = errors.New("segment write already in progress")
	// ErrEmptySegment is reported when a finalized segment has no bytes.
	ErrEmptySegment = errors.New("segment file is empty")
)

// BackendOptions tunes the ffmpeg capture backend.
type BackendOptions struct {
	// PreviewWidth bounds the width of raw preview frames.
	PreviewWidth int
	// Preset and CRF configure the segment encoder.
	Preset string
	CRF    int
	// FinalizeTimeout bounds SIGINT -> SIGKILL for segment writers.
	FinalizeTimeout time.Duration
	// KillTimeout bounds SIGTERM -> SIGKILL for preview processes.
	KillTimeout time.Duration
	// FrameBuffer is the raw frame channel capacity.
	FrameBuffer int
	// StartTimeout bounds the wait for the first frame of a segment write.
	StartTimeout time.Duration
	// StallTimeout aborts a segment write whose frames stop arriving.
	StallTimeout time.Duration
}

// Backend runs the camera through ffmpeg. A preview process feeds raw frames
// while the session is idle; a record process replaces it for the length of a
// segment write and feeds the preview from the same capture.
type Backend struct {
	runner *ffmpeg.Runner
	opts   BackendOptions
	clock  domain.Clock
	logger zerolog.Logger

	mu        sync.Mutex
	graph     *capture.Graph
	running   bool
	preview   *ffmpeg.Process
	recording *segmentWriter

	frameMu sync.RWMutex
	frames  chan domain.RawFrame
	closed  bool
}

var _ capture.Backend = (*Backend)(nil)

// NewBackend creates a backend using runner for every ffmpeg process.
func NewBackend(runner *ffmpeg.Runner, clk domain.Clock, opts BackendOptions) *Backend {
	if opts.PreviewWidth <= 0 {
		opts.PreviewWidth = 640
	}
	if opts.FinalizeTimeout <= 0 {
		opts.FinalizeTimeout = 10 * time.Second
	}
	if opts.KillTimeout <= 0 {
		opts.KillTimeout = 5 * time.Second
	}
	if opts.FrameBuffer <= 0 {
		opts.FrameBuffer = 4
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 10 * time.Second
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = 5 * time.Second
	}
	return &Backend{
		runner: runner,
		opts:   opts,
		clock:  clk,
		logger: log.WithComponent("capture.ffmpeg"),
		frames: make(chan domain.RawFrame, opts.FrameBuffer),
	}
}

// Apply validates g and makes it the session graph. A running preview is
// restarted on the new graph; if that fails the previous graph is restored.
func (b *Backend) Apply(ctx context.Context, g capture.Graph) error {
	if err := validateGraph(g); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recording != nil {
		return ErrRecordingInProgress
	}
	prev := b.graph
	b.graph = &g
	if !b.running {
		return nil
	}
	b.stopPreviewLocked()
	if err := b.startPreviewLocked(ctx); err != nil {
		b.graph = prev
		if prev != nil {
			_ = b.startPreviewLocked(ctx)
		}
		return err
	}
	return nil
}

func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	if b.graph == nil {
		return errors.New("capture graph not applied")
	}
	if err := b.startPreviewLocked(ctx); err != nil {
		return err
	}
	b.running = true
	return nil
}

// Stop finalizes any open segment and stops the preview.
func (b *Backend) Stop(context.Context) error {
	b.mu.Lock()
	b.running = false
	w := b.recording
	b.stopPreviewLocked()
	b.mu.Unlock()

	if w != nil {
		w.Stop()
		<-w.Finished()
	}
	return nil
}

// Record swaps the preview process for one that also writes path.
func (b *Backend) Record(ctx context.Context, path string) (capture.SegmentWriter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running || b.graph == nil {
		return nil, ErrNotRunning
	}
	if b.recording != nil {
		return nil, ErrRecordingInProgress
	}

	spec := captureSpec(*b.graph, b.opts.PreviewWidth)
	args := ffmpeg.RecordArgs(spec, ffmpeg.SegmentOutput{
		Path:   path,
		Mirror: b.graph.Mirrored,
		Preset: b.opts.Preset,
		CRF:    b.opts.CRF,
	})

	b.stopPreviewLocked()
	wd := watchdog.New(b.clock, b.opts.StartTimeout, b.opts.StallTimeout)
	proc, err := b.runner.Start(ctx, ffmpeg.Job{
		Role: "record",
		Args: args,
		Stdout: ffmpeg.NewFrameWriter(spec.Preview, b.clock.Now, func(f domain.RawFrame) {
			wd.Beat()
			b.emit(f)
		}),
	})
	if err != nil {
		if restartErr := b.startPreviewLocked(ctx); restartErr != nil {
			b.logger.Warn().Err(restartErr).Msg("preview restart failed")
		}
		return nil, err
	}

	w := newSegmentWriter(path, proc, b.opts.FinalizeTimeout, wd)
	b.recording = w
	go b.afterSegment(w)

	logger := log.WithContext(ctx, b.logger)
	logger.Info().
		Str(log.FieldEvent, "capture.segment_started").
		Str(log.FieldPath, path).
		Str(log.FieldFacing, string(b.graph.Facing)).
		Msg("segment write started")
	return w, nil
}

// afterSegment returns the session to preview-only once the write resolves.
func (b *Backend) afterSegment(w *segmentWriter) {
	<-w.Finished()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recording == w {
		b.recording = nil
	}
	if b.running && b.preview == nil {
		if err := b.startPreviewLocked(context.Background()); err != nil {
			b.logger.Error().Err(err).Str(log.FieldEvent, "capture.preview_restart_failed").Msg("preview restart failed")
		}
	}
}

func (b *Backend) Frames() <-chan domain.RawFrame { return b.frames }

// Close stops every process and closes the frame channel.
func (b *Backend) Close() error {
	_ = b.Stop(context.Background())
	b.frameMu.Lock()
	defer b.frameMu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.frames)
	}
	return nil
}

// emit drops the frame when the consumer lags.
func (b *Backend) emit(f domain.RawFrame) {
	b.frameMu.RLock()
	defer b.frameMu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.frames <- f:
	default:
	}
}

func (b *Backend) startPreviewLocked(ctx context.Context) error {
	spec := captureSpec(*b.graph, b.opts.PreviewWidth)
	proc, err := b.runner.Start(ctx, ffmpeg.Job{
		Role:   "preview",
		Args:   ffmpeg.PreviewArgs(spec),
		Stdout: ffmpeg.NewFrameWriter(spec.Preview, b.clock.Now, b.emit),
	})
	if err != nil {
		return err
	}
	b.preview = proc
	return nil
}

func (b *Backend) stopPreviewLocked() {
	if b.preview == nil {
		return
	}
	if err := b.preview.Terminate(b.opts.KillTimeout); err != nil {
		b.logger.Debug().Err(err).Msg("preview exited with error")
	}
	b.preview = nil
}

func validateGraph(g capture.Graph) error {
	if g.Device.InputFormat == "" || g.Device.Path == "" {
		return fmt.Errorf("device %q has no input", g.Device.ID)
	}
	if g.Format.Width <= 0 || g.Format.Height <= 0 {
		return fmt.Errorf("invalid capture format %dx%d", g.Format.Width, g.Format.Height)
	}
	if g.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %v", g.FPS)
	}
	if g.Microphone != nil && (g.Microphone.InputFormat == "" || g.Microphone.Path == "") {
		return fmt.Errorf("microphone %q has no input", g.Microphone.ID)
	}
	return nil
}

func captureSpec(g capture.Graph, previewWidth int) ffmpeg.CaptureSpec {
	spec := ffmpeg.CaptureSpec{
		Video: ffmpeg.Input{
			Format: g.Device.InputFormat,
			Path:   g.Device.Path,
			Width:  g.Format.Width,
			Height: g.Format.Height,
			FPS:    g.FPS,
		},
		Preview: ffmpeg.PreviewSize(domain.Size{Width: g.Format.Width, Height: g.Format.Height}, previewWidth),
	}
	if g.Microphone != nil {
		spec.Audio = &ffmpeg.Input{Format: g.Microphone.InputFormat, Path: g.Microphone.Path}
	}
	return spec
}

// segmentWriter resolves once: on a clean finalize after Stop, on an
// unexpected exit of the record process, or when its frames stall.
type segmentWriter struct {
	path      string
	proc      *ffmpeg.Process
	grace     time.Duration
	stopping  atomic.Bool
	stopGuard context.CancelFunc
	once      sync.Once
	finished  chan struct{}
	err       error
}

func newSegmentWriter(path string, proc *ffmpeg.Process, grace time.Duration, wd *watchdog.Watchdog) *segmentWriter {
	ctx, cancel := context.WithCancel(context.Background())
	w := &segmentWriter{path: path, proc: proc, grace: grace, stopGuard: cancel, finished: make(chan struct{})}
	go w.watch()
	if wd != nil {
		go w.guard(ctx, wd)
	} else {
		cancel()
	}
	return w
}

func (w *segmentWriter) Path() string { return w.path }

func (w *segmentWriter) Stop() {
	if !w.stopping.CompareAndSwap(false, true) {
		return
	}
	go func() {
		w.resolve(w.proc.Finalize(w.grace))
	}()
}

func (w *segmentWriter) watch() {
	<-w.proc.Done()
	if w.stopping.Load() {
		return
	}
	err := w.proc.Err()
	if err == nil {
		err = errors.New("record process exited before stop")
	}
	w.resolve(err)
}

// guard terminates the write when the watchdog fires.
func (w *segmentWriter) guard(ctx context.Context, wd *watchdog.Watchdog) {
	err := wd.Run(ctx)
	if err == nil || !w.stopping.CompareAndSwap(false, true) {
		return
	}
	metrics.IncCaptureStall(wd.State().String())
	_ = w.proc.Terminate(w.grace)
	w.resolve(fmt.Errorf("segment %s: %w", filepath.Base(w.path), err))
}

func (w *segmentWriter) resolve(err error) {
	w.once.Do(func() {
		w.stopGuard()
		if err == nil {
			err = checkSegment(w.path)
		}
		w.err = err
		close(w.finished)
	})
}

func (w *segmentWriter) Finished() <-chan struct{} { return w.finished }

func (w *segmentWriter) Err() error { return w.err }

func checkSegment(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return ErrEmptySegment
	}
	return nil
}
