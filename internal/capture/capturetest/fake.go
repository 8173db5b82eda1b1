// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package capturetest provides in-memory capture collaborators for tests.
package capturetest

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/splitcap/internal/capture"
	"github.com/ManuGH/splitcap/internal/domain"
)

// Backend is a scriptable capture.Backend.
type Backend struct {
	// Delay is slept inside every hardware call to widen race windows.
	Delay time.Duration

	mu        sync.Mutex
	applyErr  error
	startErr  error
	recordErr error
	writeErr  error
	current   *capture.Graph
	applied   []capture.Graph
	running   bool
	starts    int
	stops     int
	writers   []*Writer

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	frames    chan domain.RawFrame
	closeOnce sync.Once
}

// NewBackend returns a fake with a small frame buffer.
func NewBackend() *Backend {
	return &Backend{frames: make(chan domain.RawFrame, 8)}
}

// FailApply makes subsequent Apply calls fail with err (nil clears).
func (b *Backend) FailApply(err error) { b.mu.Lock(); b.applyErr = err; b.mu.Unlock() }

// FailStart makes subsequent Start calls fail with err (nil clears).
func (b *Backend) FailStart(err error) { b.mu.Lock(); b.startErr = err; b.mu.Unlock() }

// FailRecord makes subsequent Record calls fail with err (nil clears).
func (b *Backend) FailRecord(err error) { b.mu.Lock(); b.recordErr = err; b.mu.Unlock() }

// FailWrites makes writers created from now on resolve with err.
func (b *Backend) FailWrites(err error) { b.mu.Lock(); b.writeErr = err; b.mu.Unlock() }

func (b *Backend) enter() func() {
	n := b.inFlight.Add(1)
	for {
		m := b.maxInFlight.Load()
		if n <= m || b.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if b.Delay > 0 {
		time.Sleep(b.Delay)
	}
	return func() { b.inFlight.Add(-1) }
}

func (b *Backend) Apply(_ context.Context, g capture.Graph) error {
	defer b.enter()()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.applyErr != nil {
		return b.applyErr
	}
	b.current = &g
	b.applied = append(b.applied, g)
	return nil
}

func (b *Backend) Start(context.Context) error {
	defer b.enter()()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startErr != nil {
		return b.startErr
	}
	if !b.running {
		b.starts++
	}
	b.running = true
	return nil
}

func (b *Backend) Stop(context.Context) error {
	defer b.enter()()
	b.mu.Lock()
	writers := b.writers
	if b.running {
		b.stops++
	}
	b.running = false
	b.mu.Unlock()
	for _, w := range writers {
		w.Stop()
	}
	return nil
}

func (b *Backend) Record(_ context.Context, path string) (capture.SegmentWriter, error) {
	defer b.enter()()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recordErr != nil {
		return nil, b.recordErr
	}
	w := &Writer{path: path, err: b.writeErr, finished: make(chan struct{})}
	if b.current != nil {
		w.facing = b.current.Facing
	}
	b.writers = append(b.writers, w)
	return w, nil
}

func (b *Backend) Frames() <-chan domain.RawFrame { return b.frames }

func (b *Backend) Close() error {
	b.closeOnce.Do(func() { close(b.frames) })
	return nil
}

// Emit pushes a raw frame to the preview channel.
func (b *Backend) Emit(f domain.RawFrame) { b.frames <- f }

// Current returns the applied graph, if any.
func (b *Backend) Current() (capture.Graph, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return capture.Graph{}, false
	}
	return *b.current, true
}

// Applied returns every graph successfully applied, in order.
func (b *Backend) Applied() []capture.Graph {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]capture.Graph(nil), b.applied...)
}

// Running reports whether the fake session is started.
func (b *Backend) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Counts returns how many effective starts and stops happened.
func (b *Backend) Counts() (starts, stops int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts, b.stops
}

// Writers returns every writer handed out, in order.
func (b *Backend) Writers() []*Writer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Writer(nil), b.writers...)
}

// MaxConcurrent is the highest number of overlapping hardware calls seen.
func (b *Backend) MaxConcurrent() int { return int(b.maxInFlight.Load()) }

// Writer is a fake segment write. Stop writes a placeholder file unless the
// write was scripted to fail.
type Writer struct {
	path     string
	facing   domain.Facing
	err      error
	once     sync.Once
	stopped  atomic.Bool
	finished chan struct{}
}

func (w *Writer) Path() string { return w.path }

// Facing is the facing active when the write began.
func (w *Writer) Facing() domain.Facing { return w.facing }

func (w *Writer) Stop() {
	w.stopped.Store(true)
	w.resolve(nil)
}

// Fail resolves the write with err before it is stopped.
func (w *Writer) Fail(err error) { w.resolve(err) }

func (w *Writer) resolve(err error) {
	w.once.Do(func() {
		if err == nil {
			err = w.err
		}
		if err == nil {
			err = os.WriteFile(w.path, []byte("segment"), 0o600)
		}
		w.err = err
		close(w.finished)
	})
}

// Stopped reports whether Stop was called.
func (w *Writer) Stopped() bool { return w.stopped.Load() }

func (w *Writer) Finished() <-chan struct{} { return w.finished }

func (w *Writer) Err() error { return w.err }

// Devices is a static domain.DeviceEnumerator.
type Devices struct {
	Cameras    map[domain.Facing]*domain.Device
	Microphone *domain.Device
}

// NewDevices returns one 1920x1080@30 camera per facing and a microphone.
func NewDevices() *Devices {
	mk := func(f domain.Facing) *domain.Device {
		hd := domain.Format{Width: 1920, Height: 1080, MaxFPS: 30}
		return &domain.Device{
			ID:          string(f),
			Facing:      f,
			InputFormat: "lavfi",
			Path:        "testsrc2",
			Formats:     []domain.Format{{Width: 640, Height: 480, MaxFPS: 60}, hd},
			Default:     domain.Format{Width: 640, Height: 480, MaxFPS: 60},
		}
	}
	return &Devices{
		Cameras: map[domain.Facing]*domain.Device{
			domain.FacingFront: mk(domain.FacingFront),
			domain.FacingBack:  mk(domain.FacingBack),
		},
		Microphone: &domain.Device{ID: "mic", InputFormat: "lavfi", Path: "sine"},
	}
}

func (d *Devices) DefaultDevice(f domain.Facing) *domain.Device {
	dev, ok := d.Cameras[f]
	if !ok || dev == nil {
		return nil
	}
	cp := *dev
	return &cp
}

func (d *Devices) DefaultMicrophone() *domain.Device { return d.Microphone }

// Permissions is a static domain.PermissionProvider that counts requests.
type Permissions struct {
	Video, Audio bool

	videoRequests atomic.Int32
	audioRequests atomic.Int32
}

func (p *Permissions) RequestVideoAccess(context.Context) bool {
	p.videoRequests.Add(1)
	return p.Video
}

func (p *Permissions) RequestAudioAccess(context.Context) bool {
	p.audioRequests.Add(1)
	return p.Audio
}

// Requests returns how often each permission was asked for.
func (p *Permissions) Requests() (video, audio int) {
	return int(p.videoRequests.Load()), int(p.audioRequests.Load())
}
