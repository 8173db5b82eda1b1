// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/metrics"
)

// ErrClosed is returned for operations submitted after Close.
var ErrClosed = errors.New("capture: controller closed")

// State is a point-in-time view of the session.
type State struct {
	Facing     domain.Facing
	Configured bool
	Running    bool
	Mirrored   bool
	HasAudio   bool
}

type op struct {
	ctx  context.Context
	name string
	fn   func(context.Context) error
	res  chan error
}

// Controller is the only owner of the capture Backend. Every hardware
// operation runs on a single serial queue goroutine.
type Controller struct {
	backend     Backend
	permissions domain.PermissionProvider
	devices     domain.DeviceEnumerator
	cfg         domain.SessionConfig
	logger      zerolog.Logger

	ops       chan op
	quit      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once

	// Owned by the queue goroutine; mirrored into state under mu for readers.
	graph   *Graph
	running bool

	mu    sync.RWMutex
	state State
}

// NewController starts the session queue. Close releases it.
func NewController(backend Backend, permissions domain.PermissionProvider, devices domain.DeviceEnumerator, cfg domain.SessionConfig) *Controller {
	c := &Controller{
		backend:     backend,
		permissions: permissions,
		devices:     devices,
		cfg:         cfg,
		logger:      log.WithComponent("capture"),
		ops:         make(chan op),
		quit:        make(chan struct{}),
		loopDone:    make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case o := <-c.ops:
			if err := o.ctx.Err(); err != nil {
				o.res <- err
				continue
			}
			o.res <- o.fn(o.ctx)
		case <-c.quit:
			return
		}
	}
}

// do runs fn on the session queue and waits for it. An operation that has
// been dequeued always runs to completion; ctx is passed through to it.
func (c *Controller) do(ctx context.Context, name string, fn func(context.Context) error) error {
	o := op{ctx: ctx, name: name, fn: fn, res: make(chan error, 1)}
	select {
	case c.ops <- o:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.quit:
		return ErrClosed
	}
	return <-o.res
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Frames exposes the backend's raw preview frames.
func (c *Controller) Frames() <-chan domain.RawFrame {
	return c.backend.Frames()
}

// Configure checks permissions, selects a device and format for facing and
// atomically applies the resulting graph. The session is left stopped.
func (c *Controller) Configure(ctx context.Context, facing domain.Facing) error {
	return c.do(ctx, "configure", func(ctx context.Context) error {
		return c.configure(ctx, facing)
	})
}

// Start starts the configured session. Starting a running session is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	return c.do(ctx, "start", c.start)
}

// Stop stops the session. Stopping a stopped session is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	return c.do(ctx, "stop", c.stop)
}

// ToggleFacing stops the session, configures the opposite facing and starts
// again, as one queued operation. It must not be called while a segment write
// is in flight.
func (c *Controller) ToggleFacing(ctx context.Context) error {
	return c.do(ctx, "toggle", func(ctx context.Context) error {
		if c.graph == nil {
			return domain.NewError(domain.KindConfigurationFailed, "capture.toggle", errors.New("session not configured"))
		}
		next := c.graph.Facing.Opposite()
		if err := c.stop(ctx); err != nil {
			return err
		}
		if err := c.configure(ctx, next); err != nil {
			return err
		}
		return c.start(ctx)
	})
}

// Record begins writing a segment from the running session.
func (c *Controller) Record(ctx context.Context, path string) (SegmentWriter, error) {
	var w SegmentWriter
	err := c.do(ctx, "record", func(ctx context.Context) error {
		if c.graph == nil || !c.running {
			return domain.NewError(domain.KindRecordingWriteFailed, "capture.record", errors.New("session not running"))
		}
		var err error
		w, err = c.backend.Record(ctx, path)
		if err != nil {
			return domain.NewError(domain.KindRecordingWriteFailed, "capture.record", err)
		}
		return nil
	})
	return w, err
}

// Close stops the session, waits for the queue to drain and closes the backend.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.do(context.Background(), "stop", c.stop)
		close(c.quit)
		<-c.loopDone
		err = c.backend.Close()
	})
	return err
}

func (c *Controller) configure(ctx context.Context, facing domain.Facing) error {
	logger := log.WithContext(ctx, c.logger).With().Str(log.FieldFacing, string(facing)).Logger()

	if !c.permissions.RequestVideoAccess(ctx) {
		metrics.IncReconfiguration(string(facing), "permission_denied")
		logger.Warn().Str(log.FieldEvent, "capture.permission_denied").Msg("camera access denied")
		return domain.NewError(domain.KindPermissionDenied, "capture.configure", nil)
	}
	audio := c.permissions.RequestAudioAccess(ctx)
	if !audio {
		logger.Info().Str(log.FieldEvent, "capture.audio_denied").Msg("microphone access denied, recording without audio")
	}

	dev := c.devices.DefaultDevice(facing)
	if dev == nil {
		metrics.IncReconfiguration(string(facing), "device_unavailable")
		logger.Warn().Str(log.FieldEvent, "capture.device_unavailable").Msg("no camera for facing")
		return domain.NewError(domain.KindDeviceUnavailable, "capture.configure", nil)
	}

	format, matched := SelectFormat(dev.Formats, c.cfg.TargetFPS, c.cfg.MinWidth, dev.Default)
	g := Graph{
		Facing:             facing,
		Device:             *dev,
		Format:             format,
		FPS:                EffectiveFPS(format, c.cfg.TargetFPS),
		Mirrored:           facing == domain.FacingFront,
		OrientationDegrees: c.cfg.OrientationDegrees,
	}
	if audio {
		g.Microphone = c.devices.DefaultMicrophone()
	}

	if c.running {
		if err := c.stop(ctx); err != nil {
			return err
		}
	}
	if err := c.backend.Apply(ctx, g); err != nil {
		metrics.IncReconfiguration(string(facing), "failed")
		logger.Error().Err(err).Str(log.FieldEvent, "capture.configure_failed").Msg("session configuration rolled back")
		return domain.NewError(domain.KindDeviceUnavailable, "capture.configure", err)
	}
	c.graph = &g
	c.publish()

	metrics.IncReconfiguration(string(facing), "ok")
	logger.Info().
		Str(log.FieldEvent, "capture.configured").
		Str(log.FieldDevice, dev.ID).
		Int(log.FieldWidth, format.Width).
		Int(log.FieldHeight, format.Height).
		Float64(log.FieldFPS, g.FPS).
		Bool(log.FieldMirrored, g.Mirrored).
		Bool("format_matched", matched).
		Bool("audio", g.Microphone != nil).
		Msg("capture session configured")
	return nil
}

func (c *Controller) start(ctx context.Context) error {
	if c.running {
		return nil
	}
	if c.graph == nil {
		return domain.NewError(domain.KindConfigurationFailed, "capture.start", errors.New("session not configured"))
	}
	if err := c.backend.Start(ctx); err != nil {
		return domain.NewError(domain.KindDeviceUnavailable, "capture.start", err)
	}
	c.running = true
	c.publish()
	c.logger.Debug().Str(log.FieldEvent, "capture.started").Msg("capture session started")
	return nil
}

func (c *Controller) stop(ctx context.Context) error {
	if !c.running {
		return nil
	}
	if err := c.backend.Stop(ctx); err != nil {
		return domain.NewError(domain.KindDeviceUnavailable, "capture.stop", err)
	}
	c.running = false
	c.publish()
	c.logger.Debug().Str(log.FieldEvent, "capture.stopped").Msg("capture session stopped")
	return nil
}

func (c *Controller) publish() {
	s := State{Running: c.running}
	if c.graph != nil {
		s.Configured = true
		s.Facing = c.graph.Facing
		s.Mirrored = c.graph.Mirrored
		s.HasAudio = c.graph.Microphone != nil
	}
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
