// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/splitcap/internal/api"
	"github.com/ManuGH/splitcap/internal/bus"
	"github.com/ManuGH/splitcap/internal/capture"
	"github.com/ManuGH/splitcap/internal/clock"
	"github.com/ManuGH/splitcap/internal/compose"
	"github.com/ManuGH/splitcap/internal/config"
	"github.com/ManuGH/splitcap/internal/delivery"
	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/export"
	"github.com/ManuGH/splitcap/internal/hardware"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/media/ffmpeg"
	"github.com/ManuGH/splitcap/internal/preview"
	"github.com/ManuGH/splitcap/internal/recorder"
	"github.com/ManuGH/splitcap/internal/telemetry"
	"github.com/ManuGH/splitcap/internal/tempstore"
)

// stopTimeout bounds the capture session teardown at shutdown.
const stopTimeout = 5 * time.Second

// app is the wired component graph of the daemon.
type app struct {
	cfg    config.AppConfig
	logger zerolog.Logger

	tracing  *telemetry.Provider
	files    *tempstore.Store
	jobs     export.Store
	session  *capture.Controller
	preview  *preview.Processor
	latest   *preview.Latest
	exporter *export.Exporter
	recorder *recorder.Recorder
	delivery *delivery.Service
	server   *api.Server
}

func newApp(ctx context.Context, cfg config.AppConfig) (_ *app, err error) {
	a := &app{cfg: cfg, logger: log.WithComponent("daemon")}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.tracing, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	a.files, err = tempstore.New(cfg.Storage.TempDir)
	if err != nil {
		return nil, err
	}
	a.jobs, err = export.NewStore(cfg.Storage.JobStore, cfg.Storage.JobDB)
	if err != nil {
		return nil, fmt.Errorf("job store: %w", err)
	}

	clk := clock.Real{}
	runner := ffmpeg.NewRunner(cfg.FFmpeg.Bin, cfg.FFmpeg.KillTimeout)
	prober := ffmpeg.NewProber(cfg.FFmpeg.FFprobeBin)

	backend := hardware.NewBackend(runner, clk, hardware.BackendOptions{
		FinalizeTimeout: cfg.FFmpeg.FinalizeTimeout,
		KillTimeout:     cfg.FFmpeg.KillTimeout,
		StartTimeout:    cfg.FFmpeg.StartTimeout,
		StallTimeout:    cfg.FFmpeg.StallTimeout,
	})
	a.session = capture.NewController(backend,
		hardware.NewPermissions(cfg.Capture),
		hardware.NewDevices(cfg.Capture),
		domain.SessionConfig{
			TargetFPS:          cfg.Capture.TargetFPS,
			MinWidth:           cfg.Capture.MinWidth,
			Preset:             cfg.Capture.Preset,
			OrientationDegrees: compose.OutputRotation,
		})

	a.preview = preview.NewProcessor(a.session.Frames(),
		func() domain.Facing { return a.session.State().Facing },
		previewOptions(cfg))
	a.latest = &preview.Latest{}

	a.exporter = export.New(runner, prober, a.jobs, clk, export.Options{
		Preset:           cfg.Export.Preset,
		CRF:              cfg.Export.CRF,
		VideoBitrate:     cfg.Export.VideoBitrate,
		AudioBitrate:     cfg.Export.AudioBitrate,
		ThumbnailWidth:   cfg.Export.ThumbnailWidth,
		ThumbnailQuality: cfg.Export.ThumbnailQuality,
	})

	a.recorder, err = recorder.New(recorder.Deps{
		Session:  a.session,
		Prober:   prober,
		Exporter: a.exporter,
		Files:    a.files,
		Clock:    clk,
		Bus:      bus.NewMemoryBus(),
	}, recorderConfig(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.Delivery.Enabled {
		sink, err := delivery.NewDirSink(cfg.Delivery.OutboxDir)
		if err != nil {
			return nil, err
		}
		a.delivery = delivery.NewService(a.exporter, sink, a.files,
			domain.Size{Width: cfg.Export.DeliveryWidth, Height: cfg.Export.DeliveryHeight})
	}

	a.server = api.New(api.Config{
		ListenAddr:         cfg.API.ListenAddr,
		RateLimitPerMinute: cfg.API.RateLimitPerMinute,
		ShutdownTimeout:    cfg.API.ShutdownTimeout,
		ServiceName:        cfg.LogService,
	}, api.Deps{
		Recorder: a.recorder,
		Preview:  a.latest,
		Jobs:     a.jobs,
		Ready:    a.ready,
	})
	return a, nil
}

func recorderConfig(cfg config.AppConfig) recorder.Config {
	return recorder.Config{
		InitialFacing:       cfg.Capture.InitialFacing,
		DurationA:           cfg.Recording.DurationA,
		DurationB:           cfg.Recording.DurationB(),
		SettleDelay:         cfg.Recording.SettleDelay,
		TickInterval:        cfg.Recording.TickInterval,
		RetainIntermediates: cfg.Recording.RetainIntermediates,
	}
}

// previewOptions gates preview at the session's capture rate so a camera
// running at target speed is never throttled.
func previewOptions(cfg config.AppConfig) preview.Options {
	return preview.Options{
		TargetFPS:       cfg.Capture.TargetFPS,
		Workers:         cfg.Capture.PreviewWorkers,
		RotationDegrees: compose.OutputRotation,
	}
}

// ready fails while the scratch directory is gone.
func (a *app) ready(context.Context) error {
	if _, err := os.Stat(a.files.Root()); err != nil {
		return fmt.Errorf("temp store: %w", err)
	}
	return nil
}

// run serves until ctx is cancelled, applying config reloads to the next
// recording.
func (a *app) run(ctx context.Context, reloads <-chan config.AppConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sub bus.Subscriber
	if a.delivery != nil {
		var err error
		if sub, err = a.recorder.Subscribe(ctx); err != nil {
			return fmt.Errorf("delivery subscription: %w", err)
		}
	}
	frames, err := a.preview.Frames(ctx)
	if err != nil {
		if sub != nil {
			_ = sub.Close()
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.latest.Run(gctx, frames)
		return nil
	})
	if sub != nil {
		g.Go(func() error {
			defer func() { _ = sub.Close() }()
			return a.delivery.Run(gctx, sub)
		})
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case cfg := <-reloads:
				if err := a.recorder.SetConfig(recorderConfig(cfg)); err != nil {
					a.logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_rejected").Msg("recording config not applied")
					continue
				}
				a.logger.Info().Str(log.FieldEvent, "config.reload_applied").Msg("recording config applies to the next recording")
			}
		}
	})
	g.Go(a.server.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		return a.server.Shutdown(context.WithoutCancel(gctx))
	})

	a.logger.Info().
		Str(log.FieldEvent, "daemon.started").
		Str("temp_dir", a.files.Root()).
		Bool("delivery", a.delivery != nil).
		Msg("splitcapd started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// close tears components down in dependency order. It tolerates a
// partially built app.
func (a *app) close() {
	if a.recorder != nil {
		_ = a.recorder.Close()
	}
	if a.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		if err := a.session.Stop(ctx); err != nil && !errors.Is(err, capture.ErrClosed) {
			a.logger.Warn().Err(err).Msg("failed to stop capture session")
		}
		cancel()
		_ = a.session.Close()
	}
	if a.jobs != nil {
		if err := a.jobs.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close job store")
		}
	}
	if a.files != nil {
		if err := a.files.Cleanup(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to clean temp store")
		}
	}
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("failed to flush traces")
		}
		cancel()
	}
}
