// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package export renders composition timelines and single assets to encoded
// files and derives thumbnails. Every render is an asynchronous Job.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/media/ffmpeg"
	"github.com/ManuGH/splitcap/internal/metrics"
	"github.com/ManuGH/splitcap/internal/telemetry"
)

// ErrInvalidTarget is returned for a delivery size that cannot be encoded.
var ErrInvalidTarget = errors.New("target size must be positive and even")

// Runner executes one ffmpeg job to completion.
type Runner interface {
	Run(ctx context.Context, job ffmpeg.Job) error
}

// Prober reads the track layout of a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (domain.MediaInfo, error)
}

// Options configures encoder quality.
type Options struct {
	Preset           string
	CRF              int
	VideoBitrate     string
	AudioBitrate     string
	ThumbnailWidth   int
	ThumbnailQuality int
}

// Exporter starts export, transcode and thumbnail work.
type Exporter struct {
	runner Runner
	prober Prober
	store  Store
	clock  domain.Clock
	opts   Options
	logger zerolog.Logger
}

// New creates an exporter. store may be nil when jobs need not be recorded.
func New(runner Runner, prober Prober, store Store, clk domain.Clock, opts Options) *Exporter {
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = 360
	}
	if opts.ThumbnailQuality <= 0 {
		opts.ThumbnailQuality = 50
	}
	return &Exporter{
		runner: runner,
		prober: prober,
		store:  store,
		clock:  clk,
		opts:   opts,
		logger: log.WithComponent("export"),
	}
}

// Export renders tl to output at the configured quality, applying the
// timeline's rotation and render size.
func (e *Exporter) Export(ctx context.Context, tl domain.CompositionTimeline, output string) (*Job, error) {
	args, err := ffmpeg.ExportArgs(tl, ffmpeg.ExportOptions{
		Path:         output,
		Preset:       e.opts.Preset,
		CRF:          e.opts.CRF,
		AudioBitrate: e.opts.AudioBitrate,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindExportFailed, "export.export", err)
	}
	source := ""
	if len(tl.Segments) > 0 {
		source = tl.Segments[0].Path
	}
	attrs := telemetry.CompositionAttributes(tl.RenderSize.Width, tl.RenderSize.Height, len(tl.Tracks(domain.TrackAudio)) > 0)
	return e.start(ctx, domain.JobKindExport, source, output, func(ctx context.Context) error {
		trace.SpanFromContext(ctx).SetAttributes(attrs...)
		return e.runner.Run(ctx, ffmpeg.Job{Role: "export", Args: args})
	}), nil
}

// Transcode converts src to the delivery codec at target, scaling uniformly
// to fit and never cropping.
func (e *Exporter) Transcode(ctx context.Context, src string, target domain.Size, output string) (*Job, error) {
	if target.Width <= 0 || target.Height <= 0 || target.Width%2 != 0 || target.Height%2 != 0 {
		return nil, domain.NewError(domain.KindExportFailed, "export.transcode", ErrInvalidTarget)
	}
	return e.start(ctx, domain.JobKindTranscode, src, output, func(ctx context.Context) error {
		info, err := e.prober.Probe(ctx, src)
		if err != nil {
			return err
		}
		if info.Video == nil {
			return fmt.Errorf("%s: %w", src, domain.ErrMissingTrack)
		}
		size := domain.Size{Width: info.Video.Width, Height: info.Video.Height}
		res := fmt.Sprintf("%dx%d", target.Width, target.Height)
		trace.SpanFromContext(ctx).SetAttributes(telemetry.TranscodeAttributes(res, e.opts.VideoBitrate)...)
		return e.runner.Run(ctx, ffmpeg.Job{
			Role: "transcode",
			Args: ffmpeg.TranscodeArgs(src, size, ffmpeg.TranscodeOptions{
				Path:         output,
				Target:       target,
				VideoBitrate: e.opts.VideoBitrate,
				AudioBitrate: e.opts.AudioBitrate,
			}),
		})
	}), nil
}

// start registers a job and runs fn on its own goroutine. The job outlives
// ctx; only Cancel stops it.
func (e *Exporter) start(ctx context.Context, kind domain.JobKind, source, output string, fn func(context.Context) error) *Job {
	jctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j := newJob(uuid.NewString(), kind, source, output, cancel, e.clock.Now())
	jctx = log.ContextWithJobID(jctx, j.ID)
	e.persist(jctx, j)

	go func() {
		defer cancel()
		logger := log.WithContext(jctx, e.logger).With().Str("kind", string(kind)).Logger()

		started := e.clock.Now()
		j.setRunning(started)
		e.persist(jctx, j)

		spanCtx, span := telemetry.StartSpan(jctx, "export."+string(kind),
			telemetry.JobAttributes(j.ID, string(kind), string(domain.JobRunning), 0)...)
		err := fn(spanCtx)
		elapsed := e.clock.Since(started)

		status := domain.JobCompleted
		switch {
		case err == nil:
		case jctx.Err() != nil:
			status = domain.JobCancelled
			err = domain.NewError(domain.KindExportCancelled, "export."+string(kind), err)
		default:
			status = domain.JobFailed
			err = domain.NewError(domain.KindExportFailed, "export."+string(kind), err)
		}
		span.SetAttributes(telemetry.JobAttributes("", string(kind), string(status), elapsed.Milliseconds())...)
		telemetry.EndSpan(span, err)
		metrics.ObserveExport(string(kind), string(status), elapsed)

		j.finish(status, err, e.clock.Now())
		e.persist(jctx, j)

		ev := logger.Info()
		if status == domain.JobFailed {
			ev = logger.Error().Err(err)
		}
		ev.Str(log.FieldEvent, "export."+string(status)).
			Str(log.FieldPath, output).
			Dur(log.FieldDuration, elapsed).
			Msg("export job finished")
	}()
	return j
}

func (e *Exporter) persist(ctx context.Context, j *Job) {
	if e.store == nil {
		return
	}
	if err := e.store.Put(context.WithoutCancel(ctx), j.Record()); err != nil {
		e.logger.Warn().Err(err).Str(log.FieldJobID, j.ID).Msg("failed to record export job")
	}
}
