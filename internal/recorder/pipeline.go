// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/splitcap/internal/compose"
	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/metrics"
	"github.com/ManuGH/splitcap/internal/telemetry"
)

// execute drives one recording from Configuring to a terminal state.
func (r *Recorder) execute(rn *run) {
	defer close(rn.done)
	defer rn.cancel(nil)

	ctx, span := telemetry.StartSpan(rn.ctx, "recorder.session")
	asset, err := r.pipeline(ctx, rn)
	telemetry.EndSpan(span, err)

	if err != nil {
		r.cleanup(ctx, rn, true)
		r.fail(ctx, rn, err)
		return
	}
	r.cleanup(ctx, rn, false)

	r.snapMu.Lock()
	r.snap.Asset = &asset
	r.snapMu.Unlock()

	if _, err := r.machine.Fire(ctx, evExportCompleted); err != nil {
		r.logger.Error().Err(err).Str(log.FieldSessionID, rn.id).Msg("ready transition rejected")
		return
	}
	r.publish(AssetEvent{SessionID: rn.id, Asset: asset})
	metrics.ObserveRecordingOutcome("ready")
	logger := log.WithContext(ctx, r.logger)
	logger.Info().
		Str(log.FieldEvent, "recorder.ready").
		Str(log.FieldFinalPath, asset.Path).
		Dur(log.FieldDuration, asset.Duration).
		Msg("recording ready")
}

func (r *Recorder) pipeline(ctx context.Context, rn *run) (Asset, error) {
	s := r.deps.Session
	cfg := rn.cfg

	if err := s.Configure(ctx, cfg.InitialFacing); err != nil {
		return Asset{}, r.interrupted(ctx, err)
	}
	if err := s.Start(ctx); err != nil {
		return Asset{}, r.interrupted(ctx, err)
	}
	if err := r.advance(ctx, evConfigured); err != nil {
		return Asset{}, err
	}

	segA, err := r.recordPhase(ctx, rn, domain.OrdinalA, cfg.DurationA)
	if err != nil {
		return Asset{}, err
	}
	if err := r.advance(ctx, evSegmentAFinished); err != nil {
		return Asset{}, err
	}

	if err := s.ToggleFacing(ctx); err != nil {
		return Asset{}, r.interrupted(ctx, err)
	}
	if cfg.SettleDelay > 0 {
		select {
		case <-r.deps.Clock.After(cfg.SettleDelay):
		case <-ctx.Done():
			return Asset{}, cancelled(ctx, "recorder.swap")
		}
	}
	if err := r.advance(ctx, evCameraSwapped); err != nil {
		return Asset{}, err
	}

	segB, err := r.recordPhase(ctx, rn, domain.OrdinalB, cfg.DurationB)
	if err != nil {
		return Asset{}, err
	}
	if err := r.advance(ctx, evSegmentBFinished); err != nil {
		return Asset{}, err
	}

	tl, err := r.combine(ctx, segA, segB)
	if err != nil {
		return Asset{}, err
	}
	if err := r.advance(ctx, evTimelineBuilt); err != nil {
		return Asset{}, err
	}

	return r.export(ctx, rn, tl)
}

// advance fires ev unless the recording was cancelled in the meantime.
func (r *Recorder) advance(ctx context.Context, ev event) error {
	if ctx.Err() != nil {
		return cancelled(ctx, "recorder."+string(ev))
	}
	_, err := r.machine.Fire(ctx, ev)
	return err
}

// interrupted prefers the cancellation over an error it caused.
func (r *Recorder) interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return cancelled(ctx, "recorder")
	}
	return err
}

func cancelled(ctx context.Context, op string) error {
	return domain.NewError(domain.KindRecordingCancelled, op, context.Cause(ctx))
}

// recordPhase writes one segment for d, sampling progress every tick.
func (r *Recorder) recordPhase(ctx context.Context, rn *run, ord domain.Ordinal, d time.Duration) (domain.Segment, error) {
	op := "recorder.record_" + strings.ToLower(string(ord))
	path, err := r.deps.Files.Allocate("segment-"+strings.ToLower(string(ord)), "mp4")
	if err != nil {
		return domain.Segment{}, domain.NewError(domain.KindRecordingWriteFailed, op, err)
	}
	rn.segments = append(rn.segments, path)

	facing := r.deps.Session.State().Facing
	w, err := r.deps.Session.Record(ctx, path)
	if err != nil {
		return domain.Segment{}, r.interrupted(ctx, err)
	}

	clk := r.deps.Clock
	start := clk.Now()
	r.publishProgress(rn, ComputeProgress(ord, 0, d))
	ticker := clk.NewTicker(rn.cfg.TickInterval)
	defer ticker.Stop()

	logger := log.WithContext(ctx, r.logger)
	logger.Debug().
		Str(log.FieldEvent, "recorder.segment_started").
		Str(log.FieldOrdinal, string(ord)).
		Str(log.FieldFacing, string(facing)).
		Str(log.FieldPath, path).
		Msg("segment started")

	var elapsed time.Duration
sample:
	for {
		select {
		case <-ticker.C():
			elapsed = clk.Since(start)
			r.publishProgress(rn, ComputeProgress(ord, min(elapsed, d), d))
			if elapsed >= d {
				w.Stop()
				break sample
			}
		case <-w.Finished():
			err := w.Err()
			if err == nil {
				err = errors.New("segment write ended before the phase elapsed")
			}
			return domain.Segment{}, domain.NewError(domain.KindRecordingWriteFailed, op, err)
		case <-ctx.Done():
			w.Stop()
			<-w.Finished()
			return domain.Segment{}, cancelled(ctx, op)
		}
	}

	<-w.Finished()
	if err := w.Err(); err != nil {
		return domain.Segment{}, domain.NewError(domain.KindRecordingWriteFailed, op, err)
	}
	if ctx.Err() != nil {
		return domain.Segment{}, cancelled(ctx, op)
	}

	metrics.ObserveSegment(string(ord), elapsed)
	logger.Info().
		Str(log.FieldEvent, "recorder.segment_finalized").
		Str(log.FieldOrdinal, string(ord)).
		Dur(log.FieldDuration, elapsed).
		Msg("segment finalized")
	return domain.Segment{Ordinal: ord, Path: path, Facing: facing, ActualDuration: elapsed}, nil
}

// combine probes both segments concurrently and builds the timeline. A
// probed container duration replaces the wall-clock measurement.
func (r *Recorder) combine(ctx context.Context, a, b domain.Segment) (domain.CompositionTimeline, error) {
	segs := []*domain.Segment{&a, &b}
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range segs {
		g.Go(func() error {
			info, err := r.deps.Prober.Probe(gctx, s.Path)
			if err != nil {
				return domain.NewError(domain.KindRecordingWriteFailed, "recorder.probe", fmt.Errorf("segment %s: %w", s.Ordinal, err))
			}
			s.Media = info
			if info.Duration > 0 {
				s.ActualDuration = info.Duration
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.CompositionTimeline{}, r.interrupted(ctx, err)
	}

	for _, s := range segs {
		_, span := telemetry.StartSpan(ctx, "recorder.segment",
			telemetry.SegmentAttributes(string(s.Ordinal), string(s.Facing), s.ActualDuration.Milliseconds())...)
		telemetry.EndSpan(span, nil)
	}
	return compose.Build(ctx, a, b)
}

// export renders the timeline and derives the thumbnail. Cancelling the
// recording cancels the export job.
func (r *Recorder) export(ctx context.Context, rn *run, tl domain.CompositionTimeline) (Asset, error) {
	output, err := r.deps.Files.Allocate("export", "mp4")
	if err != nil {
		return Asset{}, domain.NewError(domain.KindExportFailed, "recorder.export", err)
	}
	rn.output = output

	job, err := r.deps.Exporter.Export(ctx, tl, output)
	if err != nil {
		return Asset{}, err
	}
	logger := log.WithContext(ctx, r.logger)
	logger.Info().
		Str(log.FieldEvent, "recorder.export_started").
		Str(log.FieldJobID, job.ID).
		Dur(log.FieldDuration, tl.Duration).
		Msg("export started")

	if err := job.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			return Asset{}, err
		}
		job.Cancel()
		<-job.Done()
		if jerr := job.Err(); jerr != nil {
			return Asset{}, jerr
		}
		return Asset{}, domain.NewError(domain.KindExportCancelled, "recorder.export", context.Cause(ctx))
	}

	thumb, err := r.deps.Exporter.GenerateThumbnail(ctx, output)
	if err != nil {
		return Asset{}, r.interrupted(ctx, domain.NewError(domain.KindExportFailed, "recorder.thumbnail", err))
	}
	return Asset{Path: output, Thumbnail: thumb, Duration: tl.Duration, ExportJobID: job.ID}, nil
}

// fail moves the machine to Failed and reports the error kind.
func (r *Recorder) fail(ctx context.Context, rn *run, err error) {
	kind := domain.KindOf(err)
	r.snapMu.Lock()
	r.snap.ErrorKind = kind
	r.snap.Error = err.Error()
	r.snapMu.Unlock()

	if _, ferr := r.machine.Fire(context.WithoutCancel(ctx), evFail); ferr != nil {
		r.logger.Error().Err(ferr).Str(log.FieldSessionID, rn.id).Msg("fail transition rejected")
	}

	metrics.ObserveRecordingOutcome(string(kind))
	logger := log.WithContext(ctx, r.logger)
	logger.Error().Err(err).
		Str(log.FieldEvent, "recorder.failed").
		Str(log.FieldErrKind, string(kind)).
		Msg("recording failed")
	r.publish(ErrorEvent{SessionID: rn.id, Kind: kind, Err: err})
}

// cleanup deletes intermediates unless they are retained. Segments go after
// every run; export output only when the run failed.
func (r *Recorder) cleanup(ctx context.Context, rn *run, failed bool) {
	if rn.cfg.RetainIntermediates {
		return
	}
	paths := append([]string(nil), rn.segments...)
	if failed && rn.output != "" {
		paths = append(paths, rn.output)
	}
	for _, p := range paths {
		if err := r.deps.Files.Release(p); err != nil {
			logger := log.WithContext(ctx, r.logger)
			logger.Warn().Err(err).Str(log.FieldPath, p).Msg("failed to release intermediate")
		}
	}
}
