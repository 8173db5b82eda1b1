// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package delivery converts finished recordings to the delivery format and
// hands them to a sink. Delivery runs beside the recorder and never affects
// its state.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/splitcap/internal/bus"
	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/export"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/metrics"
	"github.com/ManuGH/splitcap/internal/recorder"
)

// queueSize bounds assets waiting for a transcode.
const queueSize = 4

// Transcoder converts one asset to a fixed target size.
type Transcoder interface {
	Transcode(ctx context.Context, src string, target domain.Size, output string) (*export.Job, error)
}

// Service transcodes every FinalAssetReady and delivers the result.
type Service struct {
	transcoder Transcoder
	sink       Sink
	files      domain.TemporaryFileStore
	size       domain.Size
	logger     zerolog.Logger
}

// NewService returns a service delivering at size.
func NewService(t Transcoder, sink Sink, files domain.TemporaryFileStore, size domain.Size) *Service {
	return &Service{
		transcoder: t,
		sink:       sink,
		files:      files,
		size:       size,
		logger:     log.WithComponent("delivery"),
	}
}

// Run consumes sub until ctx ends or the subscription closes. The queue is
// drained before Run returns; an in-flight transcode is cancelled with ctx.
func (s *Service) Run(ctx context.Context, sub bus.Subscriber) error {
	queue := make(chan recorder.AssetEvent, queueSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg, ok := <-sub.C():
				if !ok {
					return nil
				}
				ev, ok := msg.(recorder.AssetEvent)
				if !ok {
					continue
				}
				select {
				case queue <- ev:
				default:
					metrics.IncDelivery("dropped")
					s.logger.Warn().
						Str(log.FieldEvent, "delivery.dropped").
						Str(log.FieldSessionID, ev.SessionID).
						Msg("delivery queue full")
				}
			}
		}
	})
	g.Go(func() error {
		for ev := range queue {
			if err := s.Deliver(gctx, ev); err != nil && gctx.Err() == nil {
				s.logger.Error().Err(err).
					Str(log.FieldEvent, "delivery.failed").
					Str(log.FieldSessionID, ev.SessionID).
					Msg("delivery failed")
			}
		}
		return nil
	})
	return g.Wait()
}

// Deliver transcodes one asset and hands it to the sink.
func (s *Service) Deliver(ctx context.Context, ev recorder.AssetEvent) (err error) {
	ctx = log.ContextWithSessionID(ctx, ev.SessionID)
	defer func() {
		switch {
		case err == nil:
			metrics.IncDelivery("delivered")
		case errors.Is(err, domain.ErrExportCancelled):
			metrics.IncDelivery("cancelled")
		default:
			metrics.IncDelivery("failed")
		}
	}()

	out, err := s.files.Allocate("delivery", "mp4")
	if err != nil {
		return fmt.Errorf("delivery: allocate: %w", err)
	}
	defer func() {
		if rerr := s.files.Release(out); rerr != nil {
			s.logger.Warn().Err(rerr).Str(log.FieldPath, out).Msg("failed to release delivery file")
		}
	}()

	job, err := s.transcoder.Transcode(ctx, ev.Asset.Path, s.size, out)
	if err != nil {
		return err
	}
	if err := job.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			return err
		}
		job.Cancel()
		<-job.Done()
		if jerr := job.Err(); jerr != nil {
			return jerr
		}
		return domain.NewError(domain.KindExportCancelled, "delivery.transcode", ctx.Err())
	}

	if err := s.sink.Deliver(ctx, Item{
		SessionID:   ev.SessionID,
		Video:       out,
		Thumbnail:   ev.Asset.Thumbnail,
		Duration:    ev.Asset.Duration,
		ExportJobID: job.ID,
	}); err != nil {
		return err
	}
	logger := log.WithContext(ctx, s.logger)
	logger.Info().
		Str(log.FieldEvent, "delivery.delivered").
		Str(log.FieldJobID, job.ID).
		Int(log.FieldWidth, s.size.Width).
		Int(log.FieldHeight, s.size.Height).
		Msg("recording delivered")
	return nil
}
