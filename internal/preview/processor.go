// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package preview turns raw capture frames into a throttled, oriented live
// preview for a single consumer.
package preview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/metrics"
)

// ErrAlreadyConsumed is returned when Frames is called a second time.
var ErrAlreadyConsumed = errors.New("preview: sequence already consumed")

// headroom widens the admission rate so a source running exactly at the
// target rate is not throttled by timestamp jitter.
const headroom = 1.1

// Options configures a Processor.
type Options struct {
	// TargetFPS is the nominal preview rate. Frames closer together than
	// 1/(TargetFPS*1.1) are dropped.
	TargetFPS float64
	// Workers bounds concurrent orientation work. Frames arriving while every
	// worker is busy are dropped.
	Workers int
	// RotationDegrees is the clockwise sensor correction (default 90).
	RotationDegrees int
}

// Processor gates, rotates and mirrors raw frames. It is not restartable:
// Frames may be called once.
type Processor struct {
	src      <-chan domain.RawFrame
	facing   func() domain.Facing
	limiter  *rate.Limiter
	sem      *semaphore.Weighted
	rotation int
	consumed atomic.Bool
	logger   zerolog.Logger

	mu   sync.Mutex
	last time.Time
}

// NewProcessor reads raw frames from src. facing reports the active camera
// at the moment a frame is admitted.
func NewProcessor(src <-chan domain.RawFrame, facing func() domain.Facing, opts Options) *Processor {
	if opts.TargetFPS <= 0 {
		opts.TargetFPS = 30
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.RotationDegrees == 0 {
		opts.RotationDegrees = 90
	}
	return &Processor{
		src:      src,
		facing:   facing,
		limiter:  rate.NewLimiter(rate.Limit(opts.TargetFPS*headroom), 1),
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
		rotation: opts.RotationDegrees,
		logger:   log.WithComponent("preview"),
	}
}

// Frames starts delivery. The returned channel is closed once ctx is
// cancelled or the source is closed; neither is reported as an error.
func (p *Processor) Frames(ctx context.Context) (<-chan domain.PreviewFrame, error) {
	if !p.consumed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyConsumed
	}
	out := make(chan domain.PreviewFrame)
	go p.run(ctx, out)
	return out, nil
}

func (p *Processor) run(ctx context.Context, out chan<- domain.PreviewFrame) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(out)
		p.logger.Debug().Str(log.FieldEvent, "preview.stopped").Msg("preview delivery stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-p.src:
			if !ok {
				return
			}
			if raw.Image == nil {
				continue
			}
			if !p.limiter.AllowN(raw.Timestamp, 1) {
				metrics.IncPreviewFrame("throttled")
				continue
			}
			if !p.sem.TryAcquire(1) {
				metrics.IncPreviewFrame("busy")
				continue
			}
			facing := p.facing()
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer p.sem.Release(1)
				img := Orient(raw.Image, p.rotation, facing == domain.FacingFront)
				p.deliver(ctx, out, domain.PreviewFrame{Image: img, Timestamp: raw.Timestamp, Facing: facing})
			}()
		}
	}
}

// deliver hands f to the consumer unless a newer frame already went out.
func (p *Processor) deliver(ctx context.Context, out chan<- domain.PreviewFrame, f domain.PreviewFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.last.IsZero() && !f.Timestamp.After(p.last) {
		metrics.IncPreviewFrame("stale")
		return
	}
	select {
	case out <- f:
		p.last = f.Timestamp
		metrics.IncPreviewFrame("delivered")
	case <-ctx.Done():
	}
}
