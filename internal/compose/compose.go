// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package compose assembles two recorded segments into one oriented
// composition timeline. It touches neither hardware nor files.
package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/log"
)

// OutputRotation is the clockwise correction applied to every composition.
const OutputRotation = 90

var (
	// ErrNoVideoTrack is returned when a segment has no video to place.
	ErrNoVideoTrack = errors.New("segment has no video track")
	// ErrSegmentOrder is returned when segments are passed out of order.
	ErrSegmentOrder = errors.New("segments must be passed as A then B")
	// ErrEmptySegment is returned for a segment with no duration.
	ErrEmptySegment = errors.New("segment has no duration")
)

// Build places segment A at offset 0 and segment B at A's actual duration.
// Audio is placed at the same offsets for segments that carry it; a missing
// audio track is logged and skipped. The whole timeline shares one
// clockwise rotation and renders at the natural size of A, swapped.
func Build(ctx context.Context, a, b domain.Segment) (domain.CompositionTimeline, error) {
	if a.Ordinal != domain.OrdinalA || b.Ordinal != domain.OrdinalB {
		return domain.CompositionTimeline{}, domain.NewError(domain.KindMissingTrack, "compose.build", ErrSegmentOrder)
	}
	for _, s := range []domain.Segment{a, b} {
		if s.Media.Video == nil {
			return domain.CompositionTimeline{}, domain.NewError(domain.KindMissingTrack, "compose.build",
				fmt.Errorf("segment %s: %w", s.Ordinal, ErrNoVideoTrack))
		}
		if s.ActualDuration <= 0 {
			return domain.CompositionTimeline{}, domain.NewError(domain.KindRecordingWriteFailed, "compose.build",
				fmt.Errorf("segment %s: %w", s.Ordinal, ErrEmptySegment))
		}
	}

	logger := log.WithComponentFromContext(ctx, "compose")
	natural := domain.Size{Width: a.Media.Video.Width, Height: a.Media.Video.Height}
	if bv := b.Media.Video; bv.Width != natural.Width || bv.Height != natural.Height {
		logger.Debug().
			Str(log.FieldEvent, "compose.size_mismatch").
			Str("size_a", fmt.Sprintf("%dx%d", natural.Width, natural.Height)).
			Str("size_b", fmt.Sprintf("%dx%d", bv.Width, bv.Height)).
			Msg("segment B will be fitted to the render size")
	}

	tl := domain.CompositionTimeline{
		Segments:    []domain.Segment{a, b},
		Transform:   RotationTransform(OutputRotation, natural),
		NaturalSize: natural,
		RenderSize:  natural.Swapped(),
		Duration:    a.ActualDuration + b.ActualDuration,
	}

	offset := map[domain.Ordinal]time.Duration{domain.OrdinalA: 0, domain.OrdinalB: a.ActualDuration}
	for _, s := range tl.Segments {
		tl.Entries = append(tl.Entries, domain.TimelineEntry{
			Kind:     domain.TrackVideo,
			Segment:  s.Ordinal,
			Source:   s.Path,
			Offset:   offset[s.Ordinal],
			Duration: s.ActualDuration,
		})
	}
	for _, s := range tl.Segments {
		if s.Media.Audio == nil {
			logger.Warn().
				Str(log.FieldEvent, "compose.missing_track").
				Str(log.FieldOrdinal, string(s.Ordinal)).
				Str(log.FieldErrKind, string(domain.KindMissingTrack)).
				Msg("segment has no audio track, skipping")
			continue
		}
		tl.Entries = append(tl.Entries, domain.TimelineEntry{
			Kind:     domain.TrackAudio,
			Segment:  s.Ordinal,
			Source:   s.Path,
			Offset:   offset[s.Ordinal],
			Duration: s.ActualDuration,
		})
	}
	return tl, nil
}

// RotationTransform returns the translate-then-rotate transform that turns a
// frame of the given natural size clockwise by degrees (a multiple of 90)
// while keeping it in the positive quadrant.
func RotationTransform(degrees int, natural domain.Size) domain.Transform {
	w, h := float64(natural.Width), float64(natural.Height)
	d := ((degrees % 360) + 360) % 360
	switch d {
	case 90:
		return domain.Transform{A: 0, B: 1, C: -1, D: 0, TX: h, TY: 0, RotationDegrees: d}
	case 180:
		return domain.Transform{A: -1, B: 0, C: 0, D: -1, TX: w, TY: h, RotationDegrees: d}
	case 270:
		return domain.Transform{A: 0, B: -1, C: 1, D: 0, TX: 0, TY: w, RotationDegrees: d}
	default:
		return domain.Transform{A: 1, D: 1}
	}
}
