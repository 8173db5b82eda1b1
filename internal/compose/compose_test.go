// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package compose

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/splitcap/internal/domain"
)

func segment(ord domain.Ordinal, d time.Duration, audio bool) domain.Segment {
	s := domain.Segment{
		Ordinal:        ord,
		Path:           "/tmp/" + string(ord) + ".mp4",
		ActualDuration: d,
		Media: domain.MediaInfo{
			Container: "mp4",
			Duration:  d,
			Video:     &domain.VideoTrack{Codec: "h264", Width: 1920, Height: 1080, FPS: 30},
		},
	}
	if audio {
		s.Media.Audio = &domain.AudioTrack{Codec: "aac", SampleRate: 48000, Channels: 2}
	}
	return s
}

func TestBuild_PlacesSegmentsBackToBack(t *testing.T) {
	a := segment(domain.OrdinalA, 3010*time.Millisecond, true)
	b := segment(domain.OrdinalB, 2980*time.Millisecond, true)

	tl, err := Build(context.Background(), a, b)
	require.NoError(t, err)

	want := []domain.TimelineEntry{
		{Kind: domain.TrackVideo, Segment: domain.OrdinalA, Source: a.Path, Offset: 0, Duration: a.ActualDuration},
		{Kind: domain.TrackVideo, Segment: domain.OrdinalB, Source: b.Path, Offset: a.ActualDuration, Duration: b.ActualDuration},
		{Kind: domain.TrackAudio, Segment: domain.OrdinalA, Source: a.Path, Offset: 0, Duration: a.ActualDuration},
		{Kind: domain.TrackAudio, Segment: domain.OrdinalB, Source: b.Path, Offset: a.ActualDuration, Duration: b.ActualDuration},
	}
	if diff := cmp.Diff(want, tl.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, a.ActualDuration+b.ActualDuration, tl.Duration)
	assert.Equal(t, domain.Size{Width: 1920, Height: 1080}, tl.NaturalSize)
	assert.Equal(t, domain.Size{Width: 1080, Height: 1920}, tl.RenderSize)
}

func TestBuild_SkipsMissingAudio(t *testing.T) {
	a := segment(domain.OrdinalA, 3*time.Second, true)
	b := segment(domain.OrdinalB, 3*time.Second, false)

	tl, err := Build(context.Background(), a, b)
	require.NoError(t, err)

	assert.Len(t, tl.Tracks(domain.TrackVideo), 2)
	audio := tl.Tracks(domain.TrackAudio)
	require.Len(t, audio, 1)
	assert.Equal(t, domain.OrdinalA, audio[0].Segment)

	tl, err = Build(context.Background(), segment(domain.OrdinalA, time.Second, false), segment(domain.OrdinalB, time.Second, false))
	require.NoError(t, err)
	assert.Empty(t, tl.Tracks(domain.TrackAudio))
}

func TestBuild_Rejects(t *testing.T) {
	a := segment(domain.OrdinalA, time.Second, true)
	b := segment(domain.OrdinalB, time.Second, true)

	_, err := Build(context.Background(), b, a)
	require.ErrorIs(t, err, ErrSegmentOrder)

	noVideo := b
	noVideo.Media.Video = nil
	_, err = Build(context.Background(), a, noVideo)
	require.ErrorIs(t, err, ErrNoVideoTrack)
	assert.Equal(t, domain.KindMissingTrack, domain.KindOf(err))

	empty := b
	empty.ActualDuration = 0
	_, err = Build(context.Background(), a, empty)
	require.ErrorIs(t, err, ErrEmptySegment)
}

func TestBuild_TransformMapsCaptureIntoRenderFrame(t *testing.T) {
	tl, err := Build(context.Background(), segment(domain.OrdinalA, time.Second, false), segment(domain.OrdinalB, time.Second, false))
	require.NoError(t, err)

	tr := tl.Transform
	assert.Equal(t, 90, tr.RotationDegrees)
	corners := [][2]float64{{0, 0}, {1920, 0}, {0, 1080}, {1920, 1080}}
	for _, c := range corners {
		x, y := tr.Apply(c[0], c[1])
		assert.GreaterOrEqual(t, x, 0.0)
		assert.LessOrEqual(t, x, float64(tl.RenderSize.Width))
		assert.GreaterOrEqual(t, y, 0.0)
		assert.LessOrEqual(t, y, float64(tl.RenderSize.Height))
	}
	x, y := tr.Apply(0, 0)
	assert.Equal(t, [2]float64{1080, 0}, [2]float64{x, y}, "top-left lands top-right")
}

func TestRotationTransform(t *testing.T) {
	n := domain.Size{Width: 4, Height: 2}
	tests := []struct {
		degrees int
		in      [2]float64
		want    [2]float64
	}{
		{0, [2]float64{1, 1}, [2]float64{1, 1}},
		{90, [2]float64{4, 0}, [2]float64{2, 4}},
		{180, [2]float64{0, 0}, [2]float64{4, 2}},
		{270, [2]float64{0, 0}, [2]float64{0, 4}},
		{-90, [2]float64{4, 2}, [2]float64{2, 0}},
	}
	for _, tt := range tests {
		x, y := RotationTransform(tt.degrees, n).Apply(tt.in[0], tt.in[1])
		assert.Equal(t, tt.want, [2]float64{x, y}, "degrees=%d", tt.degrees)
	}
	assert.True(t, RotationTransform(0, n).IsIdentity())
}
