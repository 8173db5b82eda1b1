// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/splitcap/internal/clock"
	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/media/ffmpeg"
)

type fakeRunner struct {
	mu   sync.Mutex
	jobs []ffmpeg.Job
	run  func(ctx context.Context, job ffmpeg.Job) error
}

func (f *fakeRunner) Run(ctx context.Context, job ffmpeg.Job) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	run := f.run
	f.mu.Unlock()
	if run == nil {
		return nil
	}
	return run(ctx, job)
}

func (f *fakeRunner) last() ffmpeg.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[len(f.jobs)-1]
}

type fakeProber struct {
	info domain.MediaInfo
	err  error
}

func (p fakeProber) Probe(context.Context, string) (domain.MediaInfo, error) { return p.info, p.err }

func hdProbe() fakeProber {
	return fakeProber{info: domain.MediaInfo{Video: &domain.VideoTrack{Codec: "h264", Width: 1920, Height: 1080}}}
}

func timeline() domain.CompositionTimeline {
	return domain.CompositionTimeline{
		Segments: []domain.Segment{{Ordinal: domain.OrdinalA, Path: "/tmp/a.mp4"}, {Ordinal: domain.OrdinalB, Path: "/tmp/b.mp4"}},
		Entries: []domain.TimelineEntry{
			{Kind: domain.TrackVideo, Segment: domain.OrdinalA, Source: "/tmp/a.mp4", Duration: 3 * time.Second},
			{Kind: domain.TrackVideo, Segment: domain.OrdinalB, Source: "/tmp/b.mp4", Offset: 3 * time.Second, Duration: 3 * time.Second},
		},
		Transform:   domain.Transform{B: 1, C: -1, TX: 1080, RotationDegrees: 90},
		NaturalSize: domain.Size{Width: 1920, Height: 1080},
		RenderSize:  domain.Size{Width: 1080, Height: 1920},
		Duration:    6 * time.Second,
	}
}

func newExporter(r Runner, p Prober, s Store) *Exporter {
	return New(r, p, s, clock.Real{}, Options{Preset: "slow", CRF: 18, VideoBitrate: "3500k", ThumbnailWidth: 360, ThumbnailQuality: 50})
}

func wait(t *testing.T, j *Job) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := j.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

func TestExport_Completes(t *testing.T) {
	r := &fakeRunner{}
	store := NewMemoryStore()
	e := newExporter(r, hdProbe(), store)

	j, err := e.Export(context.Background(), timeline(), "/tmp/out.mp4")
	require.NoError(t, err)
	require.NoError(t, wait(t, j))

	assert.Equal(t, domain.JobCompleted, j.Status())
	job := r.last()
	assert.Equal(t, "export", job.Role)
	assert.Equal(t, "/tmp/out.mp4", job.Args[len(job.Args)-1])
	assert.Contains(t, strings.Join(job.Args, " "), "transpose=1")

	rec, err := store.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, rec.Status)
	assert.Equal(t, domain.JobKindExport, rec.Kind)
	assert.Equal(t, "/tmp/a.mp4", rec.Source)
	assert.Empty(t, rec.Error)
}

func TestExport_FailureSurfacesCause(t *testing.T) {
	cause := errors.New("encoder exploded")
	r := &fakeRunner{run: func(context.Context, ffmpeg.Job) error { return cause }}
	store := NewMemoryStore()
	e := newExporter(r, hdProbe(), store)

	j, err := e.Export(context.Background(), timeline(), "/tmp/out.mp4")
	require.NoError(t, err)
	err = wait(t, j)
	require.ErrorIs(t, err, domain.ErrExportFailed)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, domain.JobFailed, j.Status())

	rec, err := store.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindExportFailed, rec.ErrorKind)
	assert.Contains(t, rec.Error, "encoder exploded")
}

func TestExport_CancelIsDistinctFromFailure(t *testing.T) {
	started := make(chan struct{})
	r := &fakeRunner{run: func(ctx context.Context, _ ffmpeg.Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	e := newExporter(r, hdProbe(), nil)

	j, err := e.Export(context.Background(), timeline(), "/tmp/out.mp4")
	require.NoError(t, err)
	<-started
	j.Cancel()

	err = wait(t, j)
	require.ErrorIs(t, err, domain.ErrExportCancelled)
	assert.NotErrorIs(t, err, domain.ErrExportFailed)
	assert.Equal(t, domain.JobCancelled, j.Status())
	assert.Equal(t, domain.KindExportCancelled, domain.KindOf(err))
}

func TestExport_OutlivesCallerContext(t *testing.T) {
	release := make(chan struct{})
	r := &fakeRunner{run: func(ctx context.Context, _ ffmpeg.Job) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}
	e := newExporter(r, hdProbe(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	j, err := e.Export(ctx, timeline(), "/tmp/out.mp4")
	require.NoError(t, err)
	cancel()
	close(release)

	require.NoError(t, wait(t, j))
	assert.Equal(t, domain.JobCompleted, j.Status())
}

func TestExport_EmptyTimeline(t *testing.T) {
	e := newExporter(&fakeRunner{}, hdProbe(), nil)
	_, err := e.Export(context.Background(), domain.CompositionTimeline{}, "/tmp/out.mp4")
	require.ErrorIs(t, err, domain.ErrExportFailed)
	require.ErrorIs(t, err, ffmpeg.ErrEmptyTimeline)
}

func TestTranscode_FitsWithoutCropping(t *testing.T) {
	r := &fakeRunner{}
	e := newExporter(r, hdProbe(), nil)

	j, err := e.Transcode(context.Background(), "/tmp/in.mp4", domain.Size{Width: 720, Height: 1280}, "/tmp/deliver.mp4")
	require.NoError(t, err)
	require.NoError(t, wait(t, j))

	args := strings.Join(r.last().Args, " ")
	assert.Contains(t, args, "scale=720:404,pad=720:1280:0:0")
	assert.Contains(t, args, "-b:v 3500k")
	assert.Equal(t, domain.JobKindTranscode, j.Record().Kind)
}

func TestTranscode_Rejects(t *testing.T) {
	e := newExporter(&fakeRunner{}, hdProbe(), nil)
	_, err := e.Transcode(context.Background(), "/tmp/in.mp4", domain.Size{Width: 721, Height: 1280}, "/tmp/o.mp4")
	require.ErrorIs(t, err, ErrInvalidTarget)

	audioOnly := fakeProber{info: domain.MediaInfo{Audio: &domain.AudioTrack{Codec: "aac"}}}
	e = newExporter(&fakeRunner{}, audioOnly, nil)
	j, err := e.Transcode(context.Background(), "/tmp/in.m4a", domain.Size{Width: 720, Height: 1280}, "/tmp/o.mp4")
	require.NoError(t, err)
	err = wait(t, j)
	require.ErrorIs(t, err, domain.ErrExportFailed)
	assert.Equal(t, domain.JobFailed, j.Status())
}

func pngFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestGenerateThumbnail(t *testing.T) {
	frame := pngFrame(t, 720, 1280)
	r := &fakeRunner{run: func(_ context.Context, job ffmpeg.Job) error {
		_, err := job.Stdout.Write(frame)
		return err
	}}
	e := newExporter(r, hdProbe(), nil)

	thumb, err := e.GenerateThumbnail(context.Background(), "/tmp/out.mp4")
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 360, cfg.Width)
	assert.Equal(t, 640, cfg.Height)
	assert.Contains(t, r.last().Args, "/tmp/out.mp4")
}

func TestGenerateThumbnail_PropagatesFailure(t *testing.T) {
	e := newExporter(&fakeRunner{run: func(context.Context, ffmpeg.Job) error { return errors.New("no such file") }}, hdProbe(), nil)
	_, err := e.GenerateThumbnail(context.Background(), "/tmp/missing.mp4")
	require.ErrorIs(t, err, domain.ErrExportFailed)

	e = newExporter(&fakeRunner{}, hdProbe(), nil)
	_, err = e.GenerateThumbnail(context.Background(), "/tmp/empty.mp4")
	require.ErrorIs(t, err, ErrNoFrame)
}

func TestEncodeThumbnail_KeepsSmallImages(t *testing.T) {
	out, err := EncodeThumbnail(image.NewRGBA(image.Rect(0, 0, 100, 50)), 360, 50)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)

	_, err = EncodeThumbnail(image.NewRGBA(image.Rectangle{}), 360, 50)
	require.ErrorIs(t, err, ErrNoFrame)
}
