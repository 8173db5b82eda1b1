// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package hardware

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/splitcap/internal/capture"
	"github.com/ManuGH/splitcap/internal/clock"
	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/media/ffmpeg"
)

func syntheticGraph() capture.Graph {
	return capture.Graph{
		Facing: domain.FacingFront,
		Device: domain.Device{
			ID:          "synthetic",
			InputFormat: ffmpeg.FormatLavfi,
			Path:        "testsrc2=size=320x240:rate=30",
		},
		Format:   domain.Format{Width: 320, Height: 240, MaxFPS: 30},
		FPS:      30,
		Mirrored: true,
	}
}

func TestValidateGraph(t *testing.T) {
	require.NoError(t, validateGraph(syntheticGraph()))

	g := syntheticGraph()
	g.Device.Path = ""
	assert.Error(t, validateGraph(g))

	g = syntheticGraph()
	g.Format.Width = 0
	assert.Error(t, validateGraph(g))

	g = syntheticGraph()
	g.FPS = 0
	assert.Error(t, validateGraph(g))

	g = syntheticGraph()
	g.Microphone = &domain.Device{ID: "mic"}
	assert.Error(t, validateGraph(g))
}

func TestCaptureSpec(t *testing.T) {
	g := syntheticGraph()
	g.Format = domain.Format{Width: 1920, Height: 1080, MaxFPS: 30}
	g.Microphone = &domain.Device{ID: "mic", InputFormat: "lavfi", Path: "sine"}

	spec := captureSpec(g, 640)
	assert.Equal(t, domain.Size{Width: 640, Height: 360}, spec.Preview)
	assert.Equal(t, 1920, spec.Video.Width)
	assert.Equal(t, 30.0, spec.Video.FPS)
	require.NotNil(t, spec.Audio)
	assert.Equal(t, "sine", spec.Audio.Path)
}

func TestBackend_ApplyRejectsInvalidGraphAndKeepsPrevious(t *testing.T) {
	b := NewBackend(ffmpeg.NewRunner("ffmpeg", time.Second), clock.Real{}, BackendOptions{})
	defer b.Close()

	require.NoError(t, b.Apply(context.Background(), syntheticGraph()))
	bad := syntheticGraph()
	bad.FPS = 0
	require.Error(t, b.Apply(context.Background(), bad))
	assert.Equal(t, 30.0, b.graph.FPS)
}

func TestBackend_RecordRequiresRunning(t *testing.T) {
	b := NewBackend(ffmpeg.NewRunner("ffmpeg", time.Second), clock.Real{}, BackendOptions{})
	defer b.Close()
	require.NoError(t, b.Apply(context.Background(), syntheticGraph()))

	_, err := b.Record(context.Background(), filepath.Join(t.TempDir(), "a.mp4"))
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestBackend_CloseClosesFrames(t *testing.T) {
	b := NewBackend(ffmpeg.NewRunner("ffmpeg", time.Second), clock.Real{}, BackendOptions{})
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	_, ok := <-b.Frames()
	assert.False(t, ok)
	b.emit(domain.RawFrame{})
}

func TestCheckSegment(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp4")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	assert.ErrorIs(t, checkSegment(empty), ErrEmptySegment)
	assert.Error(t, checkSegment(filepath.Join(dir, "missing.mp4")))

	full := filepath.Join(dir, "full.mp4")
	require.NoError(t, os.WriteFile(full, []byte("x"), 0o600))
	assert.NoError(t, checkSegment(full))
}

func requireFFmpeg(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping ffmpeg integration test in short mode")
	}
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	out, err := exec.Command(bin, "-hide_banner", "-encoders").Output()
	if err != nil || !bytes.Contains(out, []byte("libx264")) {
		t.Skip("ffmpeg without libx264")
	}
	return bin
}

func TestBackend_PreviewAndSegmentWithFFmpeg(t *testing.T) {
	bin := requireFFmpeg(t)
	b := NewBackend(ffmpeg.NewRunner(bin, 2*time.Second), clock.Real{}, BackendOptions{Preset: "ultrafast"})
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Apply(ctx, syntheticGraph()))
	require.NoError(t, b.Start(ctx))

	select {
	case f := <-b.Frames():
		require.NotNil(t, f.Image)
		assert.Equal(t, 320, f.Image.Bounds().Dx())
	case <-time.After(10 * time.Second):
		t.Fatal("no preview frame")
	}

	path := filepath.Join(t.TempDir(), "seg.mp4")
	w, err := b.Record(ctx, path)
	require.NoError(t, err)
	time.Sleep(700 * time.Millisecond)
	w.Stop()
	w.Stop()

	select {
	case <-w.Finished():
	case <-time.After(15 * time.Second):
		t.Fatal("segment did not finalize")
	}
	require.NoError(t, w.Err())
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, fi.Size())

	require.NoError(t, b.Stop(ctx))
}
