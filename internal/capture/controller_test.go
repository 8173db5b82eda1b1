// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/splitcap/internal/capture"
	"github.com/ManuGH/splitcap/internal/capture/capturetest"
	"github.com/ManuGH/splitcap/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sessionConfig() domain.SessionConfig {
	return domain.SessionConfig{TargetFPS: 30, MinWidth: 1280, OrientationDegrees: 90}
}

func newController(t *testing.T, perms *capturetest.Permissions) (*capture.Controller, *capturetest.Backend) {
	t.Helper()
	b := capturetest.NewBackend()
	c := capture.NewController(b, perms, capturetest.NewDevices(), sessionConfig())
	t.Cleanup(func() { _ = c.Close() })
	return c, b
}

func TestConfigure_SelectsFormatAndMirrorsFront(t *testing.T) {
	c, b := newController(t, &capturetest.Permissions{Video: true, Audio: true})
	ctx := context.Background()

	require.NoError(t, c.Configure(ctx, domain.FacingFront))

	g, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, domain.Format{Width: 1920, Height: 1080, MaxFPS: 30}, g.Format)
	assert.Equal(t, 30.0, g.FPS)
	assert.True(t, g.Mirrored)
	assert.Equal(t, 90, g.OrientationDegrees)
	require.NotNil(t, g.Microphone)

	st := c.State()
	assert.True(t, st.Configured)
	assert.False(t, st.Running)
	assert.Equal(t, domain.FacingFront, st.Facing)

	require.NoError(t, c.Configure(ctx, domain.FacingBack))
	g, _ = b.Current()
	assert.False(t, g.Mirrored)
}

func TestConfigure_FallsBackToDeviceDefault(t *testing.T) {
	b := capturetest.NewBackend()
	cfg := sessionConfig()
	cfg.TargetFPS = 120
	c := capture.NewController(b, &capturetest.Permissions{Video: true}, capturetest.NewDevices(), cfg)
	defer c.Close()

	require.NoError(t, c.Configure(context.Background(), domain.FacingBack))
	g, _ := b.Current()
	assert.Equal(t, domain.Format{Width: 640, Height: 480, MaxFPS: 60}, g.Format)
	assert.Equal(t, 60.0, g.FPS, "fps is capped by the format")
}

func TestConfigure_PermissionDenied(t *testing.T) {
	c, b := newController(t, &capturetest.Permissions{Video: false, Audio: true})

	err := c.Configure(context.Background(), domain.FacingFront)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.Empty(t, b.Applied())
	assert.False(t, c.State().Configured)
}

func TestConfigure_AudioDeniedStillConfiguresVideo(t *testing.T) {
	perms := &capturetest.Permissions{Video: true, Audio: false}
	c, b := newController(t, perms)

	require.NoError(t, c.Configure(context.Background(), domain.FacingFront))
	g, _ := b.Current()
	assert.Nil(t, g.Microphone)
	assert.False(t, c.State().HasAudio)

	video, audio := perms.Requests()
	assert.Equal(t, 1, video)
	assert.Equal(t, 1, audio)
}

func TestConfigure_DeviceUnavailable(t *testing.T) {
	b := capturetest.NewBackend()
	devices := capturetest.NewDevices()
	delete(devices.Cameras, domain.FacingBack)
	c := capture.NewController(b, &capturetest.Permissions{Video: true}, devices, sessionConfig())
	defer c.Close()

	err := c.Configure(context.Background(), domain.FacingBack)
	require.ErrorIs(t, err, domain.ErrDeviceUnavailable)
}

func TestConfigure_FailedApplyKeepsPreviousGraphAndDoesNotStart(t *testing.T) {
	c, b := newController(t, &capturetest.Permissions{Video: true})
	ctx := context.Background()

	require.NoError(t, c.Configure(ctx, domain.FacingFront))
	require.NoError(t, c.Start(ctx))

	b.FailApply(errors.New("cannot add input"))
	err := c.Configure(ctx, domain.FacingBack)
	require.ErrorIs(t, err, domain.ErrDeviceUnavailable)
	assert.Equal(t, domain.KindDeviceUnavailable, domain.KindOf(err))
	assert.ErrorContains(t, err, "cannot add input")

	g, _ := b.Current()
	assert.Equal(t, domain.FacingFront, g.Facing)
	assert.Equal(t, domain.FacingFront, c.State().Facing)
	assert.False(t, b.Running(), "half-configured session must not run")
}

func TestStartStop_Idempotent(t *testing.T) {
	c, b := newController(t, &capturetest.Permissions{Video: true})
	ctx := context.Background()

	require.NoError(t, c.Stop(ctx), "stop before start is a no-op")
	require.NoError(t, c.Configure(ctx, domain.FacingFront))
	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))

	starts, stops := b.Counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
}

func TestStart_RequiresConfiguration(t *testing.T) {
	c, _ := newController(t, &capturetest.Permissions{Video: true})
	require.ErrorIs(t, c.Start(context.Background()), domain.ErrConfigurationFailed)
}

func TestToggleFacing(t *testing.T) {
	c, b := newController(t, &capturetest.Permissions{Video: true})
	ctx := context.Background()

	require.ErrorIs(t, c.ToggleFacing(ctx), domain.ErrConfigurationFailed)

	require.NoError(t, c.Configure(ctx, domain.FacingFront))
	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.ToggleFacing(ctx))

	st := c.State()
	assert.Equal(t, domain.FacingBack, st.Facing)
	assert.True(t, st.Running)
	assert.False(t, st.Mirrored)

	applied := b.Applied()
	require.Len(t, applied, 2)
	assert.Equal(t, domain.FacingBack, applied[1].Facing)
	starts, stops := b.Counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, stops)
}

func TestRecord_RequiresRunningSession(t *testing.T) {
	c, _ := newController(t, &capturetest.Permissions{Video: true})
	ctx := context.Background()

	_, err := c.Record(ctx, t.TempDir()+"/a.mp4")
	require.ErrorIs(t, err, domain.ErrRecordingWriteFailed)

	require.NoError(t, c.Configure(ctx, domain.FacingFront))
	require.NoError(t, c.Start(ctx))
	w, err := c.Record(ctx, t.TempDir()+"/a.mp4")
	require.NoError(t, err)
	w.Stop()
	<-w.Finished()
	require.NoError(t, w.Err())
}

func TestOperations_AreSerialized(t *testing.T) {
	b := capturetest.NewBackend()
	b.Delay = 5 * time.Millisecond
	c := capture.NewController(b, &capturetest.Permissions{Video: true}, capturetest.NewDevices(), sessionConfig())
	defer c.Close()
	ctx := context.Background()
	require.NoError(t, c.Configure(ctx, domain.FacingFront))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				_ = c.Start(ctx)
			case 1:
				_ = c.Stop(ctx)
			default:
				_ = c.Configure(ctx, domain.FacingBack)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, b.MaxConcurrent())
}

func TestClose_RejectsFurtherOperations(t *testing.T) {
	b := capturetest.NewBackend()
	c := capture.NewController(b, &capturetest.Permissions{Video: true}, capturetest.NewDevices(), sessionConfig())
	require.NoError(t, c.Configure(context.Background(), domain.FacingFront))
	require.NoError(t, c.Start(context.Background()))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, b.Running())
	require.ErrorIs(t, c.Start(context.Background()), capture.ErrClosed)
}

func TestDo_CancelledContextBeforeDequeue(t *testing.T) {
	c, _ := newController(t, &capturetest.Permissions{Video: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Configure(ctx, domain.FacingFront), context.Canceled)
}
