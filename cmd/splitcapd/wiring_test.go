// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/splitcap/internal/bus"
	"github.com/ManuGH/splitcap/internal/clock"
	"github.com/ManuGH/splitcap/internal/config"
	"github.com/ManuGH/splitcap/internal/delivery"
	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/preview"
	"github.com/ManuGH/splitcap/internal/recorder"
)

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.DataDir = dir
	cfg.Storage.TempDir = filepath.Join(dir, "tmp")
	cfg.Storage.JobStore = config.JobStoreSQLite
	cfg.Storage.JobDB = filepath.Join(dir, "jobs.db")
	cfg.Delivery.OutboxDir = filepath.Join(dir, "outbox")
	cfg.Capture.Cameras = []config.CameraConfig{
		{ID: "front", Facing: domain.FacingFront, InputFormat: "lavfi", Path: "testsrc2"},
		{ID: "back", Facing: domain.FacingBack, InputFormat: "lavfi", Path: "testsrc2"},
	}
	return cfg
}

func TestRecorderConfigFromAppConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Recording.TotalDuration = 10 * time.Second
	cfg.Recording.DurationA = 4 * time.Second
	cfg.Recording.RetainIntermediates = true
	cfg.Capture.InitialFacing = domain.FacingBack

	assert.Equal(t, recorder.Config{
		InitialFacing:       domain.FacingBack,
		DurationA:           4 * time.Second,
		DurationB:           6 * time.Second,
		SettleDelay:         500 * time.Millisecond,
		TickInterval:        100 * time.Millisecond,
		RetainIntermediates: true,
	}, recorderConfig(cfg))
}

func TestPreviewPassesFramesAtCaptureRate(t *testing.T) {
	cfg := config.Defaults()
	opts := previewOptions(cfg)
	require.Equal(t, cfg.Capture.TargetFPS, opts.TargetFPS)

	src := make(chan domain.RawFrame)
	p := preview.NewProcessor(src, func() domain.Facing { return domain.FacingBack }, opts)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out, err := p.Frames(ctx)
	require.NoError(t, err)

	interval := time.Duration(float64(time.Second) / cfg.Capture.TargetFPS)
	base := time.Unix(1000, 0)
	delivered := 0
	for i := range 30 {
		src <- domain.RawFrame{
			Image:     image.NewRGBA(image.Rect(0, 0, 16, 8)),
			Timestamp: base.Add(time.Duration(i) * interval),
		}
		select {
		case <-out:
			delivered++
		case <-time.After(500 * time.Millisecond):
		}
	}
	assert.Equal(t, 30, delivered, "frames at the capture rate must not be throttled")

	close(src)
	for range out {
	}
}

func TestNewAppWiresComponents(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)

	require.NotNil(t, a.delivery)
	_, err = os.Stat(cfg.Delivery.OutboxDir)
	require.NoError(t, err, "outbox is created at startup")

	h := a.server.Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recordings/current", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"idle"`)

	root := a.files.Root()
	a.close()
	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err), "temp store is removed on close")
}

func TestNewAppWithoutDelivery(t *testing.T) {
	cfg := testConfig(t)
	cfg.Delivery.Enabled = false
	cfg.Storage.JobStore = config.JobStoreMemory

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.close()
	assert.Nil(t, a.delivery)
}

func TestNewAppRejectsUnknownJobStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.JobStore = "etcd"
	_, err := newApp(context.Background(), cfg)
	require.Error(t, err)
}

type unavailableBus struct{}

func (unavailableBus) Publish(context.Context, string, bus.Message) error { return nil }
func (unavailableBus) Subscribe(context.Context, string) (bus.Subscriber, error) {
	return nil, errors.New("bus unavailable")
}

func TestRunFailsBeforeStartingWorkers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := config.Defaults()
	rec, err := recorder.New(recorder.Deps{Clock: clock.Real{}, Bus: unavailableBus{}}, recorderConfig(cfg))
	require.NoError(t, err)
	src := make(chan domain.RawFrame)
	a := &app{
		cfg:      cfg,
		preview:  preview.NewProcessor(src, func() domain.Facing { return domain.FacingBack }, previewOptions(cfg)),
		latest:   &preview.Latest{},
		recorder: rec,
		delivery: &delivery.Service{},
	}

	err = a.run(context.Background(), nil)
	require.ErrorContains(t, err, "bus unavailable")

	ctx, cancel := context.WithCancel(context.Background())
	out, err := a.preview.Frames(ctx)
	require.NoError(t, err, "preview stream was not started")
	cancel()
	for range out {
	}
}
