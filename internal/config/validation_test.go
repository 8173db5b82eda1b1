// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/splitcap/internal/domain"
)

func validConfig() AppConfig {
	cfg := Defaults()
	resolvePaths(&cfg)
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"zero duration a", func(c *AppConfig) { c.Recording.DurationA = 0 }, "recording.duration_a"},
		{"a not shorter than total", func(c *AppConfig) { c.Recording.DurationA = c.Recording.TotalDuration }, "recording.duration_a"},
		{"negative settle", func(c *AppConfig) { c.Recording.SettleDelay = -time.Millisecond }, "recording.settle_delay"},
		{"zero tick", func(c *AppConfig) { c.Recording.TickInterval = 0 }, "recording.tick_interval"},
		{"odd delivery width", func(c *AppConfig) { c.Export.DeliveryWidth = 721 }, "export.delivery_width"},
		{"unknown facing", func(c *AppConfig) { c.Capture.InitialFacing = "side" }, "capture.initial_facing"},
		{"unknown permission", func(c *AppConfig) { c.Capture.Permissions.Audio = "maybe" }, "capture.permissions.audio"},
		{"fps out of range", func(c *AppConfig) { c.Capture.TargetFPS = 0 }, "capture.target_fps"},
		{"bad listen addr", func(c *AppConfig) { c.API.ListenAddr = "localhost" }, "api.listen_addr"},
		{"unknown job store", func(c *AppConfig) { c.Storage.JobStore = "redis" }, "storage.job_store"},
		{"telemetry exporter", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Exporter = "zipkin"
		}, "telemetry.exporter"},
		{"duplicate camera", func(c *AppConfig) {
			cam := CameraConfig{ID: "cam", Facing: domain.FacingFront, InputFormat: "v4l2", Path: "/dev/video0"}
			c.Capture.Cameras = []CameraConfig{cam, cam}
		}, "capture.cameras[1].id"},
		{"camera format", func(c *AppConfig) {
			c.Capture.Cameras = []CameraConfig{{
				ID: "cam", Facing: domain.FacingBack, InputFormat: "v4l2", Path: "/dev/video0",
				Formats: []domain.Format{{Width: 0, Height: 720, MaxFPS: 30}},
			}}
		}, "capture.cameras[0].formats[0].width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
