// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
)

// Defaults returns the baseline configuration applied before file and env.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "splitcap",
		DataDir:    "/var/lib/splitcap",
		FFmpeg: FFmpegConfig{
			Bin:             "ffmpeg",
			KillTimeout:     5 * time.Second,
			FinalizeTimeout: 10 * time.Second,
			StartTimeout:    10 * time.Second,
			StallTimeout:    5 * time.Second,
		},
		Capture: CaptureConfig{
			TargetFPS:     30,
			MinWidth:      1280,
			Preset:        "high",
			InitialFacing: domain.FacingFront,
			Permissions: PermissionsConfig{
				Video: PermissionAuto,
				Audio: PermissionAuto,
			},
			PreviewWorkers: 2,
		},
		Recording: RecordingConfig{
			TotalDuration: 6 * time.Second,
			DurationA:     3 * time.Second,
			SettleDelay:   500 * time.Millisecond,
			TickInterval:  100 * time.Millisecond,
		},
		Export: ExportConfig{
			Preset:           "slow",
			CRF:              18,
			DeliveryWidth:    720,
			DeliveryHeight:   1280,
			VideoBitrate:     "3500k",
			AudioBitrate:     "128k",
			ThumbnailWidth:   360,
			ThumbnailQuality: 50,
		},
		Delivery: DeliveryConfig{
			Enabled: true,
		},
		API: APIConfig{
			ListenAddr:         "127.0.0.1:8088",
			RateLimitPerMinute: 120,
			ShutdownTimeout:    10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
		Storage: StorageConfig{
			JobStore: JobStoreSQLite,
		},
	}
}
