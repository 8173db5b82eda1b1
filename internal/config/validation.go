// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"

	"github.com/ManuGH/splitcap/internal/validate"
)

var (
	logLevels   = []string{"trace", "debug", "info", "warn", "error"}
	facings     = []string{"front", "back"}
	permissions = []string{PermissionAuto, PermissionGranted, PermissionDenied}
	jobStores   = []string{JobStoreMemory, JobStoreSQLite}
	exporters   = []string{"grpc", "http"}
)

// Validate checks the resolved configuration. It does not touch the filesystem;
// directories are created by the components that own them.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("log_level", cfg.LogLevel, logLevels)
	v.NotEmpty("data_dir", cfg.DataDir)
	v.NotEmpty("ffmpeg.bin", cfg.FFmpeg.Bin)
	v.PositiveDuration("ffmpeg.kill_timeout", cfg.FFmpeg.KillTimeout)
	v.PositiveDuration("ffmpeg.finalize_timeout", cfg.FFmpeg.FinalizeTimeout)
	v.PositiveDuration("ffmpeg.start_timeout", cfg.FFmpeg.StartTimeout)
	v.PositiveDuration("ffmpeg.stall_timeout", cfg.FFmpeg.StallTimeout)

	validateCapture(v, cfg.Capture)
	validateRecording(v, cfg.Recording)

	v.NotEmpty("export.preset", cfg.Export.Preset)
	v.Range("export.crf", cfg.Export.CRF, 0, 51)
	v.Positive("export.delivery_width", cfg.Export.DeliveryWidth)
	v.Positive("export.delivery_height", cfg.Export.DeliveryHeight)
	v.Even("export.delivery_width", cfg.Export.DeliveryWidth)
	v.Even("export.delivery_height", cfg.Export.DeliveryHeight)
	v.NotEmpty("export.video_bitrate", cfg.Export.VideoBitrate)
	v.NotEmpty("export.audio_bitrate", cfg.Export.AudioBitrate)
	v.Positive("export.thumbnail_width", cfg.Export.ThumbnailWidth)
	v.Range("export.thumbnail_quality", cfg.Export.ThumbnailQuality, 1, 100)

	if cfg.Delivery.Enabled {
		v.NotEmpty("delivery.outbox_dir", cfg.Delivery.OutboxDir)
	}

	v.ListenAddr("api.listen_addr", cfg.API.ListenAddr)
	v.Positive("api.rate_limit_per_minute", cfg.API.RateLimitPerMinute)
	v.PositiveDuration("api.shutdown_timeout", cfg.API.ShutdownTimeout)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, exporters)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	v.OneOf("storage.job_store", cfg.Storage.JobStore, jobStores)
	v.NotEmpty("storage.temp_dir", cfg.Storage.TempDir)
	if cfg.Storage.JobStore == JobStoreSQLite {
		v.NotEmpty("storage.job_db", cfg.Storage.JobDB)
	}

	return v.Err()
}

func validateCapture(v *validate.Validator, c CaptureConfig) {
	v.FloatRange("capture.target_fps", c.TargetFPS, 1, 240)
	v.Positive("capture.min_width", c.MinWidth)
	v.OneOf("capture.initial_facing", string(c.InitialFacing), facings)
	v.OneOf("capture.permissions.video", c.Permissions.Video, permissions)
	v.OneOf("capture.permissions.audio", c.Permissions.Audio, permissions)
	v.Range("capture.preview_workers", c.PreviewWorkers, 1, 64)

	seen := make(map[string]struct{}, len(c.Cameras))
	for i, cam := range c.Cameras {
		field := fmt.Sprintf("capture.cameras[%d]", i)
		v.NotEmpty(field+".id", cam.ID)
		if _, dup := seen[cam.ID]; dup {
			v.AddError(field+".id", "duplicate camera id", cam.ID)
		}
		seen[cam.ID] = struct{}{}
		v.OneOf(field+".facing", string(cam.Facing), facings)
		v.NotEmpty(field+".input_format", cam.InputFormat)
		v.NotEmpty(field+".path", cam.Path)
		for j, f := range cam.Formats {
			ff := fmt.Sprintf("%s.formats[%d]", field, j)
			v.Positive(ff+".width", f.Width)
			v.Positive(ff+".height", f.Height)
			v.FloatRange(ff+".max_fps", f.MaxFPS, 1, 240)
		}
	}
	if c.Microphone != nil {
		v.NotEmpty("capture.microphone.input_format", c.Microphone.InputFormat)
		v.NotEmpty("capture.microphone.path", c.Microphone.Path)
	}
}

func validateRecording(v *validate.Validator, r RecordingConfig) {
	v.PositiveDuration("recording.total_duration", r.TotalDuration)
	v.PositiveDuration("recording.duration_a", r.DurationA)
	if r.DurationA >= r.TotalDuration {
		v.AddError("recording.duration_a",
			fmt.Sprintf("must be shorter than total_duration (%s), got %s", r.TotalDuration, r.DurationA),
			r.DurationA)
	}
	v.NonNegativeDuration("recording.settle_delay", r.SettleDelay)
	v.PositiveDuration("recording.tick_interval", r.TickInterval)
}
