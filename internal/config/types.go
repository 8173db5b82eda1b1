// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
)

// Permission override values for capture.permissions.
const (
	PermissionAuto    = "auto"
	PermissionGranted = "granted"
	PermissionDenied  = "denied"
)

// Job store backends for storage.job_store.
const (
	JobStoreMemory = "memory"
	JobStoreSQLite = "sqlite"
)

// AppConfig is the fully resolved daemon configuration.
type AppConfig struct {
	Version    string          `yaml:"-"`
	LogLevel   string          `yaml:"log_level"`
	LogService string          `yaml:"log_service"`
	DataDir    string          `yaml:"data_dir"`
	FFmpeg     FFmpegConfig    `yaml:"ffmpeg"`
	Capture    CaptureConfig   `yaml:"capture"`
	Recording  RecordingConfig `yaml:"recording"`
	Export     ExportConfig    `yaml:"export"`
	Delivery   DeliveryConfig  `yaml:"delivery"`
	API        APIConfig       `yaml:"api"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
	Storage    StorageConfig   `yaml:"storage"`
}

type FFmpegConfig struct {
	Bin        string `yaml:"bin"`
	FFprobeBin string `yaml:"ffprobe_bin"`
	// KillTimeout bounds SIGTERM -> SIGKILL escalation for encode jobs.
	KillTimeout time.Duration `yaml:"kill_timeout"`
	// FinalizeTimeout bounds how long a segment writer may take to flush its
	// container after SIGINT.
	FinalizeTimeout time.Duration `yaml:"finalize_timeout"`
	// StartTimeout aborts a segment write that never receives a first frame.
	StartTimeout time.Duration `yaml:"start_timeout"`
	// StallTimeout aborts a segment write whose camera stops delivering frames.
	StallTimeout time.Duration `yaml:"stall_timeout"`
}

type CaptureConfig struct {
	TargetFPS     float64           `yaml:"target_fps"`
	MinWidth      int               `yaml:"min_width"`
	Preset        string            `yaml:"preset"`
	InitialFacing domain.Facing     `yaml:"initial_facing"`
	Cameras       []CameraConfig    `yaml:"cameras"`
	Microphone    *MicrophoneConfig `yaml:"microphone"`
	Permissions   PermissionsConfig `yaml:"permissions"`
	// PreviewWorkers bounds concurrent frame conversions.
	PreviewWorkers int `yaml:"preview_workers"`
}

type CameraConfig struct {
	ID          string          `yaml:"id"`
	Facing      domain.Facing   `yaml:"facing"`
	InputFormat string          `yaml:"input_format"`
	Path        string          `yaml:"path"`
	Formats     []domain.Format `yaml:"formats"`
}

type MicrophoneConfig struct {
	ID          string `yaml:"id"`
	InputFormat string `yaml:"input_format"`
	Path        string `yaml:"path"`
}

type PermissionsConfig struct {
	Video string `yaml:"video"`
	Audio string `yaml:"audio"`
}

type RecordingConfig struct {
	TotalDuration       time.Duration `yaml:"total_duration"`
	DurationA           time.Duration `yaml:"duration_a"`
	SettleDelay         time.Duration `yaml:"settle_delay"`
	TickInterval        time.Duration `yaml:"tick_interval"`
	RetainIntermediates bool          `yaml:"retain_intermediates"`
}

// DurationB is the back-half length of a recording.
func (r RecordingConfig) DurationB() time.Duration {
	return r.TotalDuration - r.DurationA
}

type ExportConfig struct {
	Preset           string `yaml:"preset"`
	CRF              int    `yaml:"crf"`
	DeliveryWidth    int    `yaml:"delivery_width"`
	DeliveryHeight   int    `yaml:"delivery_height"`
	VideoBitrate     string `yaml:"video_bitrate"`
	AudioBitrate     string `yaml:"audio_bitrate"`
	ThumbnailWidth   int    `yaml:"thumbnail_width"`
	ThumbnailQuality int    `yaml:"thumbnail_quality"`
}

type DeliveryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutboxDir string `yaml:"outbox_dir"`
}

type APIConfig struct {
	ListenAddr         string        `yaml:"listen_addr"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

type StorageConfig struct {
	TempDir  string `yaml:"temp_dir"`
	JobStore string `yaml:"job_store"`
	// JobDB is the sqlite path used when JobStore is "sqlite".
	JobDB string `yaml:"job_db"`
}
