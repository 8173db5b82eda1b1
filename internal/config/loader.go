// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/splitcap/internal/domain"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file decode -> env overrides -> derived paths -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.FFmpeg.FFprobeBin = ResolveFFprobeBin(cfg.FFmpeg.FFprobeBin, cfg.FFmpeg.Bin)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	resolvePaths(&cfg)

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields are fatal to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)

	cfg.FFmpeg.Bin = l.envString(EnvFFmpegBin, cfg.FFmpeg.Bin)
	cfg.FFmpeg.FFprobeBin = l.envString(EnvFFprobeBin, cfg.FFmpeg.FFprobeBin)

	cfg.Capture.TargetFPS = l.envFloat(EnvTargetFPS, cfg.Capture.TargetFPS)
	cfg.Capture.MinWidth = l.envInt(EnvMinWidth, cfg.Capture.MinWidth)
	cfg.Capture.InitialFacing = domain.Facing(l.envString(EnvInitialFacing, string(cfg.Capture.InitialFacing)))
	cfg.Capture.Permissions.Video = l.envString(EnvVideoPermission, cfg.Capture.Permissions.Video)
	cfg.Capture.Permissions.Audio = l.envString(EnvAudioPermission, cfg.Capture.Permissions.Audio)

	cfg.Recording.TotalDuration = l.envDuration(EnvTotalDuration, cfg.Recording.TotalDuration)
	cfg.Recording.DurationA = l.envDuration(EnvDurationA, cfg.Recording.DurationA)
	cfg.Recording.SettleDelay = l.envDuration(EnvSettleDelay, cfg.Recording.SettleDelay)
	cfg.Recording.TickInterval = l.envDuration(EnvTickInterval, cfg.Recording.TickInterval)
	cfg.Recording.RetainIntermediates = l.envBool(EnvRetainIntermediates, cfg.Recording.RetainIntermediates)

	cfg.Export.DeliveryWidth = l.envInt(EnvDeliveryWidth, cfg.Export.DeliveryWidth)
	cfg.Export.DeliveryHeight = l.envInt(EnvDeliveryHeight, cfg.Export.DeliveryHeight)

	cfg.Delivery.Enabled = l.envBool(EnvDeliveryEnabled, cfg.Delivery.Enabled)
	cfg.Delivery.OutboxDir = l.envString(EnvOutboxDir, cfg.Delivery.OutboxDir)

	cfg.API.ListenAddr = l.envString(EnvListenAddr, cfg.API.ListenAddr)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = l.envString(EnvOTLPEndpoint, cfg.Telemetry.Endpoint)

	cfg.Storage.JobStore = l.envString(EnvJobStore, cfg.Storage.JobStore)
	cfg.Storage.TempDir = l.envString(EnvTempDir, cfg.Storage.TempDir)
}

// resolvePaths fills storage locations left empty relative to DataDir.
func resolvePaths(cfg *AppConfig) {
	if cfg.Storage.TempDir == "" {
		cfg.Storage.TempDir = filepath.Join(cfg.DataDir, "tmp")
	}
	if cfg.Storage.JobDB == "" {
		cfg.Storage.JobDB = filepath.Join(cfg.DataDir, "jobs.db")
	}
	if cfg.Delivery.OutboxDir == "" {
		cfg.Delivery.OutboxDir = filepath.Join(cfg.DataDir, "outbox")
	}
}
