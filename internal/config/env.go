// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/splitcap/internal/log"
)

// Environment keys read by Loader.
const (
	EnvLogLevel            = "SPLITCAP_LOG_LEVEL"
	EnvDataDir             = "SPLITCAP_DATA_DIR"
	EnvFFmpegBin           = "SPLITCAP_FFMPEG_BIN"
	EnvFFprobeBin          = "SPLITCAP_FFPROBE_BIN"
	EnvTargetFPS           = "SPLITCAP_TARGET_FPS"
	EnvMinWidth            = "SPLITCAP_MIN_WIDTH"
	EnvInitialFacing       = "SPLITCAP_INITIAL_FACING"
	EnvVideoPermission     = "SPLITCAP_VIDEO_PERMISSION"
	EnvAudioPermission     = "SPLITCAP_AUDIO_PERMISSION"
	EnvTotalDuration       = "SPLITCAP_TOTAL_DURATION"
	EnvDurationA           = "SPLITCAP_DURATION_A"
	EnvSettleDelay         = "SPLITCAP_SETTLE_DELAY"
	EnvTickInterval        = "SPLITCAP_TICK_INTERVAL"
	EnvRetainIntermediates = "SPLITCAP_RETAIN_INTERMEDIATES"
	EnvDeliveryWidth       = "SPLITCAP_DELIVERY_WIDTH"
	EnvDeliveryHeight      = "SPLITCAP_DELIVERY_HEIGHT"
	EnvDeliveryEnabled     = "SPLITCAP_DELIVERY_ENABLED"
	EnvOutboxDir           = "SPLITCAP_OUTBOX_DIR"
	EnvListenAddr          = "SPLITCAP_LISTEN_ADDR"
	EnvTelemetryEnabled    = "SPLITCAP_TELEMETRY_ENABLED"
	EnvOTLPEndpoint        = "SPLITCAP_OTLP_ENDPOINT"
	EnvJobStore            = "SPLITCAP_JOB_STORE"
	EnvTempDir             = "SPLITCAP_TEMP_DIR"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseEnv(log.WithComponent("config"), key, defaultValue,
		func(s string) (string, error) { return s, nil },
		func(e *zerolog.Event, k, v string) *zerolog.Event { return e.Str(k, v) })
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(log.WithComponent("config"), key, defaultValue, strconv.Atoi,
		func(e *zerolog.Event, k string, v int) *zerolog.Event { return e.Int(k, v) })
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(log.WithComponent("config"), key, defaultValue,
		func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
		func(e *zerolog.Event, k string, v float64) *zerolog.Event { return e.Float64(k, v) })
}

// ParseDuration reads a duration in Go duration format (e.g. "6s").
// It falls back to default on parse errors or empty variables and logs the choice.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(log.WithComponent("config"), key, defaultValue, time.ParseDuration,
		func(e *zerolog.Event, k string, v time.Duration) *zerolog.Event { return e.Dur(k, v) })
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(log.WithComponent("config"), key, defaultValue, parseBool,
		func(e *zerolog.Event, k string, v bool) *zerolog.Event { return e.Bool(k, v) })
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func parseEnv[T any](
	logger zerolog.Logger,
	key string,
	defaultValue T,
	parse func(string) (T, error),
	field func(*zerolog.Event, string, T) *zerolog.Event,
) T {
	v, ok := os.LookupEnv(key)
	if !ok {
		field(logger.Debug().Str("key", key), "default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	if v == "" {
		field(logger.Debug().Str("key", key), "default", defaultValue).
			Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return defaultValue
	}
	parsed, err := parse(v)
	if err != nil {
		field(logger.Warn().Str("key", key).Str("value", v), "default", defaultValue).
			Err(err).
			Msg("invalid value in environment variable, using default")
		return defaultValue
	}
	field(logger.Debug().Str("key", key), "value", parsed).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}
