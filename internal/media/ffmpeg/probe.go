// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/log"
)

// ErrNoPlayableStream is returned when ffprobe finds no decodable track.
var ErrNoPlayableStream = errors.New("ffprobe: no playable streams")

// Prober inspects media files with ffprobe.
type Prober struct {
	Bin    string
	logger zerolog.Logger
}

// NewProber creates a prober for the given ffprobe binary.
func NewProber(bin string) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{Bin: bin, logger: log.WithComponent("ffprobe")}
}

// Probe returns container, duration and first video/audio track details of path.
func (p *Prober) Probe(ctx context.Context, path string) (domain.MediaInfo, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	// #nosec G204 -- binary comes from config; path is an opaque argument
	cmd := exec.CommandContext(ctx, p.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, runErr := cmd.Output()

	var data probeData
	jsonErr := json.Unmarshal(out, &data)

	// ffprobe may exit non-zero on trailing garbage yet print usable JSON.
	if jsonErr == nil && data.playable() {
		if runErr != nil {
			p.logger.Warn().
				Err(runErr).
				Str(log.FieldPath, path).
				Str("stderr", truncate(stderr.String(), 4096)).
				Msg("ffprobe non-zero exit but JSON accepted")
		}
		return data.mediaInfo()
	}
	if runErr != nil {
		return domain.MediaInfo{}, fmt.Errorf("ffprobe failed: %w (stderr: %s)", runErr, truncate(stderr.String(), 4096))
	}
	if jsonErr != nil {
		return domain.MediaInfo{}, fmt.Errorf("ffprobe json decode: %w", jsonErr)
	}
	return domain.MediaInfo{}, ErrNoPlayableStream
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Duration     string `json:"duration,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	AvgFrameRate string `json:"avg_frame_rate,omitempty"`
	SampleRate   string `json:"sample_rate,omitempty"`
	Channels     int    `json:"channels,omitempty"`
}

type probeData struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

func (d probeData) playable() bool {
	if d.Format.FormatName == "" {
		return false
	}
	for _, s := range d.Streams {
		if (s.CodecType == "video" || s.CodecType == "audio") && s.CodecName != "" {
			return true
		}
	}
	return false
}

func (d probeData) mediaInfo() (domain.MediaInfo, error) {
	info := domain.MediaInfo{Container: canonicalContainer(d.Format.FormatName)}
	if info.Container == "" {
		return info, fmt.Errorf("ffprobe returned empty format_name token list")
	}

	var streamDur time.Duration
	for _, s := range d.Streams {
		switch s.CodecType {
		case "video":
			if info.Video != nil {
				continue
			}
			info.Video = &domain.VideoTrack{
				Codec:  s.CodecName,
				Width:  s.Width,
				Height: s.Height,
				FPS:    parseRate(s.AvgFrameRate),
			}
			streamDur = parseSeconds(s.Duration)
		case "audio":
			if info.Audio != nil {
				continue
			}
			sr, _ := strconv.Atoi(s.SampleRate)
			info.Audio = &domain.AudioTrack{Codec: s.CodecName, SampleRate: sr, Channels: s.Channels}
		}
	}

	info.Duration = parseSeconds(d.Format.Duration)
	if info.Duration == 0 {
		info.Duration = streamDur
	}
	return info, nil
}

// canonicalContainer picks the first token of a demuxer list such as
// "mov,mp4,m4a,3gp,3g2,mj2", preferring ts for mpegts.
func canonicalContainer(formatName string) string {
	canonical := ""
	for _, part := range strings.Split(formatName, ",") {
		t := strings.TrimSpace(part)
		if t == "mpegts" {
			return "ts"
		}
		if canonical == "" && t != "" {
			canonical = t
		}
	}
	return canonical
}

func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return time.Duration(math.Round(f * float64(time.Second)))
}

func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
