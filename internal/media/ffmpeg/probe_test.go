// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/splitcap/internal/domain"
)

const probeJSON = `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001", "duration": "3.003000"},
    {"codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"duration": "3.010000", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestProbeData_MediaInfo(t *testing.T) {
	var d probeData
	require.NoError(t, json.Unmarshal([]byte(probeJSON), &d))
	require.True(t, d.playable())

	got, err := d.mediaInfo()
	require.NoError(t, err)

	want := domain.MediaInfo{
		Container: "mov",
		Duration:  3010 * time.Millisecond,
		Video:     &domain.VideoTrack{Codec: "h264", Width: 1920, Height: 1080, FPS: 30000.0 / 1001.0},
		Audio:     &domain.AudioTrack{Codec: "aac", SampleRate: 48000, Channels: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("media info mismatch (-want +got):\n%s", diff)
	}
}

func TestProbeData_VideoOnlyFallsBackToStreamDuration(t *testing.T) {
	d := probeData{Streams: []probeStream{{CodecType: "video", CodecName: "h264", Duration: "2.5"}}}
	d.Format.FormatName = "mpegts"

	got, err := d.mediaInfo()
	require.NoError(t, err)
	assert.Equal(t, "ts", got.Container)
	assert.Equal(t, 2500*time.Millisecond, got.Duration)
	assert.Nil(t, got.Audio)
}

func TestProbeData_NotPlayable(t *testing.T) {
	d := probeData{Streams: []probeStream{{CodecType: "data", CodecName: "bin_data"}}}
	d.Format.FormatName = "mp4"
	assert.False(t, d.playable())
}

func TestParseRate(t *testing.T) {
	assert.InDelta(t, 29.97, parseRate("30000/1001"), 0.001)
	assert.Equal(t, 0.0, parseRate("0/0"))
	assert.Equal(t, 25.0, parseRate("25"))
}
