// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/splitcap/internal/domain"
)

func TestFrameWriter_SplitsAcrossWrites(t *testing.T) {
	var frames []domain.RawFrame
	ts := time.Unix(100, 0)
	w := NewFrameWriter(domain.Size{Width: 2, Height: 1}, func() time.Time { return ts }, func(f domain.RawFrame) {
		frames = append(frames, f)
	})

	// Two 2x1 RGBA frames (8 bytes each) delivered in uneven chunks.
	stream := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17}
	n, err := w.Write(stream[:3])
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, _ = w.Write(stream[3:11])
	_, _ = w.Write(stream[11:])

	require.Len(t, frames, 2)
	assert.Equal(t, stream[:8], frames[0].Image.Pix)
	assert.Equal(t, stream[8:16], frames[1].Image.Pix)
	assert.Equal(t, ts, frames[0].Timestamp)
	// Frames must not share buffers.
	frames[0].Image.Pix[0] = 99
	assert.Equal(t, byte(9), frames[1].Image.Pix[0])
}
