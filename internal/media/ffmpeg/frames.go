// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"image"
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
)

// FrameWriter reassembles a rawvideo RGBA byte stream into frames. Each
// emitted frame owns a fresh pixel buffer.
type FrameWriter struct {
	size  domain.Size
	frame *image.RGBA
	fill  int
	now   func() time.Time
	emit  func(domain.RawFrame)
}

// NewFrameWriter returns an io.Writer that calls emit for every complete frame
// of the given size, stamped with now().
func NewFrameWriter(size domain.Size, now func() time.Time, emit func(domain.RawFrame)) *FrameWriter {
	w := &FrameWriter{size: size, now: now, emit: emit}
	w.reset()
	return w
}

func (w *FrameWriter) reset() {
	w.frame = image.NewRGBA(image.Rect(0, 0, w.size.Width, w.size.Height))
	w.fill = 0
}

// Write implements io.Writer.
func (w *FrameWriter) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		n := copy(w.frame.Pix[w.fill:], p)
		w.fill += n
		p = p[n:]
		if w.fill == len(w.frame.Pix) {
			w.emit(domain.RawFrame{Image: w.frame, Timestamp: w.now()})
			w.reset()
		}
	}
	return total, nil
}
