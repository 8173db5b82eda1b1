// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package preview

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"sync"

	"github.com/ManuGH/splitcap/internal/domain"
)

// ErrNoFrame is returned by Latest.JPEG before the first frame arrives.
var ErrNoFrame = errors.New("preview: no frame yet")

// Latest keeps the most recent preview frame for pull-based readers.
type Latest struct {
	mu    sync.RWMutex
	frame *domain.PreviewFrame
}

// Run drains frames until the channel is closed or ctx is done.
func (l *Latest) Run(ctx context.Context, frames <-chan domain.PreviewFrame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			l.mu.Lock()
			l.frame = &f
			l.mu.Unlock()
		}
	}
}

// Frame returns the latest frame, if any.
func (l *Latest) Frame() (domain.PreviewFrame, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.frame == nil {
		return domain.PreviewFrame{}, false
	}
	return *l.frame, true
}

// JPEG encodes the latest frame.
func (l *Latest) JPEG(quality int) ([]byte, error) {
	f, ok := l.Frame()
	if !ok {
		return nil, ErrNoFrame
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
