// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"bytes"
	"sync"
)

// LineRing is a thread-safe ring buffer for capturing the last N lines of
// process output. It implements io.Writer and joins lines split across writes.
type LineRing struct {
	mu      sync.RWMutex
	lines   []string
	head    int
	count   int
	partial []byte
}

// NewLineRing creates a LineRing with the specified capacity.
func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 50
	}
	return &LineRing{lines: make([]string, capacity)}
}

// Write implements io.Writer.
func (r *LineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			r.partial = append(r.partial, data...)
			break
		}
		line := append(r.partial, data[:i]...)
		r.partial = r.partial[:0]
		r.push(string(bytes.TrimRight(line, "\r")))
		data = data[i+1:]
	}
	return len(p), nil
}

func (r *LineRing) push(line string) {
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// LastN returns the last n complete lines in chronological order, followed by
// any unterminated trailing output.
func (r *LineRing) LastN(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ordered := make([]string, 0, r.count+1)
	start := (r.head - r.count + len(r.lines)) % len(r.lines)
	for i := 0; i < r.count; i++ {
		ordered = append(ordered, r.lines[(start+i)%len(r.lines)])
	}
	if len(r.partial) > 0 {
		ordered = append(ordered, string(r.partial))
	}
	if n < 0 || len(ordered) <= n {
		return ordered
	}
	return ordered[len(ordered)-n:]
}
