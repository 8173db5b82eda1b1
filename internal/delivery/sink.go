// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/splitcap/internal/log"
)

// Item is one deliverable handed to a Sink.
type Item struct {
	SessionID   string
	Video       string
	Thumbnail   []byte
	Duration    time.Duration
	ExportJobID string
}

// Sink accepts finished deliverables.
type Sink interface {
	Deliver(ctx context.Context, item Item) error
}

// Manifest describes a delivered recording. It is written last, so its
// presence marks the video and thumbnail as complete.
type Manifest struct {
	SessionID   string    `json:"session_id"`
	Video       string    `json:"video"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	ExportJobID string    `json:"export_job_id,omitempty"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// DirSink publishes deliverables into an outbox directory. Every file
// appears atomically under its final name.
type DirSink struct {
	dir string
	now func() time.Time
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("delivery: outbox dir is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("delivery: create outbox: %w", err)
	}
	return &DirSink{dir: dir, now: time.Now}, nil
}

// Dir returns the outbox directory.
func (s *DirSink) Dir() string { return s.dir }

func (s *DirSink) Deliver(ctx context.Context, item Item) error {
	if item.SessionID == "" {
		return fmt.Errorf("delivery: item has no session id")
	}
	m := Manifest{
		SessionID:   item.SessionID,
		Video:       item.SessionID + ".mp4",
		DurationMS:  item.Duration.Milliseconds(),
		ExportJobID: item.ExportJobID,
	}
	if err := publishFile(ctx, filepath.Join(s.dir, m.Video), item.Video); err != nil {
		return err
	}
	if len(item.Thumbnail) > 0 {
		m.Thumbnail = item.SessionID + ".jpg"
		if err := renameio.WriteFile(filepath.Join(s.dir, m.Thumbnail), item.Thumbnail, 0o644); err != nil {
			return fmt.Errorf("delivery: write thumbnail: %w", err)
		}
	}
	m.DeliveredAt = s.now().UTC()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(filepath.Join(s.dir, item.SessionID+".json"), data, 0o644); err != nil {
		return fmt.Errorf("delivery: write manifest: %w", err)
	}
	return nil
}

// publishFile copies src to dst through a pending file so readers never
// observe a partial video.
func publishFile(ctx context.Context, dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("delivery: open video: %w", err)
	}
	defer func() { _ = in.Close() }()

	pending, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("delivery: create pending video: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := log.WithContext(ctx, log.WithComponent("delivery"))
			logger.Debug().Err(err).Msg("cleanup pending video")
		}
	}()

	if _, err := io.Copy(pending, in); err != nil {
		return fmt.Errorf("delivery: copy video: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("delivery: publish video: %w", err)
	}
	return nil
}
