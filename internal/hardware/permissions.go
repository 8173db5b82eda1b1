// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package hardware

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/splitcap/internal/config"
	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/media/ffmpeg"
)

// Permissions resolves capture permissions from the configured override and,
// in auto mode, from whether the process can open the device nodes.
type Permissions struct {
	video  string
	audio  string
	nodes  []string
	mic    string
	logger zerolog.Logger
	probe  func(path string) bool
}

var _ domain.PermissionProvider = (*Permissions)(nil)

// NewPermissions builds a provider for the capture section of the config.
func NewPermissions(cfg config.CaptureConfig) *Permissions {
	p := &Permissions{
		video:  cfg.Permissions.Video,
		audio:  cfg.Permissions.Audio,
		logger: log.WithComponent("permissions"),
		probe:  readable,
	}
	for _, cam := range cfg.Cameras {
		if cam.InputFormat == ffmpeg.FormatV4L2 {
			p.nodes = append(p.nodes, cam.Path)
		}
	}
	if cfg.Microphone != nil && isDeviceNode(cfg.Microphone.Path) {
		p.mic = cfg.Microphone.Path
	}
	return p
}

func (p *Permissions) RequestVideoAccess(ctx context.Context) bool {
	return p.resolve(ctx, "video", p.video, func() bool {
		if len(p.nodes) == 0 {
			return true
		}
		for _, n := range p.nodes {
			if p.probe(n) {
				return true
			}
		}
		return false
	})
}

func (p *Permissions) RequestAudioAccess(ctx context.Context) bool {
	return p.resolve(ctx, "audio", p.audio, func() bool {
		return p.mic == "" || p.probe(p.mic)
	})
}

// resolve answers overrides immediately. Auto mode is evaluated off the
// caller's goroutine so a hanging device open cannot outlive ctx.
func (p *Permissions) resolve(ctx context.Context, kind, mode string, check func() bool) bool {
	switch mode {
	case config.PermissionGranted:
		return true
	case config.PermissionDenied:
		return false
	}

	res := make(chan bool, 1)
	go func() { res <- check() }()
	select {
	case ok := <-res:
		if !ok {
			p.logger.Warn().Str(log.FieldEvent, "permissions.denied").Str("kind", kind).Msg("device nodes not accessible")
		}
		return ok
	case <-ctx.Done():
		return false
	}
}

func readable(path string) bool {
	f, err := os.Open(path) // #nosec G304 -- configured device node
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

func isDeviceNode(path string) bool {
	return strings.HasPrefix(path, "/dev/")
}

// StaticPermissions is a fixed PermissionProvider.
type StaticPermissions struct {
	Video bool
	Audio bool
}

func (s StaticPermissions) RequestVideoAccess(context.Context) bool { return s.Video }
func (s StaticPermissions) RequestAudioAccess(context.Context) bool { return s.Audio }
