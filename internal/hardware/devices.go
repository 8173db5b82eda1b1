// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package hardware

import (
	"os"

	"github.com/ManuGH/splitcap/internal/config"
	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/media/ffmpeg"
)

// fallbackFormat is assumed for cameras that declare no formats.
var fallbackFormat = domain.Format{Width: 1280, Height: 720, MaxFPS: 30}

// Devices enumerates the cameras and microphone declared in configuration.
type Devices struct {
	cameras []domain.Device
	mic     *domain.Device
	exists  func(path string) bool
}

var _ domain.DeviceEnumerator = (*Devices)(nil)

// NewDevices converts the configured capture hardware.
func NewDevices(cfg config.CaptureConfig) *Devices {
	d := &Devices{exists: nodeExists}
	for _, c := range cfg.Cameras {
		dev := domain.Device{
			ID:          c.ID,
			Facing:      c.Facing,
			InputFormat: c.InputFormat,
			Path:        c.Path,
			Formats:     append([]domain.Format(nil), c.Formats...),
			Default:     fallbackFormat,
		}
		if len(c.Formats) > 0 {
			dev.Default = c.Formats[0]
		}
		d.cameras = append(d.cameras, dev)
	}
	if m := cfg.Microphone; m != nil {
		d.mic = &domain.Device{ID: m.ID, InputFormat: m.InputFormat, Path: m.Path}
	}
	return d
}

// DefaultDevice returns the first configured camera for facing whose device
// node is present. Only v4l2 inputs are checked on disk.
func (d *Devices) DefaultDevice(facing domain.Facing) *domain.Device {
	for i := range d.cameras {
		c := d.cameras[i]
		if c.Facing != facing {
			continue
		}
		if c.InputFormat == ffmpeg.FormatV4L2 && !d.exists(c.Path) {
			continue
		}
		return &c
	}
	return nil
}

func (d *Devices) DefaultMicrophone() *domain.Device {
	if d.mic == nil {
		return nil
	}
	m := *d.mic
	return &m
}

func nodeExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
