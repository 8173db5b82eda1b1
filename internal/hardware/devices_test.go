// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/splitcap/internal/config"
	"github.com/ManuGH/splitcap/internal/domain"
)

func TestDevices_DefaultDevice(t *testing.T) {
	hd := domain.Format{Width: 1920, Height: 1080, MaxFPS: 30}
	d := NewDevices(config.CaptureConfig{
		Cameras: []config.CameraConfig{
			{ID: "usb-front", Facing: domain.FacingFront, InputFormat: "v4l2", Path: "/dev/video0", Formats: []domain.Format{hd}},
			{ID: "synthetic-front", Facing: domain.FacingFront, InputFormat: "lavfi", Path: "testsrc2"},
			{ID: "usb-back", Facing: domain.FacingBack, InputFormat: "v4l2", Path: "/dev/video2"},
		},
	})
	d.exists = func(path string) bool { return path == "/dev/video0" }

	front := d.DefaultDevice(domain.FacingFront)
	require.NotNil(t, front)
	assert.Equal(t, "usb-front", front.ID)
	assert.Equal(t, hd, front.Default)

	assert.Nil(t, d.DefaultDevice(domain.FacingBack), "missing node is unavailable")

	d.exists = func(string) bool { return false }
	front = d.DefaultDevice(domain.FacingFront)
	require.NotNil(t, front)
	assert.Equal(t, "synthetic-front", front.ID)
	assert.Equal(t, fallbackFormat, front.Default)
}

func TestDevices_ReturnsCopies(t *testing.T) {
	d := NewDevices(config.CaptureConfig{
		Cameras:    []config.CameraConfig{{ID: "cam", Facing: domain.FacingBack, InputFormat: "lavfi", Path: "testsrc2"}},
		Microphone: &config.MicrophoneConfig{ID: "mic", InputFormat: "lavfi", Path: "sine"},
	})

	dev := d.DefaultDevice(domain.FacingBack)
	dev.ID = "mutated"
	assert.Equal(t, "cam", d.DefaultDevice(domain.FacingBack).ID)

	mic := d.DefaultMicrophone()
	require.NotNil(t, mic)
	mic.Path = "mutated"
	assert.Equal(t, "sine", d.DefaultMicrophone().Path)
}

func TestDevices_NoMicrophone(t *testing.T) {
	assert.Nil(t, NewDevices(config.CaptureConfig{}).DefaultMicrophone())
}
