// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ManuGH/splitcap/internal/domain"
)

// Demuxer names with special input handling.
const (
	FormatLavfi        = "lavfi"
	FormatV4L2         = "v4l2"
	FormatAVFoundation = "avfoundation"
)

// Input is one capture source.
type Input struct {
	// Format is the ffmpeg demuxer (v4l2, avfoundation, alsa, pulse, lavfi).
	Format string
	Path   string
	Width  int
	Height int
	FPS    float64
}

// CaptureSpec describes the live inputs and the preview tap of a capture graph.
type CaptureSpec struct {
	Video   Input
	Audio   *Input
	Preview domain.Size
}

// SegmentOutput describes the file written while recording one segment.
type SegmentOutput struct {
	Path   string
	Mirror bool
	Preset string
	CRF    int
}

// ExportOptions controls the high quality composition render.
type ExportOptions struct {
	Path         string
	Preset       string
	CRF          int
	AudioBitrate string
}

// TranscodeOptions controls the delivery transcode.
type TranscodeOptions struct {
	Path         string
	Target       domain.Size
	VideoBitrate string
	AudioBitrate string
}

func baseArgs() []string {
	return []string{"-hide_banner", "-nostdin", "-loglevel", "error"}
}

func inputArgs(in Input) []string {
	if in.Format == FormatLavfi {
		return []string{"-f", FormatLavfi, "-i", in.Path}
	}
	args := []string{"-thread_queue_size", "512", "-f", in.Format}
	if in.FPS > 0 {
		args = append(args, "-framerate", formatFloat(in.FPS))
	}
	if in.Width > 0 && in.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", in.Width, in.Height))
	}
	return append(args, "-i", in.Path)
}

func previewOutput(label string) []string {
	return []string{"-map", label, "-f", "rawvideo", "-pix_fmt", "rgba", "pipe:1"}
}

// PreviewSize scales a capture format down to maxWidth, keeping aspect and even dimensions.
func PreviewSize(format domain.Size, maxWidth int) domain.Size {
	if format.Width <= 0 || format.Height <= 0 {
		return domain.Size{Width: maxWidth, Height: even(float64(maxWidth) * 9 / 16)}
	}
	if format.Width <= maxWidth {
		return domain.Size{Width: even(float64(format.Width)), Height: even(float64(format.Height))}
	}
	s := float64(maxWidth) / float64(format.Width)
	return domain.Size{Width: even(float64(format.Width) * s), Height: even(float64(format.Height) * s)}
}

// PreviewArgs builds a preview-only capture emitting rawvideo RGBA on stdout.
func PreviewArgs(spec CaptureSpec) []string {
	args := append(baseArgs(), inputArgs(spec.Video)...)
	args = append(args, "-filter_complex",
		fmt.Sprintf("[0:v]scale=%d:%d,format=rgba[pv]", spec.Preview.Width, spec.Preview.Height))
	return append(args, previewOutput("[pv]")...)
}

// RecordArgs builds a capture that writes one segment file and keeps feeding
// the preview pipe. Mirroring applies to the recorded picture only; the
// preview processor orients preview frames itself.
func RecordArgs(spec CaptureSpec, out SegmentOutput) []string {
	args := append(baseArgs(), inputArgs(spec.Video)...)
	if spec.Audio != nil {
		args = append(args, inputArgs(*spec.Audio)...)
	}

	rec := "format=yuv420p"
	if out.Mirror {
		rec = "hflip," + rec
	}
	graph := fmt.Sprintf("[0:v]split=2[rec][pv];[rec]%s[recv];[pv]scale=%d:%d,format=rgba[pvo]",
		rec, spec.Preview.Width, spec.Preview.Height)
	args = append(args, "-filter_complex", graph, "-map", "[recv]")
	if spec.Audio != nil {
		args = append(args, "-map", "1:a:0", "-c:a", "aac", "-b:a", "128k")
	}

	preset := out.Preset
	if preset == "" {
		preset = "veryfast"
	}
	crf := out.CRF
	if crf <= 0 {
		crf = 18
	}
	args = append(args,
		"-c:v", "libx264", "-preset", preset, "-crf", strconv.Itoa(crf),
		"-movflags", "+faststart",
		"-y", out.Path,
	)
	return append(args, previewOutput("[pvo]")...)
}

// ErrEmptyTimeline is returned when a timeline holds no video entries.
var ErrEmptyTimeline = errors.New("composition timeline has no video entries")

// ExportArgs renders a composition timeline: every segment is trimmed to its
// timeline duration, rotated by the timeline transform, fitted to the render
// size and concatenated in offset order. Segments without audio contribute
// silence when any segment carries audio.
func ExportArgs(tl domain.CompositionTimeline, opts ExportOptions) ([]string, error) {
	video := tl.Tracks(domain.TrackVideo)
	if len(video) == 0 {
		return nil, ErrEmptyTimeline
	}
	audio := make(map[domain.Ordinal]domain.TimelineEntry)
	for _, e := range tl.Tracks(domain.TrackAudio) {
		audio[e.Segment] = e
	}
	withAudio := len(audio) > 0

	args := baseArgs()
	for _, e := range video {
		args = append(args, "-i", e.Source)
	}

	rotate := rotationFilter(tl.Transform.RotationDegrees)
	w, h := tl.RenderSize.Width, tl.RenderSize.Height

	var graph strings.Builder
	var concatIn strings.Builder
	for i, e := range video {
		secs := formatFloat(e.Duration.Seconds())
		fmt.Fprintf(&graph, "[%d:v]trim=duration=%s,setpts=PTS-STARTPTS,", i, secs)
		if rotate != "" {
			graph.WriteString(rotate + ",")
		}
		fmt.Fprintf(&graph,
			"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,format=yuv420p[v%d];",
			w, h, w, h, i)
		fmt.Fprintf(&concatIn, "[v%d]", i)

		if !withAudio {
			continue
		}
		if _, ok := audio[e.Segment]; ok {
			fmt.Fprintf(&graph,
				"[%d:a]atrim=duration=%s,asetpts=PTS-STARTPTS,aresample=48000,aformat=sample_fmts=fltp:channel_layouts=stereo[a%d];",
				i, secs, i)
		} else {
			fmt.Fprintf(&graph, "anullsrc=r=48000:cl=stereo,atrim=duration=%s,aformat=sample_fmts=fltp[a%d];", secs, i)
		}
		fmt.Fprintf(&concatIn, "[a%d]", i)
	}

	a := 0
	if withAudio {
		a = 1
	}
	fmt.Fprintf(&graph, "%sconcat=n=%d:v=1:a=%d[v]", concatIn.String(), len(video), a)
	if withAudio {
		graph.WriteString("[a]")
	}

	args = append(args, "-filter_complex", graph.String(), "-map", "[v]")
	if withAudio {
		args = append(args, "-map", "[a]", "-c:a", "aac", "-b:a", defaultString(opts.AudioBitrate, "192k"))
	}
	args = append(args,
		"-c:v", "libx264", "-preset", defaultString(opts.Preset, "slow"), "-crf", strconv.Itoa(opts.CRF),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-y", opts.Path,
	)
	return args, nil
}

func rotationFilter(degrees int) string {
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		return "transpose=1"
	case 180:
		return "hflip,vflip"
	case 270:
		return "transpose=2"
	default:
		return ""
	}
}

// FitScale returns the uniformly scaled size of src that fits inside target:
// s = min(target.W/src.W, target.H/src.H). Dimensions are floored to even values.
func FitScale(src, target domain.Size) domain.Size {
	if src.Width <= 0 || src.Height <= 0 {
		return target
	}
	s := math.Min(float64(target.Width)/float64(src.Width), float64(target.Height)/float64(src.Height))
	return domain.Size{Width: even(float64(src.Width) * s), Height: even(float64(src.Height) * s)}
}

// TranscodeArgs converts src to the delivery format. The picture is scaled
// uniformly by FitScale and placed at the top-left of the target canvas; it
// is never cropped.
func TranscodeArgs(src string, srcSize domain.Size, opts TranscodeOptions) []string {
	fit := FitScale(srcSize, opts.Target)
	vf := fmt.Sprintf("scale=%d:%d,pad=%d:%d:0:0:color=black,setsar=1,format=yuv420p",
		fit.Width, fit.Height, opts.Target.Width, opts.Target.Height)
	vb := defaultString(opts.VideoBitrate, "3500k")

	args := append(baseArgs(), "-i", src,
		"-map", "0:v:0", "-map", "0:a:0?",
		"-vf", vf,
		"-c:v", "libx264", "-preset", "medium", "-profile:v", "high",
		"-b:v", vb, "-maxrate", vb, "-bufsize", vb,
		"-c:a", "aac", "-b:a", defaultString(opts.AudioBitrate, "128k"),
		"-movflags", "+faststart",
		"-y", opts.Path,
	)
	return args
}

// ThumbnailArgs extracts the frame at t=0 as PNG on stdout.
func ThumbnailArgs(src string) []string {
	return append(baseArgs(),
		"-ss", "0", "-i", src,
		"-frames:v", "1", "-an",
		"-f", "image2pipe", "-c:v", "png", "pipe:1",
	)
}

func even(v float64) int {
	// The epsilon absorbs float error such as 1080*(720/1080) = 719.999...
	n := int(math.Floor(v + 1e-9))
	n -= n % 2
	if n < 2 {
		n = 2
	}
	return n
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
