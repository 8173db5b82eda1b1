// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/media/ffmpeg"
	"github.com/ManuGH/splitcap/internal/metrics"
	"github.com/ManuGH/splitcap/internal/telemetry"
)

// ErrNoFrame is returned when the asset yields no decodable first frame.
var ErrNoFrame = errors.New("no frame at time zero")

// GenerateThumbnail extracts the frame at t=0 of asset and returns it as a
// downscaled, low-quality JPEG. Extraction failures are returned, never a
// blank image.
func (e *Exporter) GenerateThumbnail(ctx context.Context, asset string) (thumb []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, "export.thumbnail")
	defer func() {
		telemetry.EndSpan(span, err)
		if err != nil {
			metrics.IncThumbnail("error")
			return
		}
		metrics.IncThumbnail("ok")
	}()

	var buf bytes.Buffer
	if err := e.runner.Run(ctx, ffmpeg.Job{Role: "thumbnail", Args: ffmpeg.ThumbnailArgs(asset), Stdout: &buf}); err != nil {
		return nil, domain.NewError(domain.KindExportFailed, "export.thumbnail", err)
	}
	if buf.Len() == 0 {
		return nil, domain.NewError(domain.KindExportFailed, "export.thumbnail", ErrNoFrame)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, domain.NewError(domain.KindExportFailed, "export.thumbnail", fmt.Errorf("decode frame: %w", err))
	}
	thumb, err = EncodeThumbnail(img, e.opts.ThumbnailWidth, e.opts.ThumbnailQuality)
	if err != nil {
		return nil, domain.NewError(domain.KindExportFailed, "export.thumbnail", err)
	}
	logger := log.WithContext(ctx, e.logger)
	logger.Debug().
		Str(log.FieldEvent, "export.thumbnail").
		Str(log.FieldPath, asset).
		Int("bytes", len(thumb)).
		Msg("thumbnail generated")
	return thumb, nil
}

// EncodeThumbnail scales img down to maxWidth, keeping aspect, and encodes it
// as JPEG at quality. Narrower images are encoded as is.
func EncodeThumbnail(img image.Image, maxWidth, quality int) ([]byte, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrNoFrame
	}
	if maxWidth > 0 && b.Dx() > maxWidth {
		h := b.Dy() * maxWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
