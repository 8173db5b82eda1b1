// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package preview

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Orient rotates src clockwise by degrees (a multiple of 90) and, when mirror
// is set, flips the result horizontally. src is not modified.
func Orient(src *image.RGBA, degrees int, mirror bool) *image.RGBA {
	b := src.Bounds()
	m, w, h := orientation(degrees, mirror, b.Dx(), b.Dy())
	// Shift the source origin to zero before applying m.
	m[2] -= m[0]*float64(b.Min.X) + m[1]*float64(b.Min.Y)
	m[5] -= m[3]*float64(b.Min.X) + m[4]*float64(b.Min.Y)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Transform(dst, m, src, b, draw.Src, nil)
	return dst
}

// orientation returns the source-to-destination affine map for a w x h
// image and the destination size.
func orientation(degrees int, mirror bool, w, h int) (f64.Aff3, int, int) {
	fw, fh := float64(w), float64(h)
	var m f64.Aff3
	dw, dh := w, h
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		m = f64.Aff3{0, -1, fh, 1, 0, 0}
		dw, dh = h, w
	case 180:
		m = f64.Aff3{-1, 0, fw, 0, -1, fh}
	case 270:
		m = f64.Aff3{0, 1, 0, -1, 0, fw}
		dw, dh = h, w
	default:
		m = f64.Aff3{1, 0, 0, 0, 1, 0}
	}
	if mirror {
		m[0], m[1], m[2] = -m[0], -m[1], float64(dw)-m[2]
	}
	return m, dw, dh
}
