// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package heic provides the HEIC/HEIF codec backed by libheif. It is built
// with -tags libheif; other builds get a stub that reports
// codec.ErrCodecUnavailable.
package heic

import (
	"image"

	"github.com/disintegration/imaging"
)

// straightAlpha relabels the interleaved RGBA plane libheif decodes into.
// The binding wraps it in *image.RGBA, but the samples are not
// premultiplied.
func straightAlpha(img image.Image) image.Image {
	if m, ok := img.(*image.RGBA); ok {
		return &image.NRGBA{Pix: m.Pix, Stride: m.Stride, Rect: m.Rect}
	}
	return img
}

// encodable returns img in a pixel layout the libheif encoder reads
// correctly. The encoder takes *image.RGBA samples as straight alpha, so
// anything other than YCbCr, gray or opaque RGBA is copied to NRGBA and
// handed over in an RGBA wrapper.
func encodable(img image.Image) image.Image {
	switch m := img.(type) {
	case *image.YCbCr, *image.Gray:
		return img
	case *image.RGBA:
		if m.Opaque() {
			return m
		}
	}
	n := imaging.Clone(img)
	return &image.RGBA{Pix: n.Pix, Stride: n.Stride, Rect: n.Rect}
}
