// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build libheif

package heic

import (
	"fmt"
	"image"

	"github.com/strukturag/libheif/go/heif"

	"github.com/pdiddy/imgconv/internal/codec"
)

// Codec decodes and encodes HEIC files with libheif.
type Codec struct{}

// New returns the libheif-backed HEIC codec.
func New() codec.Codec {
	return Codec{}
}

// Decode reads the primary image of the HEIF container at path. Images with
// an alpha plane are decoded to interleaved RGBA and returned as NRGBA.
func (Codec) Decode(path string) (image.Image, error) {
	ctx, err := heif.NewContext()
	if err != nil {
		return nil, fmt.Errorf("creating heif context: %w", err)
	}
	if err := ctx.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	handle, err := ctx.GetPrimaryImageHandle()
	if err != nil {
		return nil, fmt.Errorf("primary image of %s: %w", path, err)
	}

	hasAlpha := handle.HasAlphaChannel()
	colorspace, chroma := heif.ColorspaceUndefined, heif.ChromaUndefined
	if hasAlpha {
		colorspace, chroma = heif.ColorspaceRGB, heif.ChromaInterleavedRGBA
	}

	decoded, err := handle.DecodeImage(colorspace, chroma, nil)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	img, err := decoded.GetImage()
	if err != nil {
		return nil, fmt.Errorf("converting %s: %w", path, err)
	}
	if hasAlpha {
		return straightAlpha(img), nil
	}
	return img, nil
}

// Encode writes img to path as HEVC-compressed HEIF.
func (Codec) Encode(path string, img image.Image, opts codec.EncodeOptions) error {
	q := opts.Quality
	if q <= 0 {
		q = 95
	}
	lossless := heif.LosslessModeDisabled
	if opts.Lossless {
		lossless = heif.LosslessModeEnabled
	}

	ctx, err := heif.EncodeFromImage(encodable(img), heif.CompressionHEVC, q, lossless, heif.LoggingLevelNone)
	if err != nil {
		return fmt.Errorf("encoding HEIC: %w", err)
	}
	if err := ctx.WriteToFile(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
