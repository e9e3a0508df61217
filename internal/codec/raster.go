// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/disintegration/imaging"

	"github.com/pdiddy/imgconv/pkg/types"
)

// JPEG encodes and decodes JPEG files through imaging. The standard
// library encoder has no Huffman optimisation pass, so Optimize is a no-op.
type JPEG struct{}

// PNG encodes and decodes PNG files through imaging. Optimize selects the
// best compression level.
type PNG struct{}

// Decode reads the JPEG at path.
func (JPEG) Decode(path string) (image.Image, error) {
	return decodeFile(path)
}

// Encode writes img to path as a baseline JPEG at opts.Quality.
func (JPEG) Encode(path string, img image.Image, opts EncodeOptions) error {
	q := opts.Quality
	if q <= 0 {
		q = 95
	}
	return createFile(path, func(f *os.File) error {
		if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return fmt.Errorf("encoding JPEG: %w", err)
		}
		return nil
	})
}

// Decode reads the PNG at path.
func (PNG) Decode(path string) (image.Image, error) {
	return decodeFile(path)
}

// Encode writes img to path as a PNG.
func (PNG) Encode(path string, img image.Image, opts EncodeOptions) error {
	level := png.DefaultCompression
	if opts.Optimize {
		level = png.BestCompression
	}
	return createFile(path, func(f *os.File) error {
		if err := imaging.Encode(f, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
			return fmt.Errorf("encoding PNG: %w", err)
		}
		return nil
	})
}

// decodeFile decodes without auto-orientation so the decoder's native pixel
// layout (paletted, gray, NRGBA...) reaches the colour-mode policy intact.
func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// Default returns a registry with the JPEG and PNG codecs plus the HEIC
// codec passed in (nil leaves HEIC unregistered).
func Default(heic Codec) Registry {
	r := Registry{
		types.FormatJPEG: JPEG{},
		types.FormatPNG:  PNG{},
	}
	if heic != nil {
		r[types.FormatHEIC] = heic
	}
	return r
}
