// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/pdiddy/imgconv/internal/codec"
	"github.com/pdiddy/imgconv/pkg/types"
)

// Mode describes how a decoded image represents colour.
type Mode int

const (
	ModeOther   Mode = iota // e.g. CMYK
	ModeRGB                 // opaque colour
	ModeRGBA                // colour with an alpha channel
	ModeLA                  // luminance with alpha
	ModePalette             // indexed colour, palette may carry alpha
	ModeGray                // luminance only
)

var modeNames = map[Mode]string{
	ModeOther:   "other",
	ModeRGB:     "RGB",
	ModeRGBA:    "RGBA",
	ModeLA:      "LA",
	ModePalette: "P",
	ModeGray:    "L",
}

func (m Mode) String() string {
	return modeNames[m]
}

// HasTransparency reports whether images in mode m may carry alpha.
func (m Mode) HasTransparency() bool {
	return m == ModeRGBA || m == ModeLA || m == ModePalette
}

// ModeOf classifies a decoded image. Premultiplied RGBA images that are
// fully opaque count as RGB; the PNG decoder returns those for truecolour
// files without an alpha channel.
func ModeOf(img image.Image) Mode {
	switch m := img.(type) {
	case *image.Paletted:
		return ModePalette
	case *image.Gray, *image.Gray16:
		return ModeGray
	case *image.Alpha, *image.Alpha16:
		return ModeLA
	case *image.YCbCr:
		return ModeRGB
	case *image.NYCbCrA, *image.NRGBA64:
		return ModeRGBA
	case *image.CMYK:
		return ModeOther
	case *image.RGBA:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.RGBA64:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.NRGBA:
		if isGrayNRGBA(m) {
			return ModeLA
		}
		return ModeRGBA
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		return ModeRGBA
	}
	return ModeOther
}

// isGrayNRGBA reports whether every pixel has equal colour channels. The
// PNG decoder expands gray+alpha files to NRGBA, which is how LA shows up.
func isGrayNRGBA(m *image.NRGBA) bool {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := m.Pix[m.PixOffset(b.Min.X, y):m.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			if row[i] != row[i+1] || row[i] != row[i+2] {
				return false
			}
		}
	}
	return true
}

// policy reconciles an image's colour mode with what a target format can
// store, returning the image to encode and its resulting mode.
type policy func(img image.Image, mode Mode, bg types.RGB) (image.Image, Mode)

var policies = map[types.Format]policy{
	types.FormatJPEG: flatten,
	// HEIC outputs never carry transparency.
	types.FormatHEIC: flatten,
	types.FormatPNG:  keepAlpha,
}

// Normalize applies the colour-mode policy of target to img. target must
// be a valid format; Normalize panics otherwise.
func Normalize(img image.Image, target types.Format, bg types.RGB) (image.Image, Mode) {
	p, ok := policies[target]
	if !ok {
		panic(fmt.Sprintf("convert: no colour-mode policy for %s", target))
	}
	return p(img, ModeOf(img), bg)
}

// flatten composites transparent images over bg and converts everything
// else to RGB.
func flatten(img image.Image, mode Mode, bg types.RGB) (image.Image, Mode) {
	switch {
	case mode == ModeRGB:
		return img, ModeRGB
	case mode.HasTransparency():
		return composite(toNRGBA(img), bg), ModeRGB
	default:
		return toRGB(img), ModeRGB
	}
}

// keepAlpha exposes palette and luminance alpha as full RGBA and converts
// other non-RGB modes to RGB.
func keepAlpha(img image.Image, mode Mode, _ types.RGB) (image.Image, Mode) {
	switch mode {
	case ModeRGB, ModeRGBA:
		return img, mode
	case ModePalette, ModeLA:
		return toNRGBA(img), ModeRGBA
	default:
		return toRGB(img), ModeRGB
	}
}

// toNRGBA copies img into non-premultiplied RGBA anchored at the origin.
func toNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// composite draws src over an opaque bg-filled canvas using src's alpha.
func composite(src image.Image, bg types.RGB) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	fill := image.NewUniform(color.RGBA{R: bg.R, G: bg.G, B: bg.B, A: 0xff})
	draw.Draw(dst, dst.Bounds(), fill, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

// toRGB converts an opaque image of any model to RGB.
func toRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// optionBuilders holds the encoder parameters of each target format.
var optionBuilders = map[types.Format]func(cfg types.ConversionConfig) codec.EncodeOptions{
	types.FormatJPEG: func(cfg types.ConversionConfig) codec.EncodeOptions {
		return codec.EncodeOptions{Quality: cfg.JPEGQuality, Optimize: true}
	},
	types.FormatPNG: func(cfg types.ConversionConfig) codec.EncodeOptions {
		return codec.EncodeOptions{Optimize: cfg.PNGOptimize}
	},
	types.FormatHEIC: func(cfg types.ConversionConfig) codec.EncodeOptions {
		return codec.EncodeOptions{Quality: cfg.HEICQuality, Lossless: cfg.HEICLossless}
	},
}

// EncodeOptionsFor returns the encoder parameters for writing f under cfg.
// f must be a valid format; EncodeOptionsFor panics otherwise.
func EncodeOptionsFor(f types.Format, cfg types.ConversionConfig) codec.EncodeOptions {
	build, ok := optionBuilders[f]
	if !ok {
		panic(fmt.Sprintf("convert: no encoder options for %s", f))
	}
	return build(cfg)
}
