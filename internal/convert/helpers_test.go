// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdiddy/imgconv/internal/codec"
	"github.com/pdiddy/imgconv/pkg/types"
)

// fakeHEIC stands in for the libheif codec. It stores PNG bytes, which is
// enough to exercise the HEIC policy and naming without the native library.
type fakeHEIC struct {
	codec.PNG
}

func (fakeHEIC) Encode(path string, img image.Image, opts codec.EncodeOptions) error {
	return codec.PNG{}.Encode(path, img, codec.EncodeOptions{})
}

// failingCodec writes some bytes and then fails, like an encoder dying
// partway through a stream.
type failingCodec struct{}

func (failingCodec) Decode(path string) (image.Image, error) {
	return nil, errors.New("decoder exploded")
}

func (failingCodec) Encode(path string, img image.Image, opts codec.EncodeOptions) error {
	if err := os.WriteFile(path, []byte("partial"), 0o644); err != nil {
		return err
	}
	return errors.New("encoder exploded")
}

func testRegistry() codec.Registry {
	return codec.Default(fakeHEIC{})
}

// opaqueImage is a flat RGB image in the 100,150,200 sample colour.
func opaqueImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 100, G: 150, B: 200, A: 255})
		}
	}
	return img
}

// transparentImage is fully transparent except for a half-opaque red
// square at [50,150).
func transparentImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 50; y < 150 && y < h; y++ {
		for x := 50; x < 150 && x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 128})
		}
	}
	return img
}

// palettedImage has a transparent palette entry in its top half.
func palettedImage(w, h int) *image.Paletted {
	pal := color.Palette{color.NRGBA{}, color.NRGBA{R: 255, A: 255}}
	img := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	for y := h / 2; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetColorIndex(x, y, 1)
		}
	}
	return img
}

func grayImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 80
	}
	return img
}

// writeFixture encodes img with the codec registered for f.
func writeFixture(t *testing.T, reg codec.Registry, f types.Format, path string, img image.Image) {
	t.Helper()
	c, err := reg.Lookup(f)
	require.NoError(t, err)
	require.NoError(t, c.Encode(path, img, codec.EncodeOptions{Quality: 95}))
}

// baseConfig converts from -> to between two fresh directories.
func baseConfig(t *testing.T, from, to types.Format) types.ConversionConfig {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "input")
	require.NoError(t, os.MkdirAll(in, 0o755))
	return types.ConversionConfig{
		InputDir:        in,
		OutputDir:       filepath.Join(root, "output"),
		From:            from,
		To:              to,
		InputExtensions: from.DefaultExtensions(),
		JPEGQuality:     95,
		PNGOptimize:     true,
		Background:      types.White,
		HEICQuality:     95,
		ClearOutput:     true,
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
