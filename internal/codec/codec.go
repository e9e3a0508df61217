// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package codec decodes and encodes image files. Each supported format has a
// Codec; the converter looks codecs up in a Registry keyed by format.
package codec

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/pdiddy/imgconv/pkg/types"
)

// ErrCodecUnavailable is returned when no codec is registered for a format,
// or the registered codec was built without the native library it needs.
var ErrCodecUnavailable = errors.New("codec unavailable")

// EncodeOptions carries the format-specific encoder parameters.
type EncodeOptions struct {
	// Quality is the lossy encoder quality, 1-100. Unused for PNG.
	Quality int

	// Optimize asks the encoder for its smallest output.
	Optimize bool

	// Lossless requests lossless compression where the format supports it.
	Lossless bool
}

// Codec reads and writes one image format.
type Codec interface {
	// Decode reads the image stored at path.
	Decode(path string) (image.Image, error)

	// Encode writes img to path, replacing any existing file.
	Encode(path string, img image.Image, opts EncodeOptions) error
}

// Registry maps formats to their codecs.
type Registry map[types.Format]Codec

// Lookup returns the codec for f, or ErrCodecUnavailable.
func (r Registry) Lookup(f types.Format) (Codec, error) {
	c, ok := r[f]
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: no codec registered for %s", ErrCodecUnavailable, f.Label())
	}
	return c, nil
}

// createFile opens path for writing and hands the file to write. The file
// is closed in every case; a close error is reported when write succeeded.
func createFile(path string, write func(f *os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return write(f)
}
