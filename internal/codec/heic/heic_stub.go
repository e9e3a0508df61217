// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !libheif

package heic

import (
	"fmt"
	"image"

	"github.com/pdiddy/imgconv/internal/codec"
)

// Codec is the stub used when libheif cannot be linked.
type Codec struct{}

// New returns the stub HEIC codec.
func New() codec.Codec {
	return Codec{}
}

func (Codec) Decode(path string) (image.Image, error) {
	return nil, fmt.Errorf("%w: HEIC support requires building with -tags libheif", codec.ErrCodecUnavailable)
}

func (Codec) Encode(path string, img image.Image, opts codec.EncodeOptions) error {
	return fmt.Errorf("%w: HEIC support requires building with -tags libheif", codec.ErrCodecUnavailable)
}
