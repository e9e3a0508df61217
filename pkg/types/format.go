// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned when a format tag is outside the
// supported set {heic, png, jpg}.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format identifies one of the image container formats the converter reads
// and writes. The zero value is not a valid format.
type Format int

const (
	FormatHEIC Format = iota + 1
	FormatPNG
	FormatJPEG
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatHEIC, FormatPNG, FormatJPEG}

var formatTags = map[Format]string{
	FormatHEIC: "heic",
	FormatPNG:  "png",
	FormatJPEG: "jpg",
}

var defaultExtensions = map[Format][]string{
	FormatHEIC: {".heic", ".heif", ".HEIC", ".HEIF"},
	FormatPNG:  {".png", ".PNG"},
	FormatJPEG: {".jpg", ".jpeg", ".JPG", ".JPEG"},
}

// ParseFormat maps a configuration tag ("heic", "png", "jpg") to a Format.
// Matching is case-insensitive.
func ParseFormat(tag string) (Format, error) {
	norm := strings.ToLower(strings.TrimSpace(tag))
	for f, t := range formatTags {
		if t == norm {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (use heic, png, or jpg)", ErrUnsupportedFormat, tag)
}

// String returns the configuration tag for f.
func (f Format) String() string {
	if t, ok := formatTags[f]; ok {
		return t
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	_, ok := formatTags[f]
	return ok
}

// Extension returns the extension, with leading dot, given to output files.
func (f Format) Extension() string {
	return "." + f.String()
}

// DefaultExtensions returns the input extensions recognised for f when the
// configuration does not list its own.
func (f Format) DefaultExtensions() []string {
	exts := defaultExtensions[f]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// Label is the upper-case name used in log lines (e.g. "HEIC").
func (f Format) Label() string {
	return strings.ToUpper(f.String())
}

// FormatFromExtension returns the format whose default extensions include
// ext (leading dot, case-sensitive).
func FormatFromExtension(ext string) (Format, bool) {
	for _, f := range Formats {
		for _, e := range defaultExtensions[f] {
			if e == ext {
				return f, true
			}
		}
	}
	return 0, false
}
