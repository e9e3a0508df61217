// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RGB is an opaque colour used to flatten transparency.
type RGB struct {
	R, G, B uint8
}

// White is the default background for flattened transparency.
var White = RGB{R: 255, G: 255, B: 255}

// PNGSettings holds PNG-specific settings. The background colour also
// applies when transparency is flattened for JPEG and HEIC targets.
type PNGSettings struct {
	// BackgroundColor is the [r, g, b] triple used to flatten transparency.
	BackgroundColor []int `json:"background_color" yaml:"background_color" mapstructure:"background_color"`

	// Optimize requests the smallest encoding the PNG encoder can produce.
	Optimize bool `json:"optimize" yaml:"optimize" mapstructure:"optimize"`
}

// HEICSettings holds HEIC encoder settings.
type HEICSettings struct {
	// Quality is the encoder quality, 1-100 (default 95).
	Quality int `json:"quality" yaml:"quality" mapstructure:"quality"`

	// Lossless requests lossless compression; Quality is ignored when set.
	Lossless bool `json:"lossless" yaml:"lossless" mapstructure:"lossless"`
}

// GeneralSettings holds run-level switches.
type GeneralSettings struct {
	// ClearOutput removes and recreates the output directory before a run.
	ClearOutput bool `json:"clear_output" yaml:"clear_output" mapstructure:"clear_output"`

	// LogFile is the file run logs are appended to (default "conversion.log").
	LogFile string `json:"log_file" yaml:"log_file" mapstructure:"log_file"`

	// HistoryDB is the SQLite database recording past runs. Empty disables
	// run history.
	HistoryDB string `json:"history_db" yaml:"history_db" mapstructure:"history_db"`
}

// FileConfig is the on-disk shape of the configuration document.
type FileConfig struct {
	InputDir         string              `json:"input_dir" yaml:"input_dir" mapstructure:"input_dir"`
	OutputDir        string              `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	InputFormat      string              `json:"input_format" yaml:"input_format" mapstructure:"input_format"`
	OutputFormat     string              `json:"output_format" yaml:"output_format" mapstructure:"output_format"`
	SupportedFormats map[string][]string `json:"supported_formats" yaml:"supported_formats" mapstructure:"supported_formats"`

	// Quality is the JPEG quality, 1-100 (default 95).
	Quality int `json:"quality" yaml:"quality" mapstructure:"quality"`

	PNG     PNGSettings     `json:"png_settings" yaml:"png_settings" mapstructure:"png_settings"`
	HEIC    HEICSettings    `json:"heic_settings" yaml:"heic_settings" mapstructure:"heic_settings"`
	General GeneralSettings `json:"general" yaml:"general" mapstructure:"general"`
}

// ConversionConfig is the validated, immutable configuration of one run.
type ConversionConfig struct {
	InputDir  string
	OutputDir string

	// From and To are the source and destination formats.
	From Format
	To   Format

	// InputExtensions lists the case-sensitive extensions recognised for From.
	InputExtensions []string

	JPEGQuality  int
	PNGOptimize  bool
	Background   RGB
	HEICQuality  int
	HEICLossless bool
	ClearOutput  bool

	LogFile   string
	HistoryDB string
}
