// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads and validates the converter configuration document.
// Each Load uses its own viper instance so a run never depends on process-wide
// configuration state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/imgconv/pkg/types"
)

var (
	// ErrConfigLoad is returned when the configuration document is missing
	// or cannot be parsed.
	ErrConfigLoad = errors.New("config load error")

	// ErrInvalidConfig is returned when a value is out of range.
	ErrInvalidConfig = errors.New("invalid config")
)

const (
	// DefaultPath is the configuration file read when none is given.
	DefaultPath = "config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. IMGCONV_QUALITY=80.
	EnvPrefix = "IMGCONV"

	// DefaultLogFile receives run logs, and configuration failures that
	// happen before a log file is known.
	DefaultLogFile = "conversion.log"

	defaultQuality   = 95
	defaultHistoryDB = ".imgconv/history.db"
)

// Default returns the configuration document written by "config init".
func Default() types.FileConfig {
	supported := make(map[string][]string, len(types.Formats))
	for _, f := range types.Formats {
		supported[f.String()] = f.DefaultExtensions()
	}
	return types.FileConfig{
		InputDir:         "input",
		OutputDir:        "output",
		InputFormat:      types.FormatHEIC.String(),
		OutputFormat:     types.FormatJPEG.String(),
		SupportedFormats: supported,
		Quality:          defaultQuality,
		PNG: types.PNGSettings{
			BackgroundColor: []int{255, 255, 255},
			Optimize:        true,
		},
		HEIC: types.HEICSettings{
			Quality:  defaultQuality,
			Lossless: false,
		},
		General: types.GeneralSettings{
			ClearOutput: true,
			LogFile:     DefaultLogFile,
			HistoryDB:   defaultHistoryDB,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("input_dir", d.InputDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("input_format", d.InputFormat)
	v.SetDefault("output_format", d.OutputFormat)
	v.SetDefault("quality", d.Quality)
	v.SetDefault("png_settings.background_color", d.PNG.BackgroundColor)
	v.SetDefault("png_settings.optimize", d.PNG.Optimize)
	v.SetDefault("heic_settings.quality", d.HEIC.Quality)
	v.SetDefault("heic_settings.lossless", d.HEIC.Lossless)
	v.SetDefault("general.clear_output", d.General.ClearOutput)
	v.SetDefault("general.log_file", d.General.LogFile)
	v.SetDefault("general.history_db", d.General.HistoryDB)
}

// Load reads the YAML document at path, applies defaults and IMGCONV_*
// environment overrides, and returns the validated run configuration.
// A missing or malformed document yields ErrConfigLoad.
func Load(path string) (types.ConversionConfig, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return types.ConversionConfig{}, fmt.Errorf("%w: reading %s: %v", ErrConfigLoad, path, err)
	}

	var fc types.FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return types.ConversionConfig{}, fmt.Errorf("%w: decoding %s: %v", ErrConfigLoad, path, err)
	}

	return Resolve(fc)
}

// Resolve validates a configuration document and turns it into the
// immutable run configuration.
func Resolve(fc types.FileConfig) (types.ConversionConfig, error) {
	from, err := types.ParseFormat(fc.InputFormat)
	if err != nil {
		return types.ConversionConfig{}, fmt.Errorf("input format: %w", err)
	}
	to, err := types.ParseFormat(fc.OutputFormat)
	if err != nil {
		return types.ConversionConfig{}, fmt.Errorf("output format: %w", err)
	}

	if err := checkQuality("quality", fc.Quality); err != nil {
		return types.ConversionConfig{}, err
	}
	if err := checkQuality("heic_settings.quality", fc.HEIC.Quality); err != nil {
		return types.ConversionConfig{}, err
	}
	bg, err := parseBackground(fc.PNG.BackgroundColor)
	if err != nil {
		return types.ConversionConfig{}, err
	}
	if fc.InputDir == "" || fc.OutputDir == "" {
		return types.ConversionConfig{}, fmt.Errorf("%w: input_dir and output_dir are required", ErrInvalidConfig)
	}

	exts := fc.SupportedFormats[from.String()]
	if len(exts) == 0 {
		exts = from.DefaultExtensions()
	}

	return types.ConversionConfig{
		InputDir:        fc.InputDir,
		OutputDir:       fc.OutputDir,
		From:            from,
		To:              to,
		InputExtensions: exts,
		JPEGQuality:     fc.Quality,
		PNGOptimize:     fc.PNG.Optimize,
		Background:      bg,
		HEICQuality:     fc.HEIC.Quality,
		HEICLossless:    fc.HEIC.Lossless,
		ClearOutput:     fc.General.ClearOutput,
		LogFile:         fc.General.LogFile,
		HistoryDB:       fc.General.HistoryDB,
	}, nil
}

func checkQuality(key string, q int) error {
	if q < 1 || q > 100 {
		return fmt.Errorf("%w: %s must be between 1 and 100, got %d", ErrInvalidConfig, key, q)
	}
	return nil
}

func parseBackground(c []int) (types.RGB, error) {
	if len(c) != 3 {
		return types.RGB{}, fmt.Errorf("%w: png_settings.background_color needs 3 components, got %d", ErrInvalidConfig, len(c))
	}
	for _, v := range c {
		if v < 0 || v > 255 {
			return types.RGB{}, fmt.Errorf("%w: png_settings.background_color component %d out of range 0-255", ErrInvalidConfig, v)
		}
	}
	return types.RGB{R: uint8(c[0]), G: uint8(c[1]), B: uint8(c[2])}, nil
}

// WriteDefault writes the default configuration document to path. It
// refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	d := Default()
	data, err := yaml.Marshal(&d)
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// HEIFToJPEG returns the fixed configuration of the heif2jpg converter:
// file_in to file_out at JPEG quality 95, never clearing the output.
func HEIFToJPEG() types.ConversionConfig {
	return types.ConversionConfig{
		InputDir:        "file_in",
		OutputDir:       "file_out",
		From:            types.FormatHEIC,
		To:              types.FormatJPEG,
		InputExtensions: []string{".heif", ".heic", ".HEIF", ".HEIC"},
		JPEGQuality:     defaultQuality,
		PNGOptimize:     true,
		Background:      types.White,
		HEICQuality:     defaultQuality,
		ClearOutput:     false,
		LogFile:         DefaultLogFile,
		HistoryDB:       defaultHistoryDB,
	}
}

// Document renders a run configuration back into document form, as
// printed by "config show".
func Document(cfg types.ConversionConfig) types.FileConfig {
	return types.FileConfig{
		InputDir:         cfg.InputDir,
		OutputDir:        cfg.OutputDir,
		InputFormat:      cfg.From.String(),
		OutputFormat:     cfg.To.String(),
		SupportedFormats: map[string][]string{cfg.From.String(): cfg.InputExtensions},
		Quality:          cfg.JPEGQuality,
		PNG: types.PNGSettings{
			BackgroundColor: []int{int(cfg.Background.R), int(cfg.Background.G), int(cfg.Background.B)},
			Optimize:        cfg.PNGOptimize,
		},
		HEIC: types.HEICSettings{
			Quality:  cfg.HEICQuality,
			Lossless: cfg.HEICLossless,
		},
		General: types.GeneralSettings{
			ClearOutput: cfg.ClearOutput,
			LogFile:     cfg.LogFile,
			HistoryDB:   cfg.HistoryDB,
		},
	}
}
