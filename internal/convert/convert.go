// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert implements batch image conversion: discovering source
// files, reconciling colour modes with the target format, and encoding
// each file through a pluggable codec.
package convert

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/imgconv/internal/codec"
	"github.com/pdiddy/imgconv/pkg/types"
)

// Stages reported in a FileError.
const (
	StageCodec  = "codec"
	StageDecode = "decode"
	StageEncode = "encode"
	StageWrite  = "write"
)

// Job is one conversion: a source file and its format, and where the
// output goes in which format.
type Job struct {
	Input  string
	Output string
	From   types.Format
	To     types.Format
}

// FileError is the failure of a single Job. It never aborts a batch.
type FileError struct {
	Path  string
	Stage string
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// FileResult is the outcome of one Job. On success Err is nil and Width,
// Height and Mode describe the encoded image.
type FileResult struct {
	Job    Job
	Err    error
	Width  int
	Height int
	Mode   Mode
}

// OK reports whether the job succeeded.
func (r FileResult) OK() bool {
	return r.Err == nil
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Attempted int
	Succeeded int
	Failed    int
	Results   []FileResult
}

// HasFailures reports whether any file failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

func (r *BatchResult) add(res FileResult) {
	r.Attempted++
	if res.OK() {
		r.Succeeded++
	} else {
		r.Failed++
	}
	r.Results = append(r.Results, res)
}

// Converter runs conversions for one configuration.
type Converter struct {
	cfg    types.ConversionConfig
	codecs codec.Registry
	log    *slog.Logger
}

// New creates a converter. A nil logger discards output.
func New(cfg types.ConversionConfig, codecs codec.Registry, log *slog.Logger) *Converter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Converter{cfg: cfg, codecs: codecs, log: log}
}

// OutputPath returns where the conversion of input to f is written: the
// input's base name with its last extension replaced, inside outDir.
func OutputPath(input, outDir string, f types.Format) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+f.Extension())
}

// Run converts every matching file in the input directory. It returns an
// error only for conditions that stop the whole run before any file is
// converted; per-file failures are counted in the BatchResult.
func (c *Converter) Run() (BatchResult, error) {
	from, to := c.cfg.From, c.cfg.To
	if !from.Valid() || !to.Valid() {
		return BatchResult{}, fmt.Errorf("%w: %s -> %s", types.ErrUnsupportedFormat, from, to)
	}

	if err := checkDir(c.cfg.InputDir); err != nil {
		c.log.Error("input directory does not exist", "dir", c.cfg.InputDir)
		return BatchResult{}, err
	}

	if err := PrepareOutput(c.cfg.OutputDir, c.cfg.ClearOutput); err != nil {
		c.log.Error("preparing output directory failed", "dir", c.cfg.OutputDir, "err", err)
		return BatchResult{}, err
	}
	if c.cfg.ClearOutput {
		c.log.Info("output directory cleared", "dir", c.cfg.OutputDir)
	}

	files, err := Discover(c.cfg.InputDir, c.cfg.InputExtensions)
	if err != nil {
		return BatchResult{}, err
	}
	if len(files) == 0 {
		c.log.Info(fmt.Sprintf("no %s files found in the input directory", from.Label()), "dir", c.cfg.InputDir)
		return BatchResult{}, nil
	}

	c.log.Info(fmt.Sprintf("found %d %s file(s) to convert to %s", len(files), from.Label(), to.Label()))

	var result BatchResult
	for _, in := range files {
		job := Job{Input: in, Output: OutputPath(in, c.cfg.OutputDir, to), From: from, To: to}
		result.add(c.ConvertFile(job))
	}

	c.log.Info("conversion complete",
		"attempted", result.Attempted, "succeeded", result.Succeeded, "failed", result.Failed)
	c.log.Info(fmt.Sprintf("successfully converted %d file(s) from %s to %s", result.Succeeded, from.Label(), to.Label()))
	if result.HasFailures() {
		c.log.Warn(fmt.Sprintf("failed conversions: %d file(s)", result.Failed))
	}
	return result, nil
}

// ConvertFile decodes job.Input, normalizes its colour mode for the target
// format, and writes the encoded result to job.Output. The output is
// encoded to a temporary file beside the destination and renamed into
// place only on success, so a failed job leaves no partial file.
func (c *Converter) ConvertFile(job Job) FileResult {
	res := FileResult{Job: job}
	fail := func(stage string, err error) FileResult {
		res.Err = &FileError{Path: job.Input, Stage: stage, Err: err}
		c.log.Error("conversion failed", "input", job.Input, "stage", stage, "err", err)
		return res
	}

	if !job.From.Valid() || !job.To.Valid() {
		return fail(StageCodec, fmt.Errorf("%w: %s -> %s", types.ErrUnsupportedFormat, job.From, job.To))
	}

	decoder, err := c.codecs.Lookup(job.From)
	if err != nil {
		return fail(StageCodec, err)
	}
	encoder, err := c.codecs.Lookup(job.To)
	if err != nil {
		return fail(StageCodec, err)
	}

	img, err := decoder.Decode(job.Input)
	if err != nil {
		return fail(StageDecode, err)
	}

	out, mode := Normalize(img, job.To, c.cfg.Background)

	if err := writeAtomic(job.Output, func(tmp string) error {
		return encoder.Encode(tmp, out, EncodeOptionsFor(job.To, c.cfg))
	}); err != nil {
		var encErr *encodeError
		if errors.As(err, &encErr) {
			return fail(StageEncode, encErr.err)
		}
		return fail(StageWrite, err)
	}

	b := out.Bounds()
	res.Width, res.Height, res.Mode = b.Dx(), b.Dy(), mode
	c.log.Info("converted", "input", filepath.Base(job.Input), "output", filepath.Base(job.Output), "mode", mode.String())
	return res
}

// encodeError separates encoder failures from filesystem failures around
// the temporary file.
type encodeError struct{ err error }

func (e *encodeError) Error() string { return e.err.Error() }

// outputPerm is the mode of converted files. CreateTemp makes 0600 files.
const outputPerm = 0o644

// writeAtomic calls encode with a temporary path in dest's directory and
// renames the result onto dest. The temporary file is removed on failure.
func writeAtomic(dest string, encode func(tmp string) error) error {
	dir := filepath.Dir(dest)
	f, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file in %s: %w", dir, err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temporary file %s: %w", tmp, err)
	}

	if err := encode(tmp); err != nil {
		os.Remove(tmp)
		return &encodeError{err: err}
	}
	if err := os.Chmod(tmp, outputPerm); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("setting mode of %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s to %s: %w", tmp, dest, err)
	}
	return nil
}
