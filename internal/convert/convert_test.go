// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/imgconv/internal/codec"
	"github.com/pdiddy/imgconv/pkg/types"
)

// decodeOutput decodes a converted file with the codec for f and checks
// that it is non-empty.
func decodeOutput(t *testing.T, reg codec.Registry, f types.Format, path string) image.Image {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0), "%s is empty", path)

	c, err := reg.Lookup(f)
	require.NoError(t, err)
	img, err := c.Decode(path)
	require.NoError(t, err)
	return img
}

func TestRunAllPairsOpaque(t *testing.T) {
	reg := testRegistry()

	for _, from := range types.Formats {
		for _, to := range types.Formats {
			t.Run(from.String()+"_to_"+to.String(), func(t *testing.T) {
				cfg := baseConfig(t, from, to)
				writeFixture(t, reg, from, filepath.Join(cfg.InputDir, "test_rgb"+from.Extension()), opaqueImage(200, 200))

				result, err := New(cfg, reg, nil).Run()
				require.NoError(t, err)
				assert.Equal(t, 1, result.Attempted)
				assert.Equal(t, 1, result.Succeeded)
				assert.Equal(t, 0, result.Failed)

				res := result.Results[0]
				assert.Equal(t, 200, res.Width)
				assert.Equal(t, 200, res.Height)
				assert.Equal(t, ModeRGB, res.Mode)

				out := decodeOutput(t, reg, to, filepath.Join(cfg.OutputDir, "test_rgb"+to.Extension()))
				assert.Equal(t, image.Rect(0, 0, 200, 200), out.Bounds())
				if to == types.FormatPNG {
					assert.Contains(t, []Mode{ModeRGB, ModeRGBA}, ModeOf(out))
				} else {
					assert.Equal(t, ModeRGB, ModeOf(out))
				}
			})
		}
	}
}

func TestRunTransparentSources(t *testing.T) {
	reg := testRegistry()

	// JPEG cannot hold alpha, so only PNG and HEIC sources start transparent.
	for _, from := range []types.Format{types.FormatPNG, types.FormatHEIC} {
		for _, to := range types.Formats {
			t.Run(from.String()+"_to_"+to.String(), func(t *testing.T) {
				cfg := baseConfig(t, from, to)
				writeFixture(t, reg, from, filepath.Join(cfg.InputDir, "test_transparent"+from.Extension()), transparentImage(200, 200))

				result, err := New(cfg, reg, nil).Run()
				require.NoError(t, err)
				require.Equal(t, 1, result.Succeeded)

				out := decodeOutput(t, reg, to, filepath.Join(cfg.OutputDir, "test_transparent"+to.Extension()))
				if to == types.FormatPNG {
					assert.Equal(t, ModeRGBA, ModeOf(out))
					_, _, _, a := out.At(0, 0).RGBA()
					assert.Equal(t, uint32(0), a)
					return
				}

				assert.Equal(t, ModeRGB, ModeOf(out))
				r, g, b, _ := out.At(0, 0).RGBA()
				assert.InDelta(t, 0xffff, r, 0x300)
				assert.InDelta(t, 0xffff, g, 0x300)
				assert.InDelta(t, 0xffff, b, 0x300)
			})
		}
	}
}

func TestRunCustomBackground(t *testing.T) {
	reg := testRegistry()
	cfg := baseConfig(t, types.FormatPNG, types.FormatHEIC)
	cfg.Background = types.RGB{R: 10, G: 20, B: 30}
	writeFixture(t, reg, types.FormatPNG, filepath.Join(cfg.InputDir, "t.png"), transparentImage(200, 200))

	_, err := New(cfg, reg, nil).Run()
	require.NoError(t, err)

	out := decodeOutput(t, reg, types.FormatHEIC, filepath.Join(cfg.OutputDir, "t.heic"))
	r, g, b, a := out.At(5, 5).RGBA()
	assert.Equal(t, []uint32{10 * 0x101, 20 * 0x101, 30 * 0x101, 0xffff}, []uint32{r, g, b, a})
}

func TestRoundTrip(t *testing.T) {
	reg := testRegistry()

	pairs := [][2]types.Format{
		{types.FormatPNG, types.FormatJPEG},
		{types.FormatHEIC, types.FormatPNG},
		{types.FormatJPEG, types.FormatHEIC},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		t.Run(a.String()+"_"+b.String(), func(t *testing.T) {
			there := baseConfig(t, a, b)
			writeFixture(t, reg, a, filepath.Join(there.InputDir, "img"+a.Extension()), opaqueImage(64, 48))
			res, err := New(there, reg, nil).Run()
			require.NoError(t, err)
			require.Equal(t, 1, res.Succeeded)

			back := baseConfig(t, b, a)
			back.InputDir = there.OutputDir
			res, err = New(back, reg, nil).Run()
			require.NoError(t, err)
			require.Equal(t, 1, res.Succeeded)

			out := decodeOutput(t, reg, a, filepath.Join(back.OutputDir, "img"+a.Extension()))
			assert.Equal(t, image.Rect(0, 0, 64, 48), out.Bounds())
		})
	}
}

func TestRunCountsFailuresAndContinues(t *testing.T) {
	reg := testRegistry()
	cfg := baseConfig(t, types.FormatPNG, types.FormatJPEG)

	writeFixture(t, reg, types.FormatPNG, filepath.Join(cfg.InputDir, "a.png"), opaqueImage(8, 8))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, "b.png"), []byte("not a png"), 0o644))
	writeFixture(t, reg, types.FormatPNG, filepath.Join(cfg.InputDir, "c.png"), grayImage(8, 8))

	var logBuf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logBuf, nil))

	result, err := New(cfg, reg, log).Run()
	require.NoError(t, err)

	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, result.Attempted, result.Succeeded+result.Failed)
	assert.True(t, result.HasFailures())

	var failed []FileResult
	for _, r := range result.Results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	require.Len(t, failed, 1)
	var fe *FileError
	require.True(t, errors.As(failed[0].Err, &fe))
	assert.Equal(t, StageDecode, fe.Stage)
	assert.Equal(t, filepath.Join(cfg.InputDir, "b.png"), fe.Path)

	assert.ElementsMatch(t, []string{"a.jpg", "c.jpg"}, listDir(t, cfg.OutputDir))

	logs := logBuf.String()
	assert.Contains(t, logs, "level=WARN")
	assert.Contains(t, logs, "failed conversions: 1 file(s)")
	assert.Contains(t, logs, "successfully converted 2 file(s) from PNG to JPG")
}

func TestConvertFileEncodeFailureLeavesNoOutput(t *testing.T) {
	reg := testRegistry()
	reg[types.FormatJPEG] = failingCodec{}
	cfg := baseConfig(t, types.FormatPNG, types.FormatJPEG)
	require.NoError(t, PrepareOutput(cfg.OutputDir, true))

	in := filepath.Join(cfg.InputDir, "x.png")
	writeFixture(t, reg, types.FormatPNG, in, opaqueImage(4, 4))

	res := New(cfg, reg, nil).ConvertFile(Job{
		Input:  in,
		Output: OutputPath(in, cfg.OutputDir, types.FormatJPEG),
		From:   types.FormatPNG,
		To:     types.FormatJPEG,
	})

	require.False(t, res.OK())
	var fe *FileError
	require.True(t, errors.As(res.Err, &fe))
	assert.Equal(t, StageEncode, fe.Stage)
	assert.Contains(t, res.Err.Error(), "encoder exploded")
	assert.Empty(t, listDir(t, cfg.OutputDir), "partial or temporary output left behind")
}

func TestRunWritesWorldReadableOutput(t *testing.T) {
	reg := testRegistry()
	cfg := baseConfig(t, types.FormatPNG, types.FormatJPEG)
	writeFixture(t, reg, types.FormatPNG, filepath.Join(cfg.InputDir, "a.png"), opaqueImage(4, 4))

	_, err := New(cfg, reg, nil).Run()
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(cfg.OutputDir, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestConvertFileRejectsInvalidFormat(t *testing.T) {
	cfg := baseConfig(t, types.FormatPNG, types.FormatJPEG)
	require.NoError(t, PrepareOutput(cfg.OutputDir, true))

	in := filepath.Join(cfg.InputDir, "x.png")
	res := New(cfg, testRegistry(), nil).ConvertFile(Job{
		Input:  in,
		Output: filepath.Join(cfg.OutputDir, "x.out"),
		From:   types.FormatPNG,
		To:     types.Format(0),
	})

	require.False(t, res.OK())
	var fe *FileError
	require.True(t, errors.As(res.Err, &fe))
	assert.Equal(t, StageCodec, fe.Stage)
	assert.True(t, errors.Is(res.Err, types.ErrUnsupportedFormat))
}

func TestConvertFileMissingCodec(t *testing.T) {
	reg := codec.Default(nil)
	cfg := baseConfig(t, types.FormatHEIC, types.FormatJPEG)
	require.NoError(t, PrepareOutput(cfg.OutputDir, true))

	in := filepath.Join(cfg.InputDir, "x.heic")
	require.NoError(t, os.WriteFile(in, []byte("heic"), 0o644))

	result, err := New(cfg, reg, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, errors.Is(result.Results[0].Err, codec.ErrCodecUnavailable))
}

func TestRunOverwritesSameBaseName(t *testing.T) {
	reg := testRegistry()
	cfg := baseConfig(t, types.FormatJPEG, types.FormatPNG)
	writeFixture(t, reg, types.FormatJPEG, filepath.Join(cfg.InputDir, "dup.jpg"), opaqueImage(10, 10))
	writeFixture(t, reg, types.FormatJPEG, filepath.Join(cfg.InputDir, "dup.jpeg"), opaqueImage(20, 20))

	result, err := New(cfg, reg, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, []string{"dup.png"}, listDir(t, cfg.OutputDir))
}

func TestRunFatalConditions(t *testing.T) {
	reg := testRegistry()

	t.Run("missing input directory", func(t *testing.T) {
		cfg := baseConfig(t, types.FormatPNG, types.FormatJPEG)
		cfg.InputDir = filepath.Join(cfg.InputDir, "gone")

		_, err := New(cfg, reg, nil).Run()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDirectoryNotFound))
		_, statErr := os.Stat(cfg.OutputDir)
		assert.True(t, os.IsNotExist(statErr), "output directory must not be touched")
	})

	t.Run("invalid format", func(t *testing.T) {
		cfg := baseConfig(t, types.FormatPNG, types.Format(42))
		_, err := New(cfg, reg, nil).Run()
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUnsupportedFormat))
	})
}

func TestRunNoFilesClearsStaleOutput(t *testing.T) {
	cfg := baseConfig(t, types.FormatHEIC, types.FormatJPEG)
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, "old.jpg"), []byte("stale"), 0o644))

	var logBuf bytes.Buffer
	result, err := New(cfg, testRegistry(), slog.New(slog.NewTextHandler(&logBuf, nil))).Run()
	require.NoError(t, err)

	assert.Equal(t, BatchResult{}, result)
	info, err := os.Stat(cfg.OutputDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Empty(t, listDir(t, cfg.OutputDir))
	assert.Contains(t, logBuf.String(), "no HEIC files found")
}

func TestRunKeepsOutputWithoutClear(t *testing.T) {
	reg := testRegistry()
	cfg := baseConfig(t, types.FormatPNG, types.FormatJPEG)
	cfg.ClearOutput = false
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, "keep.txt"), []byte("x"), 0o644))
	writeFixture(t, reg, types.FormatPNG, filepath.Join(cfg.InputDir, "a.png"), opaqueImage(4, 4))

	_, err := New(cfg, reg, nil).Run()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.jpg", "keep.txt"}, listDir(t, cfg.OutputDir))
}

// Mixed-format input directory converted file by file, each decoded with
// the codec its extension names.
func TestConvertMixedDirectoryToJPEG(t *testing.T) {
	reg := testRegistry()
	cfg := baseConfig(t, types.FormatHEIC, types.FormatJPEG)
	require.NoError(t, PrepareOutput(cfg.OutputDir, true))

	writeFixture(t, reg, types.FormatHEIC, filepath.Join(cfg.InputDir, "test_rgb.heic"), opaqueImage(200, 200))
	writeFixture(t, reg, types.FormatPNG, filepath.Join(cfg.InputDir, "test_transparent.png"), transparentImage(200, 200))

	conv := New(cfg, reg, nil)
	for _, name := range listDir(t, cfg.InputDir) {
		in := filepath.Join(cfg.InputDir, name)
		from, ok := types.FormatFromExtension(filepath.Ext(name))
		require.True(t, ok, name)

		res := conv.ConvertFile(Job{Input: in, Output: OutputPath(in, cfg.OutputDir, types.FormatJPEG), From: from, To: types.FormatJPEG})
		require.NoError(t, res.Err)
		assert.Equal(t, ModeRGB, res.Mode)
	}

	assert.ElementsMatch(t, []string{"test_rgb.jpg", "test_transparent.jpg"}, listDir(t, cfg.OutputDir))
	for _, name := range []string{"test_rgb.jpg", "test_transparent.jpg"} {
		out := decodeOutput(t, reg, types.FormatJPEG, filepath.Join(cfg.OutputDir, name))
		assert.Equal(t, ModeRGB, ModeOf(out), name)
		assert.Equal(t, image.Rect(0, 0, 200, 200), out.Bounds(), name)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		f    types.Format
		want string
	}{
		{in: "/in/IMG_0001.HEIC", f: types.FormatJPEG, want: "/out/IMG_0001.jpg"},
		{in: "/in/photo.png", f: types.FormatHEIC, want: "/out/photo.heic"},
		{in: "/in/archive.tar.jpeg", f: types.FormatPNG, want: "/out/archive.tar.png"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := OutputPath(tt.in, "/out", tt.f)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}
