//go:build mage

// Package main contains Mage build targets for imgconv developer tooling.
package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"github.com/pdiddy/imgconv/internal/codec"
	"github.com/pdiddy/imgconv/internal/codec/heic"
	"github.com/pdiddy/imgconv/pkg/types"
)

// projectDirs lists the working directories heif2jpg expects.
var projectDirs = []string{
	"file_in",
	"file_out",
}

// Init creates the working directories of the fixed-pair converter.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "imgconv"
	cmdPkg  = "./cmd/imgconv"
)

// buildTags enables the libheif HEIC codec when pkg-config can find
// libheif. Without it the binary builds with a stub HEIC codec.
func buildTags() []string {
	if err := sh.Run("pkg-config", "--exists", "libheif"); err != nil {
		fmt.Println("libheif not found, building without HEIC support")
		return nil
	}
	return []string{"-tags", "libheif"}
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	args := append([]string{"build"}, buildTags()...)
	args = append(args, "-o", out, cmdPkg)
	if err := sh.RunV("go", args...); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	args := append([]string{"test"}, buildTags()...)
	return sh.RunV("go", append(args, "./...")...)
}

const fixtureDir = "tests/test_files"

type fixture struct {
	name string
	img  image.Image
}

// Fixtures writes sample images in every format to tests/test_files.
// HEIC files are written only when mage runs with GOFLAGS=-tags=libheif.
func Fixtures() error {
	mg.Deps(Init)

	if err := os.MkdirAll(fixtureDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", fixtureDir, err)
	}

	codecs := codec.Default(heic.New())
	for _, fx := range fixtures() {
		for _, f := range types.Formats {
			c, err := codecs.Lookup(f)
			if err != nil {
				fmt.Printf("  skip %s%s: %v\n", fx.name, f.Extension(), err)
				continue
			}
			img := fx.img
			if f != types.FormatPNG {
				img = imaging.Overlay(imaging.New(200, 200, color.White), img, image.Pt(0, 0), 1)
			}
			path := filepath.Join(fixtureDir, fx.name+f.Extension())
			err = c.Encode(path, img, codec.EncodeOptions{Quality: 95})
			if errors.Is(err, codec.ErrCodecUnavailable) {
				fmt.Printf("  skip %s: %v\n", path, err)
				continue
			}
			if err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Println("  ", path)
		}
	}
	fmt.Printf("Test images created in %s/\n", fixtureDir)
	return nil
}

func fixtures() []fixture {
	transparent := imaging.New(200, 200, color.NRGBA{})
	transparent = imaging.Overlay(transparent,
		imaging.New(101, 101, color.NRGBA{R: 255, A: 128}), image.Pt(50, 50), 1)

	palette := image.NewPaletted(image.Rect(0, 0, 200, 200), color.Palette{
		color.NRGBA{},
		color.NRGBA{R: 100, G: 150, B: 200, A: 255},
	})
	for y := 100; y < 200; y++ {
		for x := 0; x < 200; x++ {
			palette.SetColorIndex(x, y, 1)
		}
	}

	gray := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range gray.Pix {
		gray.Pix[i] = 80
	}

	return []fixture{
		{"test_rgb", imaging.New(200, 200, color.NRGBA{R: 100, G: 150, B: 200, A: 255})},
		{"test_red", imaging.New(200, 200, color.NRGBA{R: 255, A: 255})},
		{"test_green", imaging.New(200, 200, color.NRGBA{G: 255, A: 255})},
		{"test_blue", imaging.New(200, 200, color.NRGBA{B: 255, A: 255})},
		{"test_transparent", transparent},
		{"test_palette", palette},
		{"test_gray", gray},
	}
}

// Stats prints project metrics: Go production and test LOC.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	return nil
}

// countGoLines walks the directory tree and counts non-blank lines in Go files.
// If testOnly is true, count only _test.go files; otherwise count non-test .go files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "_examples" || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		isTest := len(path) > 8 && path[len(path)-8:] == "_test.go"
		if testOnly != isTest {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		total += countNonBlank(data)
		return nil
	})
	return total, err
}

// countNonBlank counts lines with at least one non-space character.
func countNonBlank(data []byte) int {
	count := 0
	blank := true
	for _, b := range data {
		switch b {
		case '\n':
			if !blank {
				count++
			}
			blank = true
		case ' ', '\t', '\r':
		default:
			blank = false
		}
	}
	if !blank {
		count++
	}
	return count
}
