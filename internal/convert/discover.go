// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrDirectoryNotFound is returned when the input directory does not exist
// or is not a directory.
var ErrDirectoryNotFound = errors.New("directory not found")

// Discover lists the regular files directly inside dir whose extension is
// one of exts. Matching is case-sensitive, so callers list every casing
// they accept. An empty result is not an error.
func Discover(dir string, exts []string) ([]string, error) {
	if err := checkDir(dir); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	accept := make(map[string]bool, len(exts))
	for _, e := range exts {
		accept[e] = true
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		// A bare ".heic" has no stem to name the output after.
		if !accept[ext] || strings.TrimSuffix(name, ext) == "" {
			continue
		}
		path := filepath.Join(dir, name)
		if !isRegular(entry, path) {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return fmt.Errorf("checking %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}
	return nil
}

// isRegular follows symlinks so a link to a regular file counts.
func isRegular(entry fs.DirEntry, path string) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// PrepareOutput makes dir ready for a run. With clear set, any existing
// directory is removed with its contents and recreated empty; otherwise
// the directory is created only if missing.
func PrepareOutput(dir string, clear bool) error {
	if clear {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clearing output directory %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return nil
}
