// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes the most recent runs, with their file records, to w.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, limit int) error {
	runs, err := s.exportRuns(ctx, limit)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(runs)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportJSON writes the most recent runs, with their file records, to w.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, limit int) error {
	runs, err := s.exportRuns(ctx, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (s *Store) exportRuns(ctx context.Context, limit int) ([]Run, error) {
	summaries, err := s.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	runs := make([]Run, 0, len(summaries))
	for _, r := range summaries {
		full, err := s.Get(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		runs = append(runs, full)
	}
	return runs, nil
}
