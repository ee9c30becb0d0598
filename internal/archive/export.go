// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/article-engine/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Export writes every run, with entries, to w in the given format.
func (s *Store) Export(ctx context.Context, w io.Writer, format string) error {
	runs, err := s.exportRuns(ctx)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatYAML, "":
		data, err = yaml.Marshal(runs)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
	case FormatJSON:
		data, err = json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		data = append(data, '\n')
	default:
		return fmt.Errorf("unsupported export format %q: use yaml or json", format)
	}

	_, err = w.Write(data)
	return err
}

func (s *Store) exportRuns(ctx context.Context) ([]types.RunRecord, error) {
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].Entries, err = s.entries(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	if runs == nil {
		runs = []types.RunRecord{}
	}
	return runs, nil
}
