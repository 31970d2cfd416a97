// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/bibclean/internal/recordfile"
)

const exportLimit = 100000

// Export writes the records matching opts to dir/export.yaml or
// dir/export.json, depending on format, and returns the path written.
func (s *Store) Export(ctx context.Context, opts QueryOptions, format recordfile.Format) (string, error) {
	opts.MaxResults = exportLimit
	results, err := s.Search(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("querying for export: %w", err)
	}

	path := filepath.Join(s.dir, "export."+string(format))
	f := &recordfile.File{
		Merged:  results,
		Summary: recordfile.Summary{Total: len(results)},
	}
	if err := recordfile.Write(path, f); err != nil {
		return "", err
	}
	s.log.Info("library exported", zap.String("path", path), zap.Int("records", len(results)))
	return path, nil
}
