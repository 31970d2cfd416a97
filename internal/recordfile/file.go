// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recordfile reads and writes record files: the YAML or JSON
// documents that carry extracted records into deduplication and carry
// merged records, groups, and a run summary back out. A file saved by one
// command can be reloaded by the next without re-parsing any HTML.
package recordfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibclean/pkg/types"
)

// now is replaced in tests for stable timestamps.
var now = time.Now

// File is the on-disk representation of a batch of records.
type File struct {
	Records []types.ExtractedRecord `json:"records,omitempty" yaml:"records,omitempty"`
	Merged  []types.MergedResult    `json:"merged,omitempty" yaml:"merged,omitempty"`
	Groups  []types.DuplicateGroup  `json:"groups,omitempty" yaml:"groups,omitempty"`
	Summary Summary                 `json:"summary" yaml:"summary"`
}

// Summary stores batch statistics and a timestamp.
type Summary struct {
	Total             int                         `json:"total" yaml:"total"`
	Documents         int                         `json:"documents,omitempty" yaml:"documents,omitempty"`
	Groups            int                         `json:"groups,omitempty" yaml:"groups,omitempty"`
	DuplicatesRemoved int                         `json:"duplicates_removed,omitempty" yaml:"duplicates_removed,omitempty"`
	ByStrategy        map[types.MatchStrategy]int `json:"by_strategy,omitempty" yaml:"by_strategy,omitempty"`
	MergeStrategy     types.MergeStrategy         `json:"merge_strategy,omitempty" yaml:"merge_strategy,omitempty"`
	Timestamp         time.Time                   `json:"timestamp" yaml:"timestamp"`
}

// AllRecords returns the file's records: the plain records when present,
// otherwise the merged records with provenance stripped. A dedup output
// file can therefore be fed back into dedup or the library.
func (f *File) AllRecords() []types.ExtractedRecord {
	if len(f.Records) > 0 {
		return f.Records
	}
	return types.Records(f.Merged)
}

// Format is a record-file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the encoding from a file extension; anything other than
// ".json" is YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Encode writes f to w. A zero Summary.Total is filled from the record
// count and a zero timestamp with the current time.
func Encode(w io.Writer, f *File, format Format) error {
	if f.Summary.Total == 0 {
		f.Summary.Total = len(f.Records) + len(f.Merged)
	}
	if f.Summary.Timestamp.IsZero() {
		f.Summary.Timestamp = now().UTC()
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encoding JSON record file: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encoding YAML record file: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding YAML record file: %w", err)
		}
	default:
		return fmt.Errorf("unknown record file format %q", format)
	}
	return nil
}

// Write saves f to path in the format its extension selects.
func Write(path string, f *File) error {
	var buf bytes.Buffer
	if err := Encode(&buf, f, FormatFor(path)); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing record file: %w", err)
	}
	return nil
}

// Read loads a record file from disk. Besides the File layout it accepts a
// bare list of records, which is what hand-written inputs usually are.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record file: %w", err)
	}
	f, err := Decode(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("parsing record file %s: %w", path, err)
	}
	return f, nil
}

// Decode parses record-file bytes in the given format.
func Decode(data []byte, format Format) (*File, error) {
	unmarshal := yaml.Unmarshal
	if format == FormatJSON {
		unmarshal = json.Unmarshal
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &File{}, nil
	}
	if isList(trimmed) {
		var records []types.ExtractedRecord
		if err := unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return &File{Records: records, Summary: Summary{Total: len(records)}}, nil
	}

	var f File
	if err := unmarshal(trimmed, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// isList reports whether a document's top level is a sequence.
func isList(data []byte) bool {
	return data[0] == '[' || bytes.HasPrefix(data, []byte("- ")) || bytes.HasPrefix(data, []byte("-\n"))
}
