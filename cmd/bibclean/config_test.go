// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibclean/internal/dedup"
	"github.com/pdiddy/bibclean/internal/recordfile"
	"github.com/pdiddy/bibclean/pkg/types"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("BIBCLEAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// --- loadConfig ---

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper())
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPipelineConfig(), cfg)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bibclean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`dedup:
  title_similarity_threshold: 0.9
  merge_strategy: Merge-All
http:
  timeout: 45s
library:
  dir: /tmp/lib
`), 0o644))
	t.Setenv("BIBCLEAN_EXTRACT_WORKERS", "8")
	t.Setenv("BIBCLEAN_DEDUP_ENABLE_FUZZY_MATCHING", "false")

	v := newTestViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Dedup.TitleSimilarityThreshold)
	assert.Equal(t, 0.7, cfg.Dedup.AuthorSimilarityThreshold)
	assert.Equal(t, types.MergeAll, cfg.Dedup.MergeStrategy)
	assert.False(t, cfg.Dedup.EnableFuzzyMatching)
	assert.Equal(t, 8, cfg.Extract.Workers)
	assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "/tmp/lib", cfg.Library.Dir)
}

func TestLoadConfigRejectsBadDedupOptions(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
		want error
	}{
		{"threshold", "dedup.author_similarity_threshold", 1.5, dedup.ErrInvalidThreshold},
		{"strategy", "dedup.merge_strategy", "newest", dedup.ErrUnknownMergeStrategy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestViper()
			v.Set(tt.key, tt.val)
			_, err := loadConfig(v)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// --- input and output helpers ---

func TestLoadDocumentsFromFilesAndStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<html>file</html>"), 0o644))

	docs, err := loadDocuments(context.Background(), types.HTTPConfig{}, []string{path, "-"}, nil,
		strings.NewReader("<html>stdin</html>"))
	require.NoError(t, err)
	assert.Equal(t, []string{"<html>file</html>", "<html>stdin</html>"}, docs)

	_, err = loadDocuments(context.Background(), types.HTTPConfig{}, []string{path + ".missing"}, nil, nil)
	assert.ErrorContains(t, err, "reading page")
}

func TestPrintRecords(t *testing.T) {
	f := &recordfile.File{Records: []types.ExtractedRecord{
		{ID: "r1", Title: "Attention Is All You Need", Authors: []string{"A Vaswani"}, Confidence: 0.6},
	}}

	tests := []struct {
		format string
		want   string
	}{
		{"table", "Attention Is All You Need"},
		{"yaml", "title: Attention Is All You Need"},
		{"json", `"title": "Attention Is All You Need"`},
		{"csl", "family: Vaswani"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, printRecords(&buf, f, tt.format))
			assert.Contains(t, buf.String(), tt.want)
		})
	}

	assert.ErrorContains(t, printRecords(&bytes.Buffer{}, f, "xml"), "unsupported format")
}
