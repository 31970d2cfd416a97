// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/pdiddy/bibclean/pkg/types"
)

var (
	// ErrInvalidThreshold reports a similarity threshold outside [0,1].
	ErrInvalidThreshold = errors.New("threshold must be within [0,1]")

	// ErrUnknownMergeStrategy reports a merge strategy the engine does not implement.
	ErrUnknownMergeStrategy = errors.New("unknown merge strategy")
)

// ConfigError describes a rejected DuplicateDetectionOptions field.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid dedup option %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Validate checks opts and returns a *ConfigError for the first bad field.
func Validate(opts types.DuplicateDetectionOptions) error {
	thresholds := []struct {
		name string
		v    float64
	}{
		{"title_similarity_threshold", opts.TitleSimilarityThreshold},
		{"author_similarity_threshold", opts.AuthorSimilarityThreshold},
	}
	for _, th := range thresholds {
		if math.IsNaN(th.v) || th.v < 0 || th.v > 1 {
			return &ConfigError{Field: th.name, Value: th.v, Err: ErrInvalidThreshold}
		}
	}
	if !slices.Contains(types.MergeStrategies, opts.MergeStrategy) {
		return &ConfigError{Field: "merge_strategy", Value: fmt.Sprintf("%q", opts.MergeStrategy), Err: ErrUnknownMergeStrategy}
	}
	return nil
}

// ParseMergeStrategy converts a flag or config value into a MergeStrategy.
// Matching ignores case and accepts hyphens for underscores.
func ParseMergeStrategy(s string) (types.MergeStrategy, error) {
	candidate := types.MergeStrategy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !slices.Contains(types.MergeStrategies, candidate) {
		return "", &ConfigError{Field: "merge_strategy", Value: fmt.Sprintf("%q", s), Err: ErrUnknownMergeStrategy}
	}
	return candidate, nil
}
