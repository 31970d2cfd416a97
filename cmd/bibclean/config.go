// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/pdiddy/bibclean/internal/dedup"
	"github.com/pdiddy/bibclean/pkg/types"
)

// setDefaults registers every configuration key with its default value so
// that environment variables reach keys no config file mentions.
func setDefaults(v *viper.Viper) {
	d := types.DefaultPipelineConfig()

	v.SetDefault("extract.min_abstract_length", d.Extract.MinAbstractLength)
	v.SetDefault("extract.workers", d.Extract.Workers)

	v.SetDefault("dedup.title_similarity_threshold", d.Dedup.TitleSimilarityThreshold)
	v.SetDefault("dedup.author_similarity_threshold", d.Dedup.AuthorSimilarityThreshold)
	v.SetDefault("dedup.enable_fuzzy_matching", d.Dedup.EnableFuzzyMatching)
	v.SetDefault("dedup.strict_doi_matching", d.Dedup.StrictDOIMatching)
	v.SetDefault("dedup.merge_strategy", string(d.Dedup.MergeStrategy))

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.max_retries", d.HTTP.MaxRetries)
	v.SetDefault("http.max_backoff", d.HTTP.MaxBackoff)

	v.SetDefault("library.dir", d.Library.Dir)
	v.SetDefault("library.max_results", d.Library.MaxResults)
}

// loadConfig decodes the merged defaults, config file, environment, and
// bound flags into a PipelineConfig. The merge strategy is normalized and
// the dedup options validated, so a bad config fails before any work.
func loadConfig(v *viper.Viper) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	strategy, err := dedup.ParseMergeStrategy(string(cfg.Dedup.MergeStrategy))
	if err != nil {
		return cfg, err
	}
	cfg.Dedup.MergeStrategy = strategy
	if err := dedup.Validate(cfg.Dedup); err != nil {
		return cfg, err
	}
	return cfg, nil
}
