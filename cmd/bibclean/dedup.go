// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibclean/internal/dedup"
	"github.com/pdiddy/bibclean/internal/library"
	"github.com/pdiddy/bibclean/internal/recordfile"
	"github.com/pdiddy/bibclean/pkg/types"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup records.yaml [more.yaml...]",
	Short: "Detect and merge duplicate records",
	Long: `Dedup reads one or more record files, clusters records that describe the
same work (shared DOI, similar title and authors, same link, or near-identical
title), and merges each cluster according to the merge strategy:

  keep_highest_quality  one record per cluster, conflicts resolved by suggestion
  merge_all             as above, author lists always unioned
  manual_review         write clusters and their conflicts for hand resolution

With manual_review, edit the review output into a record file of merged
records and pass it back with --accept.`,
	RunE: runDedup,
}

func init() {
	dedupCmd.Flags().StringP("out", "o", "", "write merged records to a YAML or JSON file instead of stdout")
	dedupCmd.Flags().String("format", "table", "stdout format: table, yaml, json, or csl")
	dedupCmd.Flags().String("strategy", "", "merge strategy: keep_highest_quality, merge_all, manual_review")
	dedupCmd.Flags().Float64("title-threshold", 0, "title similarity threshold in [0,1] (default from config)")
	dedupCmd.Flags().Float64("author-threshold", 0, "author similarity threshold in [0,1] (default from config)")
	dedupCmd.Flags().Bool("fuzzy", true, "enable the title-only fallback rule")
	dedupCmd.Flags().Bool("strict-doi", true, "never group records whose DOIs differ")
	dedupCmd.Flags().Bool("groups", false, "print duplicate groups to stderr and include them in the output file")
	dedupCmd.Flags().Bool("by-decade", false, "detect duplicates per publication decade, in parallel (faster, but copies dated in different decades or undated are never matched)")
	dedupCmd.Flags().String("accept", "", "record file of hand-merged records to accept as final output")
	dedupCmd.Flags().Bool("add", false, "also add the merged records to the library")

	viper.BindPFlag("dedup.merge_strategy", dedupCmd.Flags().Lookup("strategy"))
	viper.BindPFlag("dedup.title_similarity_threshold", dedupCmd.Flags().Lookup("title-threshold"))
	viper.BindPFlag("dedup.author_similarity_threshold", dedupCmd.Flags().Lookup("author-threshold"))
	viper.BindPFlag("dedup.enable_fuzzy_matching", dedupCmd.Flags().Lookup("fuzzy"))
	viper.BindPFlag("dedup.strict_doi_matching", dedupCmd.Flags().Lookup("strict-doi"))

	rootCmd.AddCommand(dedupCmd)
}

func runDedup(cmd *cobra.Command, args []string) error {
	acceptPath, _ := cmd.Flags().GetString("accept")
	if len(args) == 0 && acceptPath == "" {
		return fmt.Errorf("provide one or more record files")
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	engine, err := dedup.NewEngine(cfg.Dedup)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if acceptPath != "" {
		return acceptReviewed(cmd, engine, cfg, acceptPath)
	}

	records, err := readRecords(args)
	if err != nil {
		return err
	}

	byDecade, _ := cmd.Flags().GetBool("by-decade")
	var groups []types.DuplicateGroup
	if byDecade {
		groups, err = engine.DetectDuplicatesSharded(ctx, records, dedup.ByDecade)
		if err != nil {
			return err
		}
	} else {
		groups = engine.DetectDuplicates(records)
	}

	summary := dedup.Summarize(groups)
	logger.Debug("detected duplicates",
		zap.Int("records", summary.Records),
		zap.Int("groups", summary.Groups),
		zap.Int("duplicates", summary.DuplicatesRemoved))

	showGroups, _ := cmd.Flags().GetBool("groups")
	if showGroups {
		recordfile.FormatGroups(groups, cmd.ErrOrStderr())
	}

	if cfg.Dedup.MergeStrategy == types.ManualReview {
		return writeReviews(cmd, engine.Review(records))
	}

	var results []types.MergedResult
	if byDecade {
		results = make([]types.MergedResult, len(groups))
		for i, g := range groups {
			results[i] = engine.Merge(g)
		}
	} else {
		results = engine.RemoveDuplicates(records)
	}

	f := &recordfile.File{
		Merged: results,
		Summary: recordfile.Summary{
			Total:             len(results),
			Groups:            summary.Groups,
			DuplicatesRemoved: summary.DuplicatesRemoved,
			ByStrategy:        summary.ByStrategy,
			MergeStrategy:     cfg.Dedup.MergeStrategy,
		},
	}
	if showGroups {
		f.Groups = groups
	}
	return emitMerged(cmd, cfg, f)
}

// acceptReviewed finishes a manual review: the hand-merged records are
// taken as final output unchanged.
func acceptReviewed(cmd *cobra.Command, engine *dedup.Engine, cfg types.PipelineConfig, path string) error {
	rf, err := recordfile.Read(path)
	if err != nil {
		return err
	}
	resolved := rf.Merged
	if len(resolved) == 0 {
		for _, r := range rf.Records {
			resolved = append(resolved, types.MergedResult{ExtractedRecord: r})
		}
	}
	results := engine.Accept(resolved)
	f := &recordfile.File{
		Merged:  results,
		Summary: recordfile.Summary{Total: len(results), MergeStrategy: types.ManualReview},
	}
	return emitMerged(cmd, cfg, f)
}

// emitMerged writes merged output to --out or stdout and optionally adds it
// to the library.
func emitMerged(cmd *cobra.Command, cfg types.PipelineConfig, f *recordfile.File) error {
	if add, _ := cmd.Flags().GetBool("add"); add {
		store, err := library.NewStore(cfg.Library, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		summary, err := store.Add(cmd.Context(), f.Merged)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "library: added %d, updated %d, skipped %d\n",
			summary.Added, summary.Updated, summary.Skipped)
	}

	out, _ := cmd.Flags().GetString("out")
	if out != "" {
		if err := recordfile.Write(out, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records (%d duplicates removed) to %s\n",
			len(f.Merged), f.Summary.DuplicatesRemoved, out)
		return nil
	}
	format, _ := cmd.Flags().GetString("format")
	return printRecords(cmd.OutOrStdout(), f, format)
}

// writeReviews writes the groups awaiting manual resolution as YAML.
func writeReviews(cmd *cobra.Command, reviews []dedup.GroupReview) error {
	var w io.Writer = cmd.OutOrStdout()
	out, _ := cmd.Flags().GetString("out")
	if out != "" {
		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating review file: %w", err)
		}
		defer file.Close()
		w = file
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reviews); err != nil {
		return fmt.Errorf("encoding review: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding review: %w", err)
	}
	if out != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d groups for review to %s\n", len(reviews), out)
	}
	return nil
}

// readRecords concatenates the records of every file in argument order.
func readRecords(paths []string) ([]types.ExtractedRecord, error) {
	var records []types.ExtractedRecord
	for _, p := range paths {
		f, err := recordfile.Read(p)
		if err != nil {
			return nil, err
		}
		records = append(records, f.AllRecords()...)
	}
	return records, nil
}
