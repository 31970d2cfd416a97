// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/bibclean/internal/extract"
	"github.com/pdiddy/bibclean/internal/httputil"
	"github.com/pdiddy/bibclean/internal/recordfile"
	"github.com/pdiddy/bibclean/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Extract bibliographic records from search result pages",
	Long: `Parse reads saved result pages (or fetches them with --url) and extracts
one record per recognizable result block: title, authors, venue, year, DOI,
link, abstract, and citation count, with confidence and relevance scores.

Blocks without a title or authors are skipped. Records keep document order,
then block order. Use "-" to read a page from standard input.`,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringSlice("url", nil, "fetch and parse a result page (repeatable)")
	parseCmd.Flags().StringP("out", "o", "", "write records to a YAML or JSON file instead of stdout")
	parseCmd.Flags().String("format", "table", "stdout format: table, yaml, json, or csl")
	parseCmd.Flags().String("source", "", "label stored on every record (e.g. scholar:transformers)")
	parseCmd.Flags().Int("workers", 0, "documents parsed concurrently (default from config)")
	parseCmd.Flags().Int("min-abstract", 0, "minimum abstract length in characters (default from config)")

	viper.BindPFlag("extract.workers", parseCmd.Flags().Lookup("workers"))
	viper.BindPFlag("extract.min_abstract_length", parseCmd.Flags().Lookup("min-abstract"))

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	urls, _ := cmd.Flags().GetStringSlice("url")
	if len(args) == 0 && len(urls) == 0 {
		return fmt.Errorf("provide one or more result pages or --url")
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	docs, err := loadDocuments(ctx, cfg.HTTP, args, urls, cmd.InOrStdin())
	if err != nil {
		return err
	}

	records, err := extract.New(cfg.Extract).ParseAll(ctx, docs)
	if err != nil {
		return err
	}
	if source, _ := cmd.Flags().GetString("source"); source != "" {
		for i := range records {
			records[i].Source = source
		}
	}
	logger.Debug("parsed documents", zap.Int("documents", len(docs)), zap.Int("records", len(records)))

	f := &recordfile.File{
		Records: records,
		Summary: recordfile.Summary{Total: len(records), Documents: len(docs)},
	}

	out, _ := cmd.Flags().GetString("out")
	if out != "" {
		if err := recordfile.Write(out, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "parsed %d records from %d documents into %s\n", len(records), len(docs), out)
		return nil
	}

	format, _ := cmd.Flags().GetString("format")
	return printRecords(cmd.OutOrStdout(), f, format)
}

// loadDocuments reads local pages first, then fetched pages, preserving
// argument order within each group.
func loadDocuments(ctx context.Context, httpCfg types.HTTPConfig, paths, urls []string, stdin io.Reader) ([]string, error) {
	docs := make([]string, 0, len(paths)+len(urls))
	for _, p := range paths {
		var (
			data []byte
			err  error
		)
		if p == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(p)
		}
		if err != nil {
			return nil, fmt.Errorf("reading page %s: %w", p, err)
		}
		docs = append(docs, string(data))
	}

	if len(urls) > 0 {
		fetcher := httputil.NewFetcher(httpCfg, logger)
		for _, u := range urls {
			body, err := fetcher.Fetch(ctx, u)
			if err != nil {
				return nil, err
			}
			docs = append(docs, body)
		}
	}
	return docs, nil
}

// printRecords writes a record file's records to w in a stdout format.
func printRecords(w io.Writer, f *recordfile.File, format string) error {
	switch format {
	case "table", "":
		recordfile.FormatTable(f.AllRecords(), w)
		return nil
	case "yaml":
		return recordfile.Encode(w, f, recordfile.FormatYAML)
	case "json":
		return recordfile.Encode(w, f, recordfile.FormatJSON)
	case "csl":
		return recordfile.FormatCSL(f.AllRecords(), w)
	default:
		return fmt.Errorf("unsupported format %q: use table, yaml, json, or csl", format)
	}
}
