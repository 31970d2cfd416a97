// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibclean/internal/library"
	"github.com/pdiddy/bibclean/internal/recordfile"
	"github.com/pdiddy/bibclean/pkg/types"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the record library (add, search, export)",
	Long: `Library keeps cleaned records in a local SQLite database with full-text
search over titles and abstracts. Use subcommands to add record files, search
them, or export the library.`,
}

// --- add subcommand ---

var libraryAddCmd = &cobra.Command{
	Use:   "add records.yaml [more.yaml...]",
	Short: "Add records from record files to the library",
	Long: `Add stores every record of the given files. A record whose ID is already
stored replaces it; a record sharing a DOI with a stored record replaces it
only when its confidence is higher.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLibraryAdd,
}

func runLibraryAdd(cmd *cobra.Command, args []string) error {
	store, err := openLibrary()
	if err != nil {
		return err
	}
	defer store.Close()

	var results []types.MergedResult
	for _, p := range args {
		f, err := recordfile.Read(p)
		if err != nil {
			return err
		}
		if len(f.Merged) > 0 {
			results = append(results, f.Merged...)
			continue
		}
		for _, r := range f.Records {
			results = append(results, types.MergedResult{ExtractedRecord: r})
		}
	}

	summary, err := store.Add(cmd.Context(), results)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added: %d, updated: %d, skipped: %d\n",
		summary.Added, summary.Updated, summary.Skipped)
	return nil
}

// --- search subcommand ---

var librarySearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the library by text, author, and year",
	Long: `Search matches every query term against titles and abstracts, optionally
narrowed by author and year range. Text queries are ranked by match quality;
filter-only queries list the highest-confidence records first.`,
	RunE: runLibrarySearch,
}

func runLibrarySearch(cmd *cobra.Command, args []string) error {
	store, err := openLibrary()
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Search(cmd.Context(), queryOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	recordfile.FormatTable(types.Records(results), cmd.OutOrStdout())
	return nil
}

// --- export subcommand ---

var libraryExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export the library to YAML or JSON",
	Long: `Export writes the full library (or a filtered subset) to export.yaml or
export.json in the library directory. Supports the same filters as search.`,
	RunE: runLibraryExport,
}

func runLibraryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	var f recordfile.Format
	switch format {
	case "yaml", "":
		f = recordfile.FormatYAML
	case "json":
		f = recordfile.FormatJSON
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	store, err := openLibrary()
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := store.Export(cmd.Context(), queryOptsFromFlags(cmd, args), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openLibrary() (*library.Store, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return library.NewStore(cfg.Library, logger)
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) library.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	author, _ := cmd.Flags().GetString("author")
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	limit, _ := cmd.Flags().GetInt("limit")

	return library.QueryOptions{
		Query:      queryText,
		Author:     author,
		YearFrom:   from,
		YearTo:     to,
		MaxResults: limit,
	}
}

func init() {
	libraryCmd.PersistentFlags().String("library-dir", "", "directory holding library.db (default from config)")
	libraryCmd.PersistentFlags().Int("max-results", 0, "default maximum number of search results")
	viper.BindPFlag("library.dir", libraryCmd.PersistentFlags().Lookup("library-dir"))
	viper.BindPFlag("library.max_results", libraryCmd.PersistentFlags().Lookup("max-results"))

	for _, c := range []*cobra.Command{librarySearchCmd, libraryExportCmd} {
		c.Flags().String("query", "", "full-text query over titles and abstracts")
		c.Flags().String("author", "", "filter by author name (substring)")
		c.Flags().Int("from", 0, "earliest publication year")
		c.Flags().Int("to", 0, "latest publication year")
	}
	librarySearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	librarySearchCmd.Flags().Bool("json", false, "output results as JSON")
	libraryExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(librarySearchCmd)
	libraryCmd.AddCommand(libraryExportCmd)

	rootCmd.AddCommand(libraryCmd)
}
