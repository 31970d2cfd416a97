package types

import "time"

// MergeStrategy selects how duplicate groups become output records.
type MergeStrategy string

const (
	// KeepHighestQuality emits one merged record per group, resolving
	// conflicts with the suggested resolution and taking everything else
	// from the primary.
	KeepHighestQuality MergeStrategy = "keep_highest_quality"

	// MergeAll behaves like KeepHighestQuality but always unions
	// list-valued fields across members.
	MergeAll MergeStrategy = "merge_all"

	// ManualReview leaves records untouched; the host resolves groups
	// itself and hands back finished MergedResults.
	ManualReview MergeStrategy = "manual_review"
)

// MergeStrategies lists the recognized merge strategies.
var MergeStrategies = []MergeStrategy{KeepHighestQuality, MergeAll, ManualReview}

// DuplicateDetectionOptions configures one dedup run. The value is treated
// as read-only input; the engine validates it once at construction.
type DuplicateDetectionOptions struct {
	// TitleSimilarityThreshold is the minimum normalized-title similarity
	// for a title+author match, in [0,1].
	TitleSimilarityThreshold float64 `json:"title_similarity_threshold" yaml:"title_similarity_threshold" mapstructure:"title_similarity_threshold"`

	// AuthorSimilarityThreshold is the minimum author-set similarity for a
	// title+author match, in [0,1].
	AuthorSimilarityThreshold float64 `json:"author_similarity_threshold" yaml:"author_similarity_threshold" mapstructure:"author_similarity_threshold"`

	// EnableFuzzyMatching turns on the title-only fallback rule.
	EnableFuzzyMatching bool `json:"enable_fuzzy_matching" yaml:"enable_fuzzy_matching" mapstructure:"enable_fuzzy_matching"`

	// StrictDOIMatching treats two different DOIs as proof of two
	// different works, so no weaker rule may group them.
	StrictDOIMatching bool `json:"strict_doi_matching" yaml:"strict_doi_matching" mapstructure:"strict_doi_matching"`

	// MergeStrategy selects the merge policy.
	MergeStrategy MergeStrategy `json:"merge_strategy" yaml:"merge_strategy" mapstructure:"merge_strategy"`
}

// DefaultDetectionOptions returns the options used when nothing is configured.
func DefaultDetectionOptions() DuplicateDetectionOptions {
	return DuplicateDetectionOptions{
		TitleSimilarityThreshold:  0.85,
		AuthorSimilarityThreshold: 0.7,
		EnableFuzzyMatching:       true,
		StrictDOIMatching:         true,
		MergeStrategy:             KeepHighestQuality,
	}
}

// ExtractConfig holds settings for the extraction stage.
type ExtractConfig struct {
	// MinAbstractLength is the abstract length in runes a snippet must
	// exceed after normalization; shorter or equal ones are discarded
	// (default 50).
	MinAbstractLength int `json:"min_abstract_length" yaml:"min_abstract_length" mapstructure:"min_abstract_length"`

	// Workers bounds the number of documents parsed concurrently by
	// ParseAll (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// HTTPConfig holds settings for fetching result pages from the CLI.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bibclean/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries is the number of retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxBackoff caps a single rate-limit wait, including one requested by
	// a Retry-After header (default 2m).
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff" mapstructure:"max_backoff"`
}

// LibraryConfig holds settings for the SQLite record library.
type LibraryConfig struct {
	// Dir is the directory holding library.db and exports.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Extract ExtractConfig             `json:"extract" yaml:"extract" mapstructure:"extract"`
	Dedup   DuplicateDetectionOptions `json:"dedup" yaml:"dedup" mapstructure:"dedup"`
	HTTP    HTTPConfig                `json:"http" yaml:"http" mapstructure:"http"`
	Library LibraryConfig             `json:"library" yaml:"library" mapstructure:"library"`
}

// DefaultPipelineConfig returns a PipelineConfig with every default filled in.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Extract: ExtractConfig{MinAbstractLength: 50, Workers: 4},
		Dedup:   DefaultDetectionOptions(),
		HTTP: HTTPConfig{
			Timeout:    30 * time.Second,
			UserAgent:  "bibclean/0.1",
			MaxRetries: 5,
			MaxBackoff: 2 * time.Minute,
		},
		Library: LibraryConfig{Dir: "library", MaxResults: 20},
	}
}
