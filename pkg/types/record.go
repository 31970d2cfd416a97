// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the bibclean pipeline.
// Records flow one way: raw result markup is parsed into ExtractedRecords,
// which the dedup engine clusters into DuplicateGroups and merges into
// MergedResults.
//
// See docs/ARCHITECTURE.md § Data Model.
package types

// ExtractedRecord is a bibliographic entry recovered from one search result.
// Records are created once by the extractor and treated as immutable
// afterwards; later stages copy them instead of editing them in place.
type ExtractedRecord struct {
	// ID is a deterministic identifier derived from the record's position and
	// its title and authors. Hosts that build records themselves may set any
	// unique string.
	ID string `json:"id" yaml:"id"`

	// Title is the entity-decoded, tag-stripped result title. Never empty.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in source order. Never empty.
	Authors []string `json:"authors" yaml:"authors"`

	// Journal is the venue name, when the author line carries one.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Year is the publication year, or 0 when absent or out of range.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// DOI is a validated DOI of the form 10.NNNN/suffix.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL is the result link with redirect wrappers resolved.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Abstract is the whitespace-normalized snippet, kept only when long enough.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Citations is the explicit citation count, nil when no label was found.
	Citations *int `json:"citations,omitempty" yaml:"citations,omitempty"`

	// Confidence is the completeness-weighted score in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// RelevanceScore is the content-richness score in [0,1].
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// Source optionally labels the search that produced the record
	// (e.g. "scholar:transformers"). Hosts set it when combining searches.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// HasCitations reports whether the record carries an explicit citation count.
func (r ExtractedRecord) HasCitations() bool {
	return r.Citations != nil
}

// CitationCount returns the citation count, or 0 when absent.
func (r ExtractedRecord) CitationCount() int {
	if r.Citations == nil {
		return 0
	}
	return *r.Citations
}

// Clone returns a deep copy so callers can derive new records without
// aliasing the original's slices or pointers.
func (r ExtractedRecord) Clone() ExtractedRecord {
	c := r
	if r.Authors != nil {
		c.Authors = append([]string(nil), r.Authors...)
	}
	if r.Citations != nil {
		n := *r.Citations
		c.Citations = &n
	}
	return c
}

// IntPtr returns a pointer to n. Convenience for building records with
// citation counts.
func IntPtr(n int) *int {
	return &n
}

// MatchStrategy names the matching rule that formed a duplicate group.
type MatchStrategy string

const (
	MatchDOI         MatchStrategy = "doi"
	MatchTitleAuthor MatchStrategy = "title_author"
	MatchURL         MatchStrategy = "url"
	MatchFuzzy       MatchStrategy = "fuzzy_match"
)

// DuplicateGroup is a cluster of records judged to be the same work.
// Singleton groups carry an empty MergeStrategy.
type DuplicateGroup struct {
	// Primary is the highest-confidence member, ties broken by first-seen order.
	Primary ExtractedRecord `json:"primary" yaml:"primary"`

	// Duplicates holds the other members in first-seen order.
	Duplicates []ExtractedRecord `json:"duplicates" yaml:"duplicates"`

	// MergeStrategy is the rule that first attached a duplicate to the group.
	MergeStrategy MatchStrategy `json:"merge_strategy,omitempty" yaml:"merge_strategy,omitempty"`

	// Confidence is the group-level certainty in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Members returns the primary followed by the duplicates. This is the
// "group order" used for conflict values and author unions.
func (g DuplicateGroup) Members() []ExtractedRecord {
	out := make([]ExtractedRecord, 0, len(g.Duplicates)+1)
	out = append(out, g.Primary)
	return append(out, g.Duplicates...)
}

// Size returns the number of records in the group.
func (g DuplicateGroup) Size() int {
	return len(g.Duplicates) + 1
}

// Field names a record field that can conflict across group members.
type Field string

const (
	FieldTitle     Field = "title"
	FieldAuthors   Field = "authors"
	FieldJournal   Field = "journal"
	FieldYear      Field = "year"
	FieldDOI       Field = "doi"
	FieldURL       Field = "url"
	FieldAbstract  Field = "abstract"
	FieldCitations Field = "citations"
)

// ConflictFields lists the fields checked for conflicts, in report order.
var ConflictFields = []Field{
	FieldTitle, FieldAuthors, FieldJournal, FieldYear,
	FieldDOI, FieldURL, FieldAbstract, FieldCitations,
}

// ConflictValue is one distinct variant of a conflicting field.
// Value holds a string for text fields, []string for authors, and int for
// year and citations.
type ConflictValue struct {
	Value      any     `json:"value" yaml:"value"`
	Source     string  `json:"source" yaml:"source"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// DuplicateConflict reports a field on which group members disagree after
// normalization. It is computed on demand and never stored.
type DuplicateConflict struct {
	Field               Field           `json:"field" yaml:"field"`
	Values              []ConflictValue `json:"values" yaml:"values"`
	SuggestedResolution any             `json:"suggested_resolution" yaml:"suggested_resolution"`
}

// MergedResult is a record produced by merging a duplicate group, with
// provenance. Under manual review the host builds these itself.
type MergedResult struct {
	ExtractedRecord `yaml:",inline"`

	// MergedFrom lists the IDs of the records folded into this result.
	MergedFrom []string `json:"merged_from,omitempty" yaml:"merged_from,omitempty"`

	// MergeConfidence is the confidence of the group the result came from.
	MergeConfidence float64 `json:"merge_confidence,omitempty" yaml:"merge_confidence,omitempty"`

	// ConflictingFields names the fields that were resolved from conflicts.
	ConflictingFields []Field `json:"conflicting_fields,omitempty" yaml:"conflicting_fields,omitempty"`
}

// Records unwraps merged results into plain records, dropping provenance.
func Records(results []MergedResult) []ExtractedRecord {
	out := make([]ExtractedRecord, len(results))
	for i, r := range results {
		out[i] = r.ExtractedRecord
	}
	return out
}
