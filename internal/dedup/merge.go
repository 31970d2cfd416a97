// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"slices"

	"github.com/pdiddy/bibclean/pkg/types"
)

// RemoveDuplicates detects duplicate groups and applies the configured
// merge strategy. Under keep_highest_quality and merge_all it returns one
// merged record per group, in group order. Under manual_review it returns
// every input record unchanged, wrapped without provenance; the host
// resolves groups from Review and hands the results to Accept.
func (e *Engine) RemoveDuplicates(records []types.ExtractedRecord) []types.MergedResult {
	if e.opts.MergeStrategy == types.ManualReview {
		out := make([]types.MergedResult, len(records))
		for i, r := range records {
			out[i] = types.MergedResult{ExtractedRecord: r.Clone()}
		}
		return out
	}

	groups := e.DetectDuplicates(records)
	out := make([]types.MergedResult, len(groups))
	for i, g := range groups {
		out[i] = e.Merge(g)
	}
	return out
}

// Merge folds one group into a single record. Conflicting fields take the
// suggested resolution; other fields come from the primary, or from the
// first member that has them when the primary does not. Under merge_all
// the author list is always the union of every member's authors.
func (e *Engine) Merge(g types.DuplicateGroup) types.MergedResult {
	merged := g.Primary.Clone()
	var conflicting []types.Field

	for _, f := range types.ConflictFields {
		if c, ok := conflictFor(g, f); ok {
			setField(&merged, f, c.SuggestedResolution)
			conflicting = append(conflicting, f)
			continue
		}
		if _, ok := fieldValue(merged, f); ok {
			continue
		}
		for _, d := range g.Duplicates {
			if v, ok := fieldValue(d, f); ok {
				setField(&merged, f, v)
				break
			}
		}
	}

	if e.opts.MergeStrategy == types.MergeAll {
		lists := make([][]string, 0, g.Size())
		for _, m := range g.Members() {
			lists = append(lists, m.Authors)
		}
		merged.Authors = UnionAuthors(lists...)
	}

	from := make([]string, 0, g.Size())
	for i, m := range g.Members() {
		from = append(from, sourceID(m, i))
	}

	return types.MergedResult{
		ExtractedRecord:   merged,
		MergedFrom:        from,
		MergeConfidence:   g.Confidence,
		ConflictingFields: conflicting,
	}
}

// GroupReview pairs a duplicate group with its conflicts for a host that
// resolves groups by hand.
type GroupReview struct {
	Group     types.DuplicateGroup      `json:"group" yaml:"group"`
	Conflicts []types.DuplicateConflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}

// Review is the first phase of manual resolution: it returns each group
// with more than one member together with its conflicts.
func (e *Engine) Review(records []types.ExtractedRecord) []GroupReview {
	var out []GroupReview
	for _, g := range e.DetectDuplicates(records) {
		if len(g.Duplicates) == 0 {
			continue
		}
		out = append(out, GroupReview{Group: g, Conflicts: Conflicts(g)})
	}
	return out
}

// Accept is the second phase of manual resolution: it takes the records
// the host built from its own decisions and returns them as final output,
// unchanged and without re-validation.
func (e *Engine) Accept(resolved []types.MergedResult) []types.MergedResult {
	return slices.Clone(resolved)
}
