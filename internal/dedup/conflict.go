// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/pdiddy/bibclean/pkg/types"
)

// fieldEntry is one member's value for a field, with its comparison key.
type fieldEntry struct {
	value  any
	key    string
	source string
	conf   float64
}

// sourceID identifies a record in conflict reports and provenance lists.
// Records without an ID are named by their position in the group.
func sourceID(r types.ExtractedRecord, pos int) string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("member-%d", pos)
}

// fieldValue returns the record's value for f and whether it is present.
func fieldValue(r types.ExtractedRecord, f types.Field) (any, bool) {
	switch f {
	case types.FieldTitle:
		return r.Title, r.Title != ""
	case types.FieldAuthors:
		return slices.Clone(r.Authors), len(r.Authors) > 0
	case types.FieldJournal:
		return r.Journal, r.Journal != ""
	case types.FieldYear:
		return r.Year, r.Year != 0
	case types.FieldDOI:
		return r.DOI, r.DOI != ""
	case types.FieldURL:
		return r.URL, r.URL != ""
	case types.FieldAbstract:
		return r.Abstract, r.Abstract != ""
	case types.FieldCitations:
		return r.CitationCount(), r.HasCitations()
	}
	return nil, false
}

// setField writes v into r's field f. v must have the type fieldValue returns.
func setField(r *types.ExtractedRecord, f types.Field, v any) {
	switch f {
	case types.FieldTitle:
		r.Title = v.(string)
	case types.FieldAuthors:
		r.Authors = slices.Clone(v.([]string))
	case types.FieldJournal:
		r.Journal = v.(string)
	case types.FieldYear:
		r.Year = v.(int)
	case types.FieldDOI:
		r.DOI = v.(string)
	case types.FieldURL:
		r.URL = v.(string)
	case types.FieldAbstract:
		r.Abstract = v.(string)
	case types.FieldCitations:
		r.Citations = types.IntPtr(v.(int))
	}
}

// comparisonKey normalizes a field value for equality: case- and
// punctuation-insensitive text, multiset equality for authors. Two
// co-authors sharing a key ("Jian Wang", "Jun Wang") both count.
func comparisonKey(f types.Field, v any) string {
	switch f {
	case types.FieldAuthors:
		var keys []string
		for _, a := range v.([]string) {
			if k := AuthorKey(a); k != "" {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		return strings.Join(keys, "|")
	case types.FieldYear, types.FieldCitations:
		return strconv.Itoa(v.(int))
	case types.FieldDOI:
		return NormalizeDOI(v.(string))
	case types.FieldURL:
		return NormalizeURL(v.(string))
	default:
		return foldText(v.(string))
	}
}

// entries collects the present values of f across the group in group order.
func entries(g types.DuplicateGroup, f types.Field) []fieldEntry {
	var out []fieldEntry
	for i, m := range g.Members() {
		v, ok := fieldValue(m, f)
		if !ok {
			continue
		}
		out = append(out, fieldEntry{
			value:  v,
			key:    comparisonKey(f, v),
			source: sourceID(m, i),
			conf:   m.Confidence,
		})
	}
	return out
}

// Conflicts reports every field on which the group's members disagree
// after normalization, in the order of types.ConflictFields. Each conflict
// lists the distinct values (first occurrence kept) and a suggested
// resolution.
func Conflicts(g types.DuplicateGroup) []types.DuplicateConflict {
	var out []types.DuplicateConflict
	for _, f := range types.ConflictFields {
		if c, ok := conflictFor(g, f); ok {
			out = append(out, c)
		}
	}
	return out
}

func conflictFor(g types.DuplicateGroup, f types.Field) (types.DuplicateConflict, bool) {
	all := entries(g, f)
	distinct := lo.UniqBy(all, func(e fieldEntry) string { return e.key })
	if len(distinct) < 2 {
		return types.DuplicateConflict{}, false
	}
	values := lo.Map(distinct, func(e fieldEntry, _ int) types.ConflictValue {
		return types.ConflictValue{Value: e.value, Source: e.source, Confidence: e.conf}
	})
	return types.DuplicateConflict{
		Field:               f,
		Values:              values,
		SuggestedResolution: resolve(f, all),
	}, true
}

// resolve picks the suggested value for a conflicting field: the maximum
// for citations, the ordered union for authors, and the highest-confidence
// source's value for everything else (earliest source on ties).
func resolve(f types.Field, all []fieldEntry) any {
	switch f {
	case types.FieldCitations:
		return lo.MaxBy(all, func(a, b fieldEntry) bool { return a.value.(int) > b.value.(int) }).value
	case types.FieldAuthors:
		lists := lo.Map(all, func(e fieldEntry, _ int) []string { return e.value.([]string) })
		return UnionAuthors(lists...)
	}
	best := all[0]
	for _, e := range all[1:] {
		if e.conf > best.conf {
			best = e
		}
	}
	return best.value
}

// UnionAuthors concatenates author lists in order. Within one list every
// author is kept; an author of a later list is dropped when an earlier
// list already holds the same name, so the first spelling wins.
func UnionAuthors(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		var added []string
		for _, a := range list {
			k := AuthorKey(a)
			if k == "" || seen[k] {
				continue
			}
			added = append(added, k)
			out = append(out, a)
		}
		for _, k := range added {
			seen[k] = true
		}
	}
	return out
}
