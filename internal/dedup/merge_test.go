// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibclean/pkg/types"
)

// conflictGroup is a three-member group that disagrees on authors,
// journal, year, and citations but agrees on title.
func conflictGroup() types.DuplicateGroup {
	p := rec("p", "Deep Learning", 0.9, "Y LeCun", "Y Bengio")
	p.Journal = "Nature"
	p.Year = 2015
	p.Citations = types.IntPtr(100)

	d1 := rec("d1", "deep learning!", 0.7, "Yoshua Bengio", "Geoffrey Hinton")
	d1.Journal = "Nature Publishing"
	d1.Year = 2015
	d1.Citations = types.IntPtr(250)
	d1.DOI = "10.1038/nature14539"

	d2 := rec("d2", "Deep Learning", 0.8, "Yann LeCun")
	d2.Journal = "nature"
	d2.Year = 2016
	d2.URL = "https://example.org/dl"

	return types.DuplicateGroup{
		Primary:       p,
		Duplicates:    []types.ExtractedRecord{d1, d2},
		MergeStrategy: types.MatchTitleAuthor,
		Confidence:    0.77,
	}
}

// --- Conflicts ---

func TestConflicts(t *testing.T) {
	conflicts := Conflicts(conflictGroup())

	var fields []types.Field
	for _, c := range conflicts {
		fields = append(fields, c.Field)
	}
	require.Equal(t, []types.Field{types.FieldAuthors, types.FieldJournal, types.FieldYear, types.FieldCitations}, fields)

	byField := make(map[types.Field]types.DuplicateConflict)
	for _, c := range conflicts {
		byField[c.Field] = c
	}

	authors := byField[types.FieldAuthors]
	assert.Len(t, authors.Values, 3)
	assert.Equal(t, []string{"Y LeCun", "Y Bengio", "Geoffrey Hinton"}, authors.SuggestedResolution)

	journal := byField[types.FieldJournal]
	require.Len(t, journal.Values, 2, "case-insensitive duplicates collapse")
	assert.Equal(t, "Nature", journal.Values[0].Value)
	assert.Equal(t, "p", journal.Values[0].Source)
	assert.Equal(t, "Nature Publishing", journal.Values[1].Value)
	assert.Equal(t, "d1", journal.Values[1].Source)
	assert.Equal(t, 0.7, journal.Values[1].Confidence)
	assert.Equal(t, "Nature", journal.SuggestedResolution)

	assert.Equal(t, 2015, byField[types.FieldYear].SuggestedResolution)
	assert.Equal(t, 250, byField[types.FieldCitations].SuggestedResolution)
}

func TestConflictsResolutionPrefersConfidence(t *testing.T) {
	g := types.DuplicateGroup{
		Primary:    rec("p", "Sparse Coding", 0.6, "A Roe"),
		Duplicates: []types.ExtractedRecord{rec("d", "Sparse Coding Revisited", 0.8, "A Roe")},
	}
	conflicts := Conflicts(g)
	require.Len(t, conflicts, 1)
	assert.Equal(t, types.FieldTitle, conflicts[0].Field)
	assert.Equal(t, "Sparse Coding Revisited", conflicts[0].SuggestedResolution)
}

func TestConflictsNoneForAgreeingGroup(t *testing.T) {
	g := types.DuplicateGroup{
		Primary:    rec("p", "Sparse Coding", 0.6, "A Roe", "B Lee"),
		Duplicates: []types.ExtractedRecord{rec("d", "sparse coding", 0.5, "B. Lee", "Alice Roe")},
	}
	assert.Empty(t, Conflicts(g))
}

func TestConflictsUnnamedSources(t *testing.T) {
	g := types.DuplicateGroup{
		Primary:    rec("", "One", 0.6, "A Roe"),
		Duplicates: []types.ExtractedRecord{rec("", "Two", 0.5, "A Roe")},
	}
	conflicts := Conflicts(g)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "member-0", conflicts[0].Values[0].Source)
	assert.Equal(t, "member-1", conflicts[0].Values[1].Source)
}

func TestUnionAuthors(t *testing.T) {
	got := UnionAuthors(
		[]string{"Y LeCun", "Y Bengio"},
		[]string{"Yoshua Bengio", "Geoffrey Hinton"},
		nil,
		[]string{"", "G. Hinton", "A Ng"},
	)
	assert.Equal(t, []string{"Y LeCun", "Y Bengio", "Geoffrey Hinton", "A Ng"}, got)
}

func TestUnionAuthorsKeepsCoauthorsSharingAKey(t *testing.T) {
	got := UnionAuthors(
		[]string{"Jian Wang", "Jun Wang", "Li Zhang"},
		[]string{"J. Wang", "L Zhang", "Wei Chen"},
	)
	assert.Equal(t, []string{"Jian Wang", "Jun Wang", "Li Zhang", "Wei Chen"}, got)
}

func TestConflictsCountsCoauthorsSharingAKey(t *testing.T) {
	g := types.DuplicateGroup{
		Primary:    rec("p", "Graph Learning", 0.8, "Jian Wang", "Jun Wang"),
		Duplicates: []types.ExtractedRecord{rec("d", "Graph Learning", 0.6, "J Wang")},
	}
	conflicts := Conflicts(g)
	require.Len(t, conflicts, 1)
	assert.Equal(t, types.FieldAuthors, conflicts[0].Field)
	assert.Equal(t, []string{"Jian Wang", "Jun Wang"}, conflicts[0].SuggestedResolution)
}

func TestMergeAllKeepsCoauthorsSharingAKey(t *testing.T) {
	e := newEngine(t, func(o *types.DuplicateDetectionOptions) { o.MergeStrategy = types.MergeAll })
	got := e.RemoveDuplicates([]types.ExtractedRecord{
		rec("a", "Graph Learning", 0.8, "Jian Wang", "Jun Wang", "Li Zhang"),
	})
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Jian Wang", "Jun Wang", "Li Zhang"}, got[0].Authors)
}

// --- Merge ---

func TestMergeKeepHighestQuality(t *testing.T) {
	e := newEngine(t, nil)
	got := e.Merge(conflictGroup())

	assert.Equal(t, "p", got.ID)
	assert.Equal(t, "Deep Learning", got.Title)
	assert.Equal(t, []string{"Y LeCun", "Y Bengio", "Geoffrey Hinton"}, got.Authors)
	assert.Equal(t, "Nature", got.Journal)
	assert.Equal(t, 2015, got.Year)
	assert.Equal(t, 250, got.CitationCount())
	assert.Equal(t, "10.1038/nature14539", got.DOI, "missing on primary, filled from a duplicate")
	assert.Equal(t, "https://example.org/dl", got.URL)

	assert.Equal(t, []string{"p", "d1", "d2"}, got.MergedFrom)
	assert.Equal(t, 0.77, got.MergeConfidence)
	assert.Equal(t, []types.Field{types.FieldAuthors, types.FieldJournal, types.FieldYear, types.FieldCitations}, got.ConflictingFields)
}

func TestMergeDoesNotMutateGroup(t *testing.T) {
	g := conflictGroup()
	got := newEngine(t, nil).Merge(g)
	got.Authors[0] = "changed"
	assert.Equal(t, "Y LeCun", g.Primary.Authors[0])
	assert.Empty(t, g.Primary.DOI)
}

func TestMergeAllUnionsAuthors(t *testing.T) {
	e := newEngine(t, func(o *types.DuplicateDetectionOptions) { o.MergeStrategy = types.MergeAll })
	g := types.DuplicateGroup{
		Primary:    rec("p", "Sparse Coding", 0.9, "A Roe"),
		Duplicates: []types.ExtractedRecord{rec("d", "Sparse Coding", 0.5, "A. Roe", "B Lee")},
	}
	got := e.Merge(g)
	assert.Equal(t, []string{"A Roe", "B Lee"}, got.Authors)
	assert.Equal(t, []types.Field{types.FieldAuthors}, got.ConflictingFields)
}

func TestMergeSingleton(t *testing.T) {
	r := rec("only", "Lonely Paper", 0.6, "A Roe")
	got := newEngine(t, nil).Merge(types.DuplicateGroup{Primary: r, Confidence: 0.6})
	assert.Equal(t, r, got.ExtractedRecord)
	assert.Equal(t, []string{"only"}, got.MergedFrom)
	assert.Empty(t, got.ConflictingFields)
}

// --- RemoveDuplicates ---

func scenarioRecords() []types.ExtractedRecord {
	return []types.ExtractedRecord{
		withDOI(rec("a", "Machine Learning in NLP", 0.6, "J Smith"), "10.1/abc"),
		withDOI(rec("b", "machine learning in nlp", 0.8, "John Smith"), "10.1/abc"),
		withDOI(rec("c", "Protein Folding with Graphs", 0.7, "K Lee"), "10.2/xyz"),
	}
}

func TestRemoveDuplicates(t *testing.T) {
	tests := []struct {
		name     string
		strategy types.MergeStrategy
		wantIDs  []string
	}{
		{"keep highest quality", types.KeepHighestQuality, []string{"b", "c"}},
		{"merge all", types.MergeAll, []string{"b", "c"}},
		{"manual review", types.ManualReview, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, func(o *types.DuplicateDetectionOptions) { o.MergeStrategy = tt.strategy })
			records := scenarioRecords()
			out := e.RemoveDuplicates(records)

			var ids []string
			for _, m := range out {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			if tt.strategy != types.ManualReview {
				assert.LessOrEqual(t, len(out), len(e.DetectDuplicates(records)))
				assert.Equal(t, []string{"b", "a"}, out[0].MergedFrom)
			}
		})
	}
}

func TestRemoveDuplicatesManualReviewIsIdentity(t *testing.T) {
	e := newEngine(t, func(o *types.DuplicateDetectionOptions) { o.MergeStrategy = types.ManualReview })
	records := scenarioRecords()
	out := e.RemoveDuplicates(records)
	assert.Equal(t, records, types.Records(out))
	for _, m := range out {
		assert.Empty(t, m.MergedFrom)
		assert.Empty(t, m.ConflictingFields)
	}
}

// --- Manual review ---

func TestReviewAndAccept(t *testing.T) {
	e := newEngine(t, func(o *types.DuplicateDetectionOptions) { o.MergeStrategy = types.ManualReview })
	reviews := e.Review(scenarioRecords())
	require.Len(t, reviews, 1, "singletons need no review")
	assert.Equal(t, "b", reviews[0].Group.Primary.ID)
	assert.Empty(t, reviews[0].Conflicts, "spelling variants of one author do not conflict")

	chosen := types.MergedResult{
		ExtractedRecord: reviews[0].Group.Duplicates[0],
		MergedFrom:      []string{"a", "b"},
	}
	resolved := []types.MergedResult{chosen}
	accepted := e.Accept(resolved)
	assert.Equal(t, resolved, accepted)

	accepted[0].Title = "edited"
	assert.Equal(t, "Machine Learning in NLP", resolved[0].Title)
}
