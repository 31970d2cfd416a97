// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/bibclean/pkg/types"
)

var longAbstract = strings.Repeat("Graph neural networks propagate information along edges. ", 6)

func TestConfidenceAnchors(t *testing.T) {
	minimal := types.ExtractedRecord{Title: "A Note", Authors: []string{"J Doe"}}
	assert.Less(t, Confidence(minimal), 0.6)

	full := types.ExtractedRecord{
		Title:     "A Note",
		Authors:   []string{"J Doe"},
		Journal:   "Nature",
		Abstract:  "We describe a compact method for estimating things from other things.",
		Citations: types.IntPtr(3),
	}
	assert.Greater(t, Confidence(full), 0.85)
}

func TestConfidenceMonotonic(t *testing.T) {
	steps := []func(*types.ExtractedRecord){
		func(r *types.ExtractedRecord) { r.Authors = append(r.Authors, "A Second") },
		func(r *types.ExtractedRecord) { r.Year = 2020 },
		func(r *types.ExtractedRecord) { r.URL = "https://example.org" },
		func(r *types.ExtractedRecord) { r.DOI = "10.1/abc" },
		func(r *types.ExtractedRecord) { r.Abstract = "A short but acceptable abstract about graph methods and more." },
		func(r *types.ExtractedRecord) { r.Abstract = longAbstract },
		func(r *types.ExtractedRecord) { r.Journal = "Nature" },
		func(r *types.ExtractedRecord) { r.Citations = types.IntPtr(0) },
	}

	rec := types.ExtractedRecord{Title: "Graphs", Authors: []string{"J Doe"}}
	prev := Confidence(rec)
	for i, step := range steps {
		step(&rec)
		got := Confidence(rec)
		assert.GreaterOrEqual(t, got, prev, "step %d lowered confidence", i)
		assert.LessOrEqual(t, got, 1.0)
		prev = got
	}
	assert.Equal(t, 1.0, prev)
}

func TestConfidenceRequiresTitleAndAuthor(t *testing.T) {
	assert.Zero(t, Confidence(types.ExtractedRecord{Title: "Only a title"}))
	assert.Zero(t, Confidence(types.ExtractedRecord{Authors: []string{"Only Author"}}))
}

func TestRelevance(t *testing.T) {
	short := types.ExtractedRecord{
		Title:     "AI",
		Authors:   []string{"J Doe", "A Roe"},
		Journal:   "Nature",
		Year:      2020,
		Citations: types.IntPtr(10),
		Abstract:  "A terse abstract that barely passes the minimum length.",
	}
	rich := types.ExtractedRecord{
		Title:    "A Comprehensive Survey of Graph Neural Networks for Large Scale Recommendation",
		Authors:  []string{"J Doe"},
		Abstract: longAbstract,
	}

	assert.Greater(t, Confidence(short), 0.85)
	assert.Less(t, Relevance(short), 0.3)
	assert.Greater(t, Relevance(rich), Relevance(short))
	assert.LessOrEqual(t, Relevance(rich), 1.0)

	// More text never lowers relevance.
	longer := rich
	longer.Abstract = rich.Abstract + rich.Abstract
	assert.GreaterOrEqual(t, Relevance(longer), Relevance(rich))
	assert.Zero(t, Relevance(types.ExtractedRecord{}))
}
