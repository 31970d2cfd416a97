// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"math"
	"unicode/utf8"

	"github.com/pdiddy/bibclean/pkg/types"
)

// Confidence weights. Every term is non-negative, so adding a field never
// lowers the score. Title plus one author scores 0.45; title, authors,
// journal, abstract, and citations score at least 0.90.
const (
	weightBase          = 0.45
	weightJournal       = 0.15
	weightAbstract      = 0.15
	weightLongAbstract  = 0.04
	weightCitations     = 0.15
	weightMultiAuthor   = 0.03
	weightYear          = 0.03
	weightDOI           = 0.03
	weightURL           = 0.02
	longAbstractLength  = 200
	relevanceTitleRunes = 100
	relevanceAbsRunes   = 500
)

// Confidence scores how completely rec is attributed, in [0,1]. A record
// without a title or author scores 0.
func Confidence(rec types.ExtractedRecord) float64 {
	if rec.Title == "" || len(rec.Authors) == 0 {
		return 0
	}
	score := weightBase
	if len(rec.Authors) >= 2 {
		score += weightMultiAuthor
	}
	if rec.Journal != "" {
		score += weightJournal
	}
	if rec.Year != 0 {
		score += weightYear
	}
	if rec.DOI != "" {
		score += weightDOI
	}
	if rec.URL != "" {
		score += weightURL
	}
	if rec.Abstract != "" {
		score += weightAbstract
		if utf8.RuneCountInString(rec.Abstract) >= longAbstractLength {
			score += weightLongAbstract
		}
	}
	if rec.HasCitations() {
		score += weightCitations
	}
	return round4(math.Min(1, score))
}

// Relevance scores the textual substance of rec, in [0,1]. It looks only at
// title and abstract length, so a terse but fully attributed record can
// score high on Confidence and low here.
func Relevance(rec types.ExtractedRecord) float64 {
	title := math.Min(float64(utf8.RuneCountInString(rec.Title))/relevanceTitleRunes, 1)
	abstract := math.Min(float64(utf8.RuneCountInString(rec.Abstract))/relevanceAbsRunes, 1)
	return round4(0.3*title + 0.7*abstract)
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
