// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"math"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	// venueSepRe splits an author/venue line like
	// "A Smith, B Jones - Nature, 2020 - nature.com" into its segments.
	venueSepRe = regexp.MustCompile(`\s+[-\x{2013}\x{2014}]\s+`)

	// authorTokenRe accepts name fragments: letters, periods, hyphens,
	// apostrophes, and inner spaces.
	authorTokenRe = regexp.MustCompile(`^\p{L}[\p{L}\p{M}.'\x{2019}\- ]*$`)

	// domainRe matches bare host names such as "nature.com" or "arxiv.org".
	domainRe = regexp.MustCompile(`(?i)^[a-z0-9-]+(?:\.[a-z0-9-]+)*\.[a-z]{2,}$`)

	// yearRunRe matches a run of exactly four digits.
	yearRunRe = regexp.MustCompile(`(?:^|\D)(\d{4})(?:\D|$)`)

	// venueYearRe matches a standalone year inside a venue segment.
	venueYearRe = regexp.MustCompile(`\b\d{4}\b`)

	// citationLabelRes match the citation-count labels result pages use.
	citationLabelRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcited\s+by\s+(\d[\d,]*)`),
		regexp.MustCompile(`(?i)\bcitations?\s*:\s*(\d[\d,]*)`),
		regexp.MustCompile(`(?i)\b(\d[\d,]*)\s+citations\b`),
	}

	// doiCandidateRe finds DOI-looking strings in free text or link targets.
	// The word boundary keeps "2010.12345/v2" from yielding "10.12345/v2".
	doiCandidateRe = regexp.MustCompile(`\b10\.\d{4,9}/[^\s"'<>]+`)

	// doiRe is the full DOI grammar a candidate must satisfy.
	doiRe = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)
)

// redirectKeys are the query parameters redirect wrappers use for the
// real target, in lookup order.
var redirectKeys = []string{"url", "q", "u", "target", "dest"}

// redirectPaths are the final path segments of redirect wrappers. Links on
// any other path are article links even when they carry a url parameter.
var redirectPaths = []string{"url", "scholar_url", "redirect", "out"}

// NormalizeWhitespace composes text to NFC, collapses whitespace runs
// (including newlines and non-breaking spaces) to single spaces, and trims.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// DecodeEntities undoes the double escaping some pages apply to
// ampersands ("&amp;amp;" parses to "&amp;"), then normalizes whitespace.
// Other references left after parsing are literal page text and stay.
func DecodeEntities(s string) string {
	return NormalizeWhitespace(strings.ReplaceAll(s, "&amp;", "&"))
}

// splitVenueLine splits an author/venue line into trimmed, non-empty segments.
func splitVenueLine(line string) []string {
	var segs []string
	for _, s := range venueSepRe.Split(NormalizeWhitespace(line), -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// parseAuthors returns the plausible author names from the first segment
// of the author/venue line, in source order.
func parseAuthors(line string) []string {
	segs := splitVenueLine(line)
	if len(segs) == 0 {
		return nil
	}
	var authors []string
	for _, tok := range strings.Split(segs[0], ",") {
		tok = strings.TrimSpace(strings.Trim(tok, "…. "))
		if isAuthorToken(tok) {
			authors = append(authors, tok)
		}
	}
	return authors
}

func isAuthorToken(tok string) bool {
	if tok == "" || !authorTokenRe.MatchString(tok) {
		return false
	}
	if domainRe.MatchString(tok) {
		return false
	}
	lower := strings.ToLower(tok)
	return lower != "et al" && lower != "and others"
}

// parseJournal returns the venue between the author list and the trailing
// year/domain segment. Lines with fewer than three segments carry none.
func parseJournal(line string) string {
	segs := splitVenueLine(line)
	if len(segs) < 3 {
		return ""
	}
	return cleanVenue(strings.Join(segs[1:len(segs)-1], " - "))
}

// cleanVenue strips years, ellipses, and trailing punctuation from a venue.
// A segment with no letters left (e.g. a bare year) is not a venue.
func cleanVenue(text string) string {
	text = venueYearRe.ReplaceAllString(text, "")
	text = strings.Trim(NormalizeWhitespace(text), "….,;: ")
	if strings.IndexFunc(text, unicode.IsLetter) < 0 {
		return ""
	}
	return text
}

// parseYear returns the first four-digit run in line when it falls within
// [1900, maxYear]. Any other value is absent (0).
func parseYear(line string, maxYear int) int {
	m := yearRunRe.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return ValidYear(y, maxYear)
}

// ValidYear returns y when it lies within [1900, maxYear], otherwise 0.
// Out-of-range years are dropped, never clamped.
func ValidYear(y, maxYear int) int {
	if y < minYear || y > maxYear {
		return 0
	}
	return y
}

// parseCitations finds the earliest citation-count label in text.
func parseCitations(text string) (int, bool) {
	best := -1
	var digits string
	for _, re := range citationLabelRes {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		if best < 0 || loc[0] < best {
			best = loc[0]
			digits = text[loc[2]:loc[3]]
		}
	}
	if best < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(digits, ",", ""))
	if err != nil || n < 0 || n > math.MaxInt32 {
		return 0, false
	}
	return n, true
}

// findDOI searches link targets first, then free text, and returns the
// first valid DOI.
func findDOI(hrefs []string, text string) string {
	for _, href := range hrefs {
		if unescaped, err := url.QueryUnescape(href); err == nil {
			href = unescaped
		}
		// Query separators end a DOI embedded in a link target.
		if doi := ExtractDOI(strings.FieldsFunc(href, func(r rune) bool {
			return r == '&' || r == '?' || r == '#'
		})...); doi != "" {
			return doi
		}
	}
	return ExtractDOI(text)
}

// ExtractDOI returns the first candidate in texts that satisfies the DOI
// grammar 10.NNNN/suffix, or "" when none does. Candidates are not coerced:
// "invalid-doi", "10.abc/x", and the tail of "arXiv:2010.12345/v2" all
// yield "".
func ExtractDOI(texts ...string) string {
	for _, text := range texts {
		for _, cand := range doiCandidateRe.FindAllString(text, -1) {
			cand = strings.TrimRight(cand, ".,;:)]}")
			if doiRe.MatchString(cand) {
				return cand
			}
		}
	}
	return ""
}

// ResolveURL unwraps redirect-wrapper links such as
// "/scholar_url?url=https%3A%2F%2Fexample.org%2Fpaper" to their target.
// Only the paths in redirectPaths are wrappers. Other links, and wrappers
// whose target cannot be decoded, are returned unchanged.
func ResolveURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !slices.Contains(redirectPaths, path.Base(u.Path)) {
		return raw
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return raw
	}
	for _, key := range redirectKeys {
		v := q.Get(key)
		if v == "" {
			continue
		}
		target, err := url.Parse(v)
		if err != nil || target.Host == "" || (target.Scheme != "http" && target.Scheme != "https") {
			continue
		}
		return target.String()
	}
	return raw
}

// cleanAbstract normalizes a summary region and keeps it only when it is
// longer than minLen runes.
func cleanAbstract(text string, minLen int) string {
	text = DecodeEntities(text)
	if utf8.RuneCountInString(text) <= minLen {
		return ""
	}
	return text
}
