// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText lowercases s, strips diacritics, drops punctuation, and
// collapses whitespace.
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '/':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeTitle returns the comparison form of a title: lowercase,
// accent-folded, punctuation stripped, whitespace collapsed.
func NormalizeTitle(title string) string {
	return foldText(title)
}

// TitleSimilarity returns 1 minus the normalized edit distance between the
// comparison forms of a and b. Empty titles are never similar.
func TitleSimilarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	return 1 - float64(levenshtein.ComputeDistance(na, nb))/float64(longest)
}

// AuthorKey reduces a name to "initial surname" so that "John Smith",
// "J. Smith", and "J Smith" compare equal.
func AuthorKey(name string) string {
	parts := strings.Fields(foldText(strings.ReplaceAll(name, ".", " ")))
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	surname := parts[len(parts)-1]
	first, _ := utf8.DecodeRuneInString(parts[0])
	return string(first) + " " + surname
}

// authorKeySet returns the distinct non-empty author keys in source order.
func authorKeySet(authors []string) []string {
	seen := make(map[string]bool, len(authors))
	var keys []string
	for _, a := range authors {
		k := AuthorKey(a)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// AuthorSimilarity returns the overlap coefficient of the two author sets:
// shared authors divided by the size of the smaller set. Result pages
// often truncate author lists, so a shorter list that is fully contained
// in a longer one scores 1.
func AuthorSimilarity(a, b []string) float64 {
	ka, kb := authorKeySet(a), authorKeySet(b)
	if len(ka) == 0 || len(kb) == 0 {
		return 0
	}
	inB := make(map[string]bool, len(kb))
	for _, k := range kb {
		inB[k] = true
	}
	shared := 0
	for _, k := range ka {
		if inB[k] {
			shared++
		}
	}
	return float64(shared) / float64(min(len(ka), len(kb)))
}

// doiPrefixes are stripped before DOI comparison.
var doiPrefixes = []string{
	"https://doi.org/", "http://doi.org/",
	"https://dx.doi.org/", "http://dx.doi.org/",
	"doi.org/", "doi:",
}

// NormalizeDOI returns the comparison form of a DOI: resolver prefixes
// removed, lowercased, trailing punctuation trimmed.
func NormalizeDOI(doi string) string {
	d := strings.ToLower(strings.TrimSpace(doi))
	for _, p := range doiPrefixes {
		d = strings.TrimPrefix(d, p)
	}
	return strings.TrimRight(strings.TrimSpace(d), ".,;")
}

// NormalizeURL returns the comparison form of a URL: scheme dropped, host
// lowercased without "www.", trailing slash and fragment removed, query
// parameters sorted. Unparsable URLs compare by their trimmed lowercase text.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	out := host + strings.TrimRight(u.EscapedPath(), "/")
	if u.RawQuery != "" {
		if q, err := url.ParseQuery(u.RawQuery); err == nil {
			out += "?" + q.Encode()
		} else {
			out += "?" + u.RawQuery
		}
	}
	return out
}
