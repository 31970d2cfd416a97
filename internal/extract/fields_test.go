// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func mustParseHTML(t *testing.T, doc string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return root
}

func TestParseAuthors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"scholar line", "A Vaswani, N Shazeer - NeurIPS, 2017 - neurips.cc", []string{"A Vaswani", "N Shazeer"}},
		{"single author", "J Doe", []string{"J Doe"}},
		{"ellipsis and noise", "A Smith, B Jones, …, 2019, nature.com", []string{"A Smith", "B Jones"}},
		{"initials with periods", "J. R. R. Tolkien, C. S. Lewis", []string{"J. R. R. Tolkien", "C. S. Lewis"}},
		{"hyphens and apostrophes", "Jean-Luc O'Neil, Anne-Marie D'Arc", []string{"Jean-Luc O'Neil", "Anne-Marie D'Arc"}},
		{"unicode names", "José Muñoz, Zoë Kravitz", []string{"José Muñoz", "Zoë Kravitz"}},
		{"et al dropped", "A Smith, et al", []string{"A Smith"}},
		{"numeric only", "2020, 42", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAuthors(tt.line))
		})
	}
}

func TestParseJournal(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"A Smith - Nature, 2020 - nature.com", "Nature"},
		{"A Smith - Journal of Machine Learning Research - jmlr.org", "Journal of Machine Learning Research"},
		{"A Smith – Physical Review Letters, 2019 – aps.org", "Physical Review Letters"},
		{"A Smith - 2020 - arxiv.org", ""},
		{"A Smith - Nature", ""},
		{"A Smith", ""},
		{"A Smith - …Conference on Vision, 2021 - ieee.org", "Conference on Vision"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, parseJournal(tt.line))
		})
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{"in range", "A Smith - Nature, 2020 - nature.com", 2020},
		{"first run wins", "A Smith - 1850 reprint, 2020 - x.org", 0},
		{"five digit run ignored", "A Smith - Vol 12345, 2019", 2019},
		{"max year", "A Smith - 2025", 2025},
		{"beyond max", "A Smith - 2026", 0},
		{"none", "A Smith - Nature", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseYear(tt.line, 2025))
		})
	}
}

func TestParseCitations(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   int
		wantOK bool
	}{
		{"cited by", "Cited by 45 Related articles", 45, true},
		{"thousands separator", "Cited by 1,204", 1204, true},
		{"citations colon", "Citations: 12", 12, true},
		{"case insensitive", "CITED BY 3", 3, true},
		{"first label wins", "citations: 9 ... Cited by 3", 9, true},
		{"trailing form", "312 citations", 312, true},
		{"no label", "Related articles All 5 versions", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseCitations(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractDOI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1038/nature12373", "10.1038/nature12373"},
		{"invalid-doi", ""},
		{"doi:10.1145/3292500.3330701.", "10.1145/3292500.3330701"},
		{"see (10.1000/xyz123)", "10.1000/xyz123"},
		{"10.abc/nope", ""},
		{"10.1038/", ""},
		{"arXiv:2010.12345/v2 preprint", ""},
		{"see https://example.org/reports/2010.5/summary", ""},
		{"10.12/short-registrant", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDOI(tt.in))
		})
	}
}

func TestFindDOIPrefersLinks(t *testing.T) {
	hrefs := []string{
		"https://example.org/article",
		"https://dx.doi.org/10.1016%2Fj.cell.2020.01.001?via=ihub",
	}
	assert.Equal(t, "10.1016/j.cell.2020.01.001", findDOI(hrefs, "text mentions 10.9999/other"))
	assert.Equal(t, "10.9999/other", findDOI(nil, "text mentions 10.9999/other"))
	assert.Empty(t, findDOI(nil, "no identifiers"))
	assert.Empty(t, findDOI([]string{"https://example.org/reports/2010.5/summary"}, ""))
	assert.Empty(t, findDOI([]string{"https://arxiv.org/abs/2010.12345/v2"}, "arXiv:2010.12345"))
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"scholar wrapper", "/scholar_url?url=https%3A%2F%2Fexample.org%2Fpaper%3Fid%3D1&hl=en", "https://example.org/paper?id=1"},
		{"google url wrapper", "https://www.google.com/url?q=https://example.org/a&sa=U", "https://example.org/a"},
		{"direct link", "https://example.org/paper", "https://example.org/paper"},
		{"query that is not a target", "https://example.org/search?q=transformers", "https://example.org/search?q=transformers"},
		{"article link with url parameter", "https://repo.example.org/article/view?url=https://cdn.example.org/file.pdf", "https://repo.example.org/article/view?url=https://cdn.example.org/file.pdf"},
		{"out wrapper", "https://links.example.com/out?target=https%3A%2F%2Fexample.org%2Fb", "https://example.org/b"},
		{"redirect wrapper", "/redirect?u=https://example.org/c", "https://example.org/c"},
		{"undecodable wrapper kept", "/url?q=%zz", "/url?q=%zz"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveURL(tt.in))
		})
	}
}

func TestCleanAbstract(t *testing.T) {
	long := "We study the problem of\n\n   learning   representations\tfrom graphs at scale."
	assert.Equal(t, "We study the problem of learning representations from graphs at scale.", cleanAbstract(long, 50))
	assert.Empty(t, cleanAbstract("Too short.", 50))
	assert.Empty(t, cleanAbstract("   ", 50))

	exact := strings.Repeat("a", 50)
	assert.Empty(t, cleanAbstract(exact, 50), "length must exceed the minimum")
	assert.Equal(t, exact+"b", cleanAbstract(exact+"b", 50))
}

func TestDecodeEntities(t *testing.T) {
	assert.Equal(t, "Graphs & Networks", DecodeEntities("Graphs &amp; Networks"))
	assert.Equal(t, "a &lt; b", DecodeEntities("a  &lt; b"), "literal references are page text")
	assert.Equal(t, "plain text", DecodeEntities(" plain\ntext "))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a\n\tb  c  "))
	// Decomposed "é" composes to the single code point.
	assert.Equal(t, "caf\u00e9", NormalizeWhitespace("cafe\u0301"))
}
