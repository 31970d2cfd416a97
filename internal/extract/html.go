// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Class signatures for the parts of a result block. Google Scholar markup
// uses the gs_ prefixed names; the rest cover generic result listings.
var (
	blockClasses    = []string{"gs_r", "gs_ri", "result", "search-result", "result-item", "citation-result"}
	titleClasses    = []string{"gs_rt", "title", "result-title", "paper-title"}
	authorClasses   = []string{"gs_a", "authors", "author-line", "result-authors", "byline"}
	abstractClasses = []string{"gs_rs", "abstract", "snippet", "result-snippet", "summary"}

	// labelClasses mark inline category labels such as "[PDF]" that sit
	// inside title headings but are not part of the title.
	labelClasses = []string{"gs_ctc", "gs_ctg2", "gs_ct1", "gs_ct2", "gs_ctu"}
)

// labelPrefixRe matches leading bracketed labels like "[BOOK]" or "[CITATION][C]".
var labelPrefixRe = regexp.MustCompile(`^(?:\s*\[[A-Z]+\])+\s*`)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, names []string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if slices.Contains(names, c) {
			return true
		}
	}
	return false
}

func isBlockNode(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.DataAtom == atom.Article || hasClass(n, blockClasses))
}

func isTitleNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4:
		return true
	}
	return hasClass(n, titleClasses)
}

func isAuthorLineNode(n *html.Node) bool {
	return hasClass(n, authorClasses)
}

func isAbstractNode(n *html.Node) bool {
	if !hasClass(n, abstractClasses) {
		return false
	}
	switch n.DataAtom {
	case atom.Div, atom.Span, atom.P:
		return true
	}
	return false
}

// findFirst returns the first descendant of n (preorder) that satisfies match.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findBlocks returns the result blocks under root in document order. A
// marked node that wraps two or more marked nodes is a listing container,
// not a result, so the search descends into it.
func findBlocks(root *html.Node) []*html.Node {
	var blocks []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if isBlockNode(c) && len(outerBlocks(c)) < 2 {
				blocks = append(blocks, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return blocks
}

// outerBlocks returns the outermost marked descendants of n.
func outerBlocks(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isBlockNode(c) {
			out = append(out, c)
			continue
		}
		out = append(out, outerBlocks(c)...)
	}
	return out
}

// innerText concatenates the text nodes under n with no separators, the
// way inline markup like <b> or <i> reads in a title.
func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if skipNode(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return NormalizeWhitespace(b.String())
}

// spacedText joins the text nodes under n with spaces so adjacent block
// elements do not run together.
func spacedText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return NormalizeWhitespace(strings.Join(parts, " "))
}

func skipNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
		return true
	}
	return hasClass(n, labelClasses)
}

// titleAndLink returns the title text and the title anchor's target.
// When the title node holds an anchor, the anchor's text is the title.
func titleAndLink(n *html.Node) (string, string) {
	anchor := n
	if n.DataAtom != atom.A {
		anchor = findFirst(n, func(c *html.Node) bool {
			return c.Type == html.ElementNode && c.DataAtom == atom.A && !hasClass(c, labelClasses)
		})
	}
	if anchor == nil {
		return cleanTitle(innerText(n)), ""
	}
	title := cleanTitle(innerText(anchor))
	if title == "" {
		title = cleanTitle(innerText(n))
	}
	return title, usableHref(attr(anchor, "href"))
}

func cleanTitle(s string) string {
	return strings.TrimSpace(labelPrefixRe.ReplaceAllString(DecodeEntities(s), ""))
}

// links returns every usable anchor target under n in document order.
func links(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href := usableHref(attr(n, "href")); href != "" {
				out = append(out, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func firstLink(n *html.Node) string {
	if all := links(n); len(all) > 0 {
		return all[0]
	}
	return ""
}

func usableHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	return href
}
