// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recordfile

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibclean/pkg/types"
)

// FormatTable writes records as a human-readable table to w.
func FormatTable(records []types.ExtractedRecord, w io.Writer) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-56s  %-20s  %-4s  %-5s  %s\n",
		"#", "Title", "Authors", "Year", "Conf", "Journal")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	for i, r := range records {
		year := ""
		if r.Year != 0 {
			year = fmt.Sprintf("%d", r.Year)
		}
		fmt.Fprintf(w, "%-4d  %-56s  %-20s  %-4s  %-5.2f  %s\n",
			i+1, truncate(r.Title, 56), formatAuthors(r.Authors), year, r.Confidence, truncate(r.Journal, 24))
	}
	fmt.Fprintf(w, "\n%d records\n", len(records))
}

// FormatGroups writes one block per multi-member group: the primary, its
// duplicates, and the rule that joined them.
func FormatGroups(groups []types.DuplicateGroup, w io.Writer) {
	n := 0
	for _, g := range groups {
		if len(g.Duplicates) == 0 {
			continue
		}
		n++
		fmt.Fprintf(w, "group %d (%s, confidence %.2f)\n", n, g.MergeStrategy, g.Confidence)
		fmt.Fprintf(w, "  * %s [%s]\n", truncate(g.Primary.Title, 72), g.Primary.ID)
		for _, d := range g.Duplicates {
			fmt.Fprintf(w, "    %s [%s]\n", truncate(d.Title, 72), d.ID)
		}
	}
	if n == 0 {
		fmt.Fprintln(w, "No duplicates found.")
	}
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 13) + " et al."
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

// CSLItem is a bibliographic entry in CSL-YAML form, consumable by Pandoc
// and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a CSL date using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes records as a CSL-YAML list to w.
func FormatCSL(records []types.ExtractedRecord, w io.Writer) error {
	items := make([]CSLItem, len(records))
	for i, r := range records {
		items[i] = toCSLItem(r)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(r types.ExtractedRecord) CSLItem {
	item := CSLItem{
		ID:             r.ID,
		Type:           "article",
		Title:          r.Title,
		ContainerTitle: r.Journal,
		Abstract:       r.Abstract,
		DOI:            r.DOI,
		URL:            r.URL,
	}
	if r.Journal != "" {
		item.Type = "article-journal"
	}
	for _, a := range r.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}
	if r.Year != 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{r.Year}}}
	}
	return item
}

// parseAuthorName splits a display name on its last space into given and
// family parts. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{Given: name[:idx], Family: name[idx+1:]}
}
