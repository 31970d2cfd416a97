// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract parses academic search-result markup into structured
// bibliographic records. Parsing is tolerant: malformed markup, missing
// fields, and out-of-range values degrade to absent fields, never errors.
//
// See docs/ARCHITECTURE § Result Extractor.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/bibclean/pkg/types"
)

const (
	defaultMinAbstractLength = 50
	defaultWorkers           = 4
	minYear                  = 1900
)

// now returns the current time. Tests override it to pin the year window.
var now = time.Now

// recordNamespace seeds the SHA-1 UUIDs used as record identifiers.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/pdiddy/bibclean/record"))

// Extractor turns result-page HTML into ExtractedRecords.
type Extractor struct {
	minAbstract int
	workers     int
}

// New returns an Extractor configured by cfg. Zero values select defaults.
func New(cfg types.ExtractConfig) *Extractor {
	e := &Extractor{
		minAbstract: cfg.MinAbstractLength,
		workers:     cfg.Workers,
	}
	if e.minAbstract <= 0 {
		e.minAbstract = defaultMinAbstractLength
	}
	if e.workers <= 0 {
		e.workers = defaultWorkers
	}
	return e
}

// Parse extracts records from doc using the default configuration.
func Parse(doc string) []types.ExtractedRecord {
	return New(types.ExtractConfig{}).Parse(doc)
}

// Parse extracts one record per recognizable result block in doc, in
// document order. Blocks without a title or without at least one author
// are skipped. Unparsable input yields an empty slice.
func (e *Extractor) Parse(doc string) []types.ExtractedRecord {
	return e.parse(doc, "")
}

// ParseAll parses several independent documents concurrently and returns
// their records concatenated in document order, then block order. Fields
// match calling Parse on each document in sequence; IDs also encode the
// document index so identical pages yield distinct records.
func (e *Extractor) ParseAll(ctx context.Context, docs []string) ([]types.ExtractedRecord, error) {
	parsed := make([][]types.ExtractedRecord, len(docs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			parsed[i] = e.parse(doc, fmt.Sprintf("doc%d", i))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parsing documents: %w", err)
	}

	var all []types.ExtractedRecord
	for _, recs := range parsed {
		all = append(all, recs...)
	}
	return all, nil
}

func (e *Extractor) parse(doc, docKey string) []types.ExtractedRecord {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return []types.ExtractedRecord{}
	}

	records := []types.ExtractedRecord{}
	for i, block := range findBlocks(root) {
		rec, ok := e.parseBlock(block)
		if !ok {
			continue
		}
		rec.ID = recordID(docKey, i, rec)
		records = append(records, rec)
	}
	return records
}

// parseBlock assembles a record from one result block. It reports false
// when the block lacks a title or an author.
func (e *Extractor) parseBlock(block *html.Node) (types.ExtractedRecord, bool) {
	titleNode := findFirst(block, isTitleNode)
	if titleNode == nil {
		return types.ExtractedRecord{}, false
	}
	title, href := titleAndLink(titleNode)
	if title == "" {
		return types.ExtractedRecord{}, false
	}

	var line string
	if n := findFirst(block, isAuthorLineNode); n != nil {
		line = spacedText(n)
	}
	authors := parseAuthors(line)
	if len(authors) == 0 {
		return types.ExtractedRecord{}, false
	}

	rec := types.ExtractedRecord{
		Title:   title,
		Authors: authors,
		Journal: parseJournal(line),
		Year:    parseYear(line, now().Year()+1),
	}

	blockText := spacedText(block)
	if n, ok := parseCitations(blockText); ok {
		rec.Citations = types.IntPtr(n)
	}
	rec.DOI = findDOI(links(block), blockText)

	if n := findFirst(block, isAbstractNode); n != nil {
		rec.Abstract = cleanAbstract(spacedText(n), e.minAbstract)
	}

	if href == "" {
		href = firstLink(block)
	}
	rec.URL = ResolveURL(href)

	rec.Confidence = Confidence(rec)
	rec.RelevanceScore = Relevance(rec)
	return rec, true
}

// recordID derives a stable identifier from the block position and the
// record's identifying fields.
func recordID(docKey string, ordinal int, rec types.ExtractedRecord) string {
	key := fmt.Sprintf("%s\x00%d\x00%s\x00%s", docKey, ordinal, rec.Title, strings.Join(rec.Authors, ";"))
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}
