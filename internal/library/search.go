// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/bibclean/pkg/types"
)

// QueryOptions holds parameters for library searches.
type QueryOptions struct {
	// Query is free text matched against titles and abstracts. Every
	// term must appear.
	Query string

	// Author keeps records with an author name containing this text.
	Author string

	// YearFrom and YearTo bound the publication year (inclusive); zero
	// leaves that side open.
	YearFrom int
	YearTo   int

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

const recordColumns = `r.id, r.title, r.authors, r.journal, r.year, r.doi, r.url, r.abstract,
	r.citations, r.confidence, r.relevance, r.source, r.merged_from, r.merge_confidence`

// Search returns stored records matching opts. Free-text queries are
// ranked by match quality; filter-only queries are sorted by confidence,
// highest first, then by ID.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]types.MergedResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb       strings.Builder
		args     []any
		useFTS   = s.fts && strings.TrimSpace(opts.Query) != ""
		order    = ` ORDER BY r.confidence DESC, r.id`
		hasQuery = strings.TrimSpace(opts.Query) != ""
	)

	if useFTS {
		qb.WriteString(`SELECT ` + recordColumns + `
			FROM records_fts
			JOIN records r ON r.rowid = records_fts.rowid
			WHERE records_fts MATCH ?`)
		args = append(args, ftsQuery(opts.Query))
		order = ` ORDER BY records_fts.rank, r.id`
	} else {
		qb.WriteString(`SELECT ` + recordColumns + ` FROM records r WHERE 1=1`)
		if hasQuery {
			for _, term := range strings.Fields(strings.ToLower(opts.Query)) {
				qb.WriteString(` AND (lower(r.title) LIKE ? OR lower(coalesce(r.abstract, '')) LIKE ?)`)
				pattern := "%" + term + "%"
				args = append(args, pattern, pattern)
			}
		}
	}

	if opts.Author != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(r.authors) WHERE lower(value) LIKE ?)`)
		args = append(args, "%"+strings.ToLower(opts.Author)+"%")
	}
	if opts.YearFrom > 0 {
		qb.WriteString(` AND r.year >= ?`)
		args = append(args, opts.YearFrom)
	}
	if opts.YearTo > 0 {
		qb.WriteString(` AND r.year > 0 AND r.year <= ?`)
		args = append(args, opts.YearTo)
	}

	qb.WriteString(order)
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying library: %w", err)
	}
	defer rows.Close()

	var results []types.MergedResult
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Get returns the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (types.MergedResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records r WHERE r.id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return types.MergedResult{}, fmt.Errorf("record %s not found", id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (types.MergedResult, error) {
	var (
		r          types.MergedResult
		authors    string
		journal    sql.NullString
		year       sql.NullInt64
		doi        sql.NullString
		url        sql.NullString
		abstract   sql.NullString
		citations  sql.NullInt64
		relevance  sql.NullFloat64
		source     sql.NullString
		mergedFrom sql.NullString
		mergeConf  sql.NullFloat64
	)
	if err := row.Scan(
		&r.ID, &r.Title, &authors, &journal, &year, &doi, &url, &abstract,
		&citations, &r.Confidence, &relevance, &source, &mergedFrom, &mergeConf,
	); err != nil {
		if err == sql.ErrNoRows {
			return r, err
		}
		return r, fmt.Errorf("scanning record: %w", err)
	}

	if err := json.Unmarshal([]byte(authors), &r.Authors); err != nil {
		return r, fmt.Errorf("decoding authors of %s: %w", r.ID, err)
	}
	if mergedFrom.Valid {
		json.Unmarshal([]byte(mergedFrom.String), &r.MergedFrom)
	}
	r.Journal = journal.String
	r.Year = int(year.Int64)
	r.DOI = doi.String
	r.URL = url.String
	r.Abstract = abstract.String
	if citations.Valid {
		r.Citations = types.IntPtr(int(citations.Int64))
	}
	r.RelevanceScore = relevance.Float64
	r.Source = source.String
	r.MergeConfidence = mergeConf.Float64
	return r, nil
}
