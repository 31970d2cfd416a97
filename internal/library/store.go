// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library persists deduplicated records in a SQLite database and
// searches them by title and abstract. It lives outside the extraction and
// dedup core; the CLI fills it from dedup output.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/bibclean/internal/dedup"
	"github.com/pdiddy/bibclean/pkg/types"
)

const (
	dbFile            = "library.db"
	defaultMaxResults = 20
)

// now is replaced in tests for stable timestamps.
var now = time.Now

// Store manages the record library database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
	fts        bool
	log        *zap.Logger
}

// NewStore opens or creates dir/library.db and its schema. Full-text
// search uses FTS5 when the SQLite build provides it and falls back to
// substring matching otherwise.
func NewStore(cfg types.LibraryConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{
		db:         db,
		dir:        cfg.Dir,
		maxResults: maxResults,
		log:        log.With(zap.String("db", dbPath)),
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// FullText reports whether searches use the FTS5 index.
func (s *Store) FullText() bool {
	return s.fts
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			authors TEXT NOT NULL,
			journal TEXT,
			year INTEGER,
			doi TEXT,
			doi_key TEXT,
			url TEXT,
			abstract TEXT,
			citations INTEGER,
			confidence REAL,
			relevance REAL,
			source TEXT,
			merged_from TEXT,
			merge_confidence REAL,
			added_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_doi_key ON records(doi_key)`,
		`CREATE INDEX IF NOT EXISTS idx_records_year ON records(year)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='records_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	if _, err := s.db.Exec(
		`CREATE VIRTUAL TABLE records_fts USING fts5(title, abstract, content=records, content_rowid=rowid)`,
	); err != nil {
		s.log.Warn("full-text index unavailable, using substring search", zap.Error(err))
		return nil
	}
	triggers := []string{
		`CREATE TRIGGER records_ai AFTER INSERT ON records BEGIN
			INSERT INTO records_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
		END`,
		`CREATE TRIGGER records_ad AFTER DELETE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
		END`,
		`CREATE TRIGGER records_au AFTER UPDATE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			INSERT INTO records_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
		END`,
	}
	for _, stmt := range triggers {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	s.fts = true
	return nil
}

// AddSummary holds counts from one Add call.
type AddSummary struct {
	Added   int `json:"added" yaml:"added"`
	Updated int `json:"updated" yaml:"updated"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Total returns the number of records processed.
func (s AddSummary) Total() int {
	return s.Added + s.Updated + s.Skipped
}

// Add stores results in one transaction. A result whose ID is already in
// the library replaces it. A result sharing a DOI with a stored record
// under another ID replaces that record only when it is preferred as
// primary (higher confidence); otherwise it is skipped.
func (s *Store) Add(ctx context.Context, results []types.MergedResult) (AddSummary, error) {
	var summary AddSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range results {
		action, err := s.addOne(ctx, tx, r)
		if err != nil {
			return AddSummary{}, fmt.Errorf("adding record %s: %w", r.ID, err)
		}
		s.log.Debug("library record", zap.String("id", r.ID), zap.String("action", action))
		switch action {
		case "added":
			summary.Added++
		case "updated":
			summary.Updated++
		default:
			summary.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return AddSummary{}, fmt.Errorf("committing records: %w", err)
	}
	s.log.Info("library updated",
		zap.Int("added", summary.Added),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

func (s *Store) addOne(ctx context.Context, tx *sql.Tx, r types.MergedResult) (string, error) {
	if r.ID == "" {
		return "", fmt.Errorf("record %q has no id", r.Title)
	}
	doiKey := dedup.NormalizeDOI(r.DOI)

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM records WHERE id = ?`, r.ID).Scan(&exists); err != nil {
		return "", fmt.Errorf("looking up id: %w", err)
	}
	action := "added"
	if exists > 0 {
		action = "updated"
	} else if doiKey != "" {
		var (
			otherID   string
			otherConf float64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, confidence FROM records WHERE doi_key = ? ORDER BY rowid LIMIT 1`, doiKey,
		).Scan(&otherID, &otherConf)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return "", fmt.Errorf("looking up doi: %w", err)
		case r.Confidence > otherConf:
			if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, otherID); err != nil {
				return "", fmt.Errorf("replacing %s: %w", otherID, err)
			}
			action = "updated"
		default:
			return "skipped", nil
		}
	}

	authorsJSON, err := json.Marshal(r.Authors)
	if err != nil {
		return "", fmt.Errorf("encoding authors: %w", err)
	}
	mergedJSON, err := json.Marshal(r.MergedFrom)
	if err != nil {
		return "", fmt.Errorf("encoding provenance: %w", err)
	}
	var citations sql.NullInt64
	if r.HasCitations() {
		citations = sql.NullInt64{Int64: int64(r.CitationCount()), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (id, title, authors, journal, year, doi, doi_key, url, abstract,
			citations, confidence, relevance, source, merged_from, merge_confidence, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, journal=excluded.journal,
			year=excluded.year, doi=excluded.doi, doi_key=excluded.doi_key, url=excluded.url,
			abstract=excluded.abstract, citations=excluded.citations,
			confidence=excluded.confidence, relevance=excluded.relevance,
			source=excluded.source, merged_from=excluded.merged_from,
			merge_confidence=excluded.merge_confidence`,
		r.ID, r.Title, string(authorsJSON), r.Journal, r.Year, r.DOI, doiKey, r.URL, r.Abstract,
		citations, r.Confidence, r.RelevanceScore, r.Source, string(mergedJSON), r.MergeConfidence,
		now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("upserting record: %w", err)
	}
	return action, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// ftsQuery turns free text into an FTS5 query that ANDs quoted terms, so
// user punctuation is never read as FTS syntax.
func ftsQuery(text string) string {
	terms := strings.Fields(text)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
