// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists research history in SQLite: queries, their
// findings and summaries, and interactive sessions.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// DefaultPath is the database file used when StoreConfig.Path is empty.
const DefaultPath = "research_history.db"

// SearchLimit caps the rows returned by SearchPast.
const SearchLimit = 20

// similarScan bounds how many past queries SimilarFindings scores.
const similarScan = 200

// ErrNotFound is returned when a query ID has no row.
var ErrNotFound = errors.New("query not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// nowFunc is replaced in tests to pin timestamps.
var nowFunc = time.Now

// Store manages the research history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at cfg.Path and creates
// the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
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

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			start_time TEXT NOT NULL,
			end_time TEXT,
			query_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			session_id TEXT,
			status TEXT NOT NULL DEFAULT 'pending'
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query_id INTEGER NOT NULL REFERENCES queries(id),
			title TEXT,
			source TEXT,
			content TEXT,
			relevance TEXT,
			quality_tier TEXT,
			timestamp TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			query_id INTEGER PRIMARY KEY REFERENCES queries(id),
			executive_summary TEXT,
			key_insights TEXT,
			sources TEXT,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_query_id ON findings(query_id)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_session_id ON queries(session_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func timestamp() string {
	return nowFunc().UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SaveQuery inserts a pending query row and returns its ID. A non-empty
// sessionID also bumps that session's query count.
func (s *Store) SaveQuery(ctx context.Context, query, sessionID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO queries (query, timestamp, session_id, status) VALUES (?, ?, ?, ?)`,
		query, timestamp(), sessionID, string(types.StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading query id: %w", err)
	}

	if sessionID != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET query_count = query_count + 1 WHERE id = ?`, sessionID,
		); err != nil {
			return 0, fmt.Errorf("updating session count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing query: %w", err)
	}
	return id, nil
}

// SaveFindings inserts findings for queryID in a single transaction.
func (s *Store) SaveFindings(ctx context.Context, queryID int64, findings []types.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (query_id, title, source, content, relevance, quality_tier, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	ts := timestamp()
	for _, f := range findings {
		if _, err := stmt.ExecContext(ctx,
			queryID, f.Title, f.Source, f.Content, f.Relevance, string(f.QualityTier), ts,
		); err != nil {
			return fmt.Errorf("inserting finding %s: %w", f.Source, err)
		}
	}

	return tx.Commit()
}

// SaveSummary stores the summary for queryID and marks the query completed.
func (s *Store) SaveSummary(ctx context.Context, queryID int64, sum types.Summary) error {
	insights := sum.KeyInsights
	if insights == nil {
		insights = []string{}
	}
	sources := sum.Sources
	if sources == nil {
		sources = []types.SourceRef{}
	}
	insightsJSON, _ := json.Marshal(insights)
	sourcesJSON, _ := json.Marshal(sources)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO summaries (query_id, executive_summary, key_insights, sources, timestamp)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(query_id) DO UPDATE SET
			executive_summary=excluded.executive_summary, key_insights=excluded.key_insights,
			sources=excluded.sources, timestamp=excluded.timestamp`,
		queryID, sum.ExecutiveSummary, string(insightsJSON), string(sourcesJSON), timestamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting summary: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE queries SET status = ? WHERE id = ?`, string(types.StatusCompleted), queryID,
	); err != nil {
		return fmt.Errorf("marking query completed: %w", err)
	}

	return tx.Commit()
}

const historySelect = `SELECT q.id, q.query, q.timestamp, COALESCE(q.session_id, ''), q.status,
		COALESCE(s.executive_summary, ''),
		(SELECT count(*) FROM findings f WHERE f.query_id = q.id)
	FROM queries q
	LEFT JOIN summaries s ON q.id = s.query_id`

func scanRecords(rows *sql.Rows) ([]types.QueryRecord, error) {
	defer rows.Close()

	records := []types.QueryRecord{}
	for rows.Next() {
		var (
			r      types.QueryRecord
			ts     string
			status string
		)
		if err := rows.Scan(&r.ID, &r.Query, &ts, &r.SessionID, &status, &r.ExecutiveSummary, &r.FindingCount); err != nil {
			return nil, fmt.Errorf("scanning query: %w", err)
		}
		r.Timestamp = parseTime(ts)
		r.Status = types.QueryStatus(status)
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecentQueries returns the most recent limit queries, newest first.
func (s *Store) RecentQueries(ctx context.Context, limit int) ([]types.QueryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		historySelect+` ORDER BY q.timestamp DESC, q.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent queries: %w", err)
	}
	return scanRecords(rows)
}

// History returns every stored query, newest first.
func (s *Store) History(ctx context.Context) ([]types.QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		historySelect+` ORDER BY q.timestamp DESC, q.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	return scanRecords(rows)
}

// SearchPast returns queries whose text or executive summary contains
// keyword, newest first, at most SearchLimit rows.
func (s *Store) SearchPast(ctx context.Context, keyword string) ([]types.QueryRecord, error) {
	pattern := "%" + keyword + "%"
	rows, err := s.db.QueryContext(ctx,
		historySelect+` WHERE q.query LIKE ? OR s.executive_summary LIKE ?
		ORDER BY q.timestamp DESC, q.id DESC LIMIT ?`,
		pattern, pattern, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}
	return scanRecords(rows)
}

// QueryWithResults returns the query with its findings and summary.
// The summary is nil when the query never completed.
func (s *Store) QueryWithResults(ctx context.Context, id int64) (*types.QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, historySelect+` WHERE q.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying query %d: %w", id, err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("query %d: %w", id, ErrNotFound)
	}

	findings, err := s.findingsFor(ctx, id, "")
	if err != nil {
		return nil, err
	}

	result := &types.QueryResult{Query: records[0], Findings: findings}

	var summary, insightsJSON, sourcesJSON sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT executive_summary, key_insights, sources FROM summaries WHERE query_id = ?`, id,
	).Scan(&summary, &insightsJSON, &sourcesJSON)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return result, nil
	case err != nil:
		return nil, fmt.Errorf("querying summary %d: %w", id, err)
	}

	sum := &types.Summary{
		ExecutiveSummary: summary.String,
		KeyInsights:      []string{},
		Sources:          []types.SourceRef{},
	}
	if insightsJSON.Valid {
		if err := json.Unmarshal([]byte(insightsJSON.String), &sum.KeyInsights); err != nil {
			return nil, fmt.Errorf("decoding key insights of query %d: %w", id, err)
		}
	}
	if sourcesJSON.Valid {
		if err := json.Unmarshal([]byte(sourcesJSON.String), &sum.Sources); err != nil {
			return nil, fmt.Errorf("decoding sources of query %d: %w", id, err)
		}
	}
	result.Summary = sum
	return result, nil
}

// findingsFor loads the findings of queryID in insertion order. A non-empty
// originalQuery is stamped on each finding.
func (s *Store) findingsFor(ctx context.Context, queryID int64, originalQuery string) ([]types.Finding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(title, ''), COALESCE(source, ''), COALESCE(content, ''),
			COALESCE(relevance, ''), COALESCE(quality_tier, '')
		 FROM findings WHERE query_id = ? ORDER BY id`, queryID)
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}
	defer rows.Close()

	findings := []types.Finding{}
	for rows.Next() {
		var (
			f    types.Finding
			tier string
		)
		if err := rows.Scan(&f.Title, &f.Source, &f.Content, &f.Relevance, &tier); err != nil {
			return nil, fmt.Errorf("scanning finding: %w", err)
		}
		f.QualityTier = types.QualityTier(tier)
		f.OriginalQuery = originalQuery
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// SimilarFindings returns up to n stored findings from past queries that
// share at least one word with query. Queries with more shared words come
// first; ties go to the most recent. Each finding carries the past query
// in OriginalQuery.
func (s *Store) SimilarFindings(ctx context.Context, query string, n int) ([]types.Finding, error) {
	if n <= 0 {
		return []types.Finding{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.query FROM queries q
		 WHERE EXISTS (SELECT 1 FROM findings f WHERE f.query_id = q.id)
		 ORDER BY q.id DESC LIMIT ?`, similarScan)
	if err != nil {
		return nil, fmt.Errorf("querying past queries: %w", err)
	}

	type candidate struct {
		id      int64
		query   string
		overlap int
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.query); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning past query: %w", err)
		}
		if c.overlap = types.KeywordOverlap(query, c.query); c.overlap > 0 {
			candidates = append(candidates, c)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading past queries: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].overlap > candidates[j].overlap
	})

	results := []types.Finding{}
	seen := make(map[string]bool)
	for _, c := range candidates {
		findings, err := s.findingsFor(ctx, c.id, c.query)
		if err != nil {
			return nil, err
		}
		for _, f := range findings {
			if seen[f.Source] {
				continue
			}
			seen[f.Source] = true
			results = append(results, f)
			if len(results) >= n {
				return results, nil
			}
		}
	}
	return results, nil
}

// Statistics aggregates counts over the whole history.
func (s *Store) Statistics(ctx context.Context) (types.Statistics, error) {
	stats := types.Statistics{FindingsByTier: make(map[types.QualityTier]int)}

	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT count(*) FROM queries`, &stats.TotalQueries},
		{`SELECT count(*) FROM queries WHERE status = 'completed'`, &stats.CompletedQueries},
		{`SELECT count(*) FROM findings`, &stats.TotalFindings},
		{`SELECT count(*) FROM summaries`, &stats.TotalSummaries},
		{`SELECT count(*) FROM sessions`, &stats.TotalSessions},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return stats, fmt.Errorf("counting: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(quality_tier, ''), count(*) FROM findings GROUP BY quality_tier`)
	if err != nil {
		return stats, fmt.Errorf("counting tiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			tier string
			n    int
		)
		if err := rows.Scan(&tier, &n); err != nil {
			return stats, fmt.Errorf("scanning tier count: %w", err)
		}
		if tier == "" {
			tier = string(types.TierUnknown)
		}
		stats.FindingsByTier[types.QualityTier(tier)] += n
	}
	return stats, rows.Err()
}

// StartSession records the start of session id. Starting an existing
// session again is a no-op.
func (s *Store) StartSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, start_time) VALUES (?, ?)`, id, timestamp(),
	); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	return nil
}

// EndSession stamps the end time of session id.
func (s *Store) EndSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET end_time = ? WHERE id = ?`, timestamp(), id,
	); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	return nil
}
