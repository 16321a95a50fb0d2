// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{Path: filepath.Join(t.TempDir(), "history", "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func pinClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = orig })
}

func sampleFindings() []types.Finding {
	return []types.Finding{
		{Source: "https://nature.com/a", Title: "A", Content: "fact a", Relevance: "core", QualityTier: types.TierHigh},
		{Source: "https://example.com/b", Title: "B", Content: "fact b", Relevance: "context", QualityTier: types.TierUnknown},
	}
}

// --- tests ---

func TestNewStore_CreatesDirectoryAndSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "h.db")
	s, err := NewStore(types.StoreConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)

	// Reopening an existing database keeps the schema idempotent.
	s2, err := NewStore(types.StoreConfig{Path: path})
	require.NoError(t, err)
	s2.Close()
}

func TestSaveQuery_AssignsIncreasingIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id1, err := s.SaveQuery(ctx, "quantum computing", "")
	require.NoError(t, err)
	id2, err := s.SaveQuery(ctx, "fusion energy", "")
	require.NoError(t, err)

	assert.Greater(t, id2, id1)

	res, err := s.QueryWithResults(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "quantum computing", res.Query.Query)
	assert.Equal(t, types.StatusPending, res.Query.Status)
	assert.Nil(t, res.Summary)
	assert.Empty(t, res.Findings)
}

func TestSaveFindingsAndSummary_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	pinClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	id, err := s.SaveQuery(ctx, "gene therapy", "sess-1")
	require.NoError(t, err)
	require.NoError(t, s.SaveFindings(ctx, id, sampleFindings()))
	require.NoError(t, s.SaveSummary(ctx, id, types.Summary{
		ExecutiveSummary: "Gene therapy is advancing.",
		KeyInsights:      []string{"one", "two"},
		Sources:          []types.SourceRef{{Title: "A", URL: "https://nature.com/a"}},
	}))

	res, err := s.QueryWithResults(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, res.Query.Status)
	assert.Equal(t, "sess-1", res.Query.SessionID)
	assert.Equal(t, 2, res.Query.FindingCount)
	assert.True(t, res.Query.Timestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	require.Len(t, res.Findings, 2)
	assert.Equal(t, "https://nature.com/a", res.Findings[0].Source)
	assert.Equal(t, types.TierHigh, res.Findings[0].QualityTier)
	assert.Empty(t, res.Findings[0].OriginalQuery)

	require.NotNil(t, res.Summary)
	assert.Equal(t, "Gene therapy is advancing.", res.Summary.ExecutiveSummary)
	assert.Equal(t, []string{"one", "two"}, res.Summary.KeyInsights)
	assert.Equal(t, "https://nature.com/a", res.Summary.Sources[0].URL)
}

func TestSaveSummary_Overwrites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.SaveQuery(ctx, "topic", "")
	require.NoError(t, err)
	require.NoError(t, s.SaveSummary(ctx, id, types.Summary{ExecutiveSummary: "first"}))
	require.NoError(t, s.SaveSummary(ctx, id, types.Summary{ExecutiveSummary: "second"}))

	res, err := s.QueryWithResults(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "second", res.Summary.ExecutiveSummary)
	assert.Empty(t, res.Summary.KeyInsights)

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSummaries)
}

func TestQueryWithResults_CorruptSummaryJSON(t *testing.T) {
	tests := []struct {
		name   string
		column string
		want   string
	}{
		{"insights", "key_insights", "decoding key insights"},
		{"sources", "sources", "decoding sources"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			ctx := context.Background()

			id, err := s.SaveQuery(ctx, "lithium mining", "")
			require.NoError(t, err)
			require.NoError(t, s.SaveSummary(ctx, id, types.Summary{ExecutiveSummary: "x", KeyInsights: []string{"a"}}))
			_, err = s.db.ExecContext(ctx, `UPDATE summaries SET `+tt.column+` = '{not json' WHERE query_id = ?`, id)
			require.NoError(t, err)

			_, err = s.QueryWithResults(ctx, id)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveFindings_EmptyIsNoop(t *testing.T) {
	s := testStore(t)
	assert.NoError(t, s.SaveFindings(context.Background(), 42, nil))
}

func TestQueryWithResults_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.QueryWithResults(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecentQueries_NewestFirstWithLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, q := range []string{"first", "second", "third"} {
		pinClock(t, base.Add(time.Duration(i)*time.Hour))
		_, err := s.SaveQuery(ctx, q, "")
		require.NoError(t, err)
	}

	recent, err := s.RecentQueries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Query)
	assert.Equal(t, "second", recent[1].Query)

	all, err := s.History(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSearchPast_MatchesQueryAndSummary(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id1, _ := s.SaveQuery(ctx, "solar panels efficiency", "")
	id2, _ := s.SaveQuery(ctx, "wind turbines", "")
	_, _ = s.SaveQuery(ctx, "ocean currents", "")
	require.NoError(t, s.SaveSummary(ctx, id2, types.Summary{ExecutiveSummary: "Turbines compete with solar farms."}))

	got, err := s.SearchPast(ctx, "solar")
	require.NoError(t, err)
	require.Len(t, got, 2)

	ids := []int64{got[0].ID, got[1].ID}
	assert.ElementsMatch(t, []int64{id1, id2}, ids)

	none, err := s.SearchPast(ctx, "volcano")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSimilarFindings_KeywordOverlap(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id1, _ := s.SaveQuery(ctx, "quantum computing hardware", "")
	require.NoError(t, s.SaveFindings(ctx, id1, []types.Finding{
		{Source: "https://a.edu/1", Title: "Q1", Content: "qubits"},
	}))
	id2, _ := s.SaveQuery(ctx, "quantum computing error correction", "")
	require.NoError(t, s.SaveFindings(ctx, id2, []types.Finding{
		{Source: "https://b.edu/1", Title: "Q2", Content: "surface codes"},
		{Source: "https://a.edu/1", Title: "dup", Content: "dup"},
	}))
	id3, _ := s.SaveQuery(ctx, "baking bread", "")
	require.NoError(t, s.SaveFindings(ctx, id3, []types.Finding{
		{Source: "https://bread.com", Title: "B", Content: "yeast"},
	}))

	got, err := s.SimilarFindings(ctx, "Quantum Error Correction", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// The query sharing three words ranks first.
	assert.Equal(t, "https://b.edu/1", got[0].Source)
	assert.Equal(t, "quantum computing error correction", got[0].OriginalQuery)
	assert.Equal(t, "https://a.edu/1", got[1].Source)

	limited, err := s.SimilarFindings(ctx, "quantum", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.SimilarFindings(ctx, "astronomy", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSessions_CountQueries(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.StartSession(ctx, "sess-a"))
	require.NoError(t, s.StartSession(ctx, "sess-a"))
	_, err := s.SaveQuery(ctx, "one", "sess-a")
	require.NoError(t, err)
	_, err = s.SaveQuery(ctx, "two", "sess-a")
	require.NoError(t, err)
	require.NoError(t, s.EndSession(ctx, "sess-a"))

	var count int
	var end string
	require.NoError(t, s.db.QueryRow(
		`SELECT query_count, end_time FROM sessions WHERE id = ?`, "sess-a",
	).Scan(&count, &end))
	assert.Equal(t, 2, count)
	assert.NotEmpty(t, end)
}

func TestStatistics(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.StartSession(ctx, "s1"))
	id, _ := s.SaveQuery(ctx, "topic", "s1")
	_, _ = s.SaveQuery(ctx, "other", "s1")
	require.NoError(t, s.SaveFindings(ctx, id, append(sampleFindings(),
		types.Finding{Source: "https://x.org", QualityTier: types.TierHigh})))
	require.NoError(t, s.SaveSummary(ctx, id, types.Summary{ExecutiveSummary: "done"}))

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalQueries)
	assert.Equal(t, 1, stats.CompletedQueries)
	assert.Equal(t, 3, stats.TotalFindings)
	assert.Equal(t, 1, stats.TotalSummaries)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 2, stats.FindingsByTier[types.TierHigh])
	assert.Equal(t, 1, stats.FindingsByTier[types.TierUnknown])
}

func TestExportCSV(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, _ := s.SaveQuery(ctx, "csv, with comma", "")
	require.NoError(t, s.SaveSummary(ctx, id, types.Summary{
		ExecutiveSummary: "summary",
		KeyInsights:      []string{"i1", "i2"},
	}))
	_, _ = s.SaveQuery(ctx, "pending one", "")

	path := filepath.Join(t.TempDir(), "history.csv")
	n, err := s.ExportCSV(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Query", "Timestamp", "Status", "Executive Summary", "Key Insights"}, rows[0])
	assert.Equal(t, "pending one", rows[1][1])
	assert.Equal(t, "csv, with comma", rows[2][1])
	assert.Equal(t, "completed", rows[2][3])
	assert.Equal(t, "i1 | i2", rows[2][5])
}

func TestExportText(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, _ := s.SaveQuery(ctx, "text export", "")
	require.NoError(t, s.SaveSummary(ctx, id, types.Summary{
		ExecutiveSummary: "the summary",
		KeyInsights:      []string{"alpha"},
	}))

	path := filepath.Join(t.TempDir(), "history.txt")
	n, err := s.ExportText(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "RESEARCH HISTORY EXPORT")
	assert.Contains(t, out, "Total Records: 1")
	assert.Contains(t, out, "Query: text export")
	assert.Contains(t, out, "EXECUTIVE SUMMARY:\nthe summary")
	assert.Contains(t, out, "KEY INSIGHTS:\n1. alpha")
}

func TestWriteText_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, nil))
	assert.True(t, strings.Contains(buf.String(), "Total Records: 0"))
}

// --- error paths ---

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{db: db}, mock
}

func TestSaveQuery_InsertError(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO queries").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.SaveQuery(context.Background(), "q", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting query")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFindings_PrepareError(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO findings").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err := s.SaveFindings(context.Background(), 1, sampleFindings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preparing insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFindings_ExecErrorRollsBack(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO findings")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err := s.SaveFindings(context.Background(), 1, sampleFindings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://example.com/b")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSummary_StatusUpdateError(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO summaries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE queries SET status").WillReturnError(errors.New("busy"))
	mock.ExpectRollback()

	err := s.SaveSummary(context.Background(), 1, types.Summary{ExecutiveSummary: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marking query completed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatistics_QueryError(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectQuery("SELECT count").WillReturnError(errors.New("gone"))

	_, err := s.Statistics(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
