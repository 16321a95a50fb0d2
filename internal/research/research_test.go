// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// --- mocks ---

type mockPlanner struct {
	calls int
	err   error
}

func (m *mockPlanner) Plan(_ context.Context, topic string) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []string{topic, topic + " latest news"}, nil
}

type mockBackend struct {
	results []types.RawResult
	err     error
	calls   int
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Search(_ context.Context, _ string, _ int) ([]types.RawResult, error) {
	m.calls++
	return m.results, m.err
}

// scriptedExtractor returns batches[i] on the i-th call.
type scriptedExtractor struct {
	batches [][]types.Finding
	calls   int
	err     error
	inputs  [][]types.RawResult
}

func (m *scriptedExtractor) Extract(_ context.Context, _ string, raw []types.RawResult) ([]types.Finding, error) {
	m.inputs = append(m.inputs, raw)
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls
	m.calls++
	if i < len(m.batches) {
		return m.batches[i], nil
	}
	return []types.Finding{}, nil
}

type mockCache struct {
	added [][]types.Finding
	err   error
}

func (m *mockCache) AddFindings(_ context.Context, _ string, findings []types.Finding) error {
	m.added = append(m.added, findings)
	return m.err
}

type mockRecorder struct {
	saved map[int64][]types.Finding
	err   error
}

func (m *mockRecorder) SaveFindings(_ context.Context, id int64, findings []types.Finding) error {
	if m.saved == nil {
		m.saved = map[int64][]types.Finding{}
	}
	m.saved[id] = append(m.saved[id], findings...)
	return m.err
}

func f(source string) types.Finding {
	return types.Finding{Source: source, Title: "t " + source, Content: "c"}
}

func newController(t *testing.T, ex *scriptedExtractor) (*Controller, *mockPlanner, *mockBackend) {
	p := &mockPlanner{}
	b := &mockBackend{results: []types.RawResult{{Title: "r", Link: "https://r.example", Snippet: "s"}}}
	c := New(p, b, ex)
	c.Log = zaptest.NewLogger(t)
	return c, p, b
}

func sources(fs []types.Finding) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Source
	}
	return out
}

// --- Step ---

func TestStep_MergesAndDeduplicates(t *testing.T) {
	ex := &scriptedExtractor{batches: [][]types.Finding{
		{f("https://a.example"), f("https://b.example"), f("https://a.example")},
		{f("https://b.example"), f("https://c.example")},
	}}
	c, _, _ := newController(t, ex)
	st := types.NewResearchState("topic")

	require.NoError(t, c.Step(context.Background(), st))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, sources(st.Findings))
	assert.Equal(t, 1, st.IterationCount)
	assert.Equal(t, 2, st.SourcesConsulted)
	assert.Equal(t, []string{"topic", "topic latest news"}, st.SearchQueries)

	require.NoError(t, c.Step(context.Background(), st))
	assert.Equal(t, []string{"https://a.example", "https://b.example", "https://c.example"}, sources(st.Findings))
	assert.Equal(t, 2, st.IterationCount)
	assert.Equal(t, 3, st.SourcesConsulted)
}

func TestStep_AnnotatesQualityTier(t *testing.T) {
	ex := &scriptedExtractor{batches: [][]types.Finding{{f("https://www.nature.com/x"), f("https://blog.example")}}}
	c, _, _ := newController(t, ex)
	st := types.NewResearchState("topic")

	require.NoError(t, c.Step(context.Background(), st))
	assert.Equal(t, types.TierHigh, st.Findings[0].QualityTier)
	assert.Equal(t, types.TierLow, st.Findings[1].QualityTier)
}

func TestStep_FoldsCachedFindingsOnFirstIterationOnly(t *testing.T) {
	ex := &scriptedExtractor{batches: [][]types.Finding{
		{f("https://a.example")},
		{f("https://b.example")},
	}}
	c, _, _ := newController(t, ex)
	st := types.NewResearchState("topic")
	cached := f("https://cached.example")
	cached.OriginalQuery = "older topic"
	st.CachedFindings = []types.Finding{f("https://a.example"), cached}

	require.NoError(t, c.Step(context.Background(), st))
	assert.Equal(t, []string{"https://a.example", "https://cached.example"}, sources(st.Findings))
	assert.Equal(t, "older topic", st.Findings[1].OriginalQuery)

	require.NoError(t, c.Step(context.Background(), st))
	assert.Equal(t, []string{"https://a.example", "https://cached.example", "https://b.example"}, sources(st.Findings))
}

func TestStep_CachedFindingsNotCachedOrRecordedAgain(t *testing.T) {
	ex := &scriptedExtractor{batches: [][]types.Finding{{f("https://a.example")}}}
	c, _, _ := newController(t, ex)
	cache := &mockCache{}
	rec := &mockRecorder{}
	c.Cache, c.Recorder = cache, rec

	st := types.NewResearchState("topic")
	st.QueryID = 7
	st.CachedFindings = []types.Finding{f("https://cached.example")}

	require.NoError(t, c.Step(context.Background(), st))
	require.Len(t, cache.added, 1)
	assert.Equal(t, []string{"https://a.example"}, sources(cache.added[0]))
	assert.Equal(t, []string{"https://a.example"}, sources(rec.saved[7]))
}

func TestStep_NoRecordingWithoutQueryID(t *testing.T) {
	ex := &scriptedExtractor{batches: [][]types.Finding{{f("https://a.example")}}}
	c, _, _ := newController(t, ex)
	rec := &mockRecorder{}
	c.Recorder = rec

	require.NoError(t, c.Step(context.Background(), types.NewResearchState("topic")))
	assert.Empty(t, rec.saved)
}

func TestStep_SideEffectFailuresAreNotFatal(t *testing.T) {
	ex := &scriptedExtractor{batches: [][]types.Finding{{f("https://a.example")}}}
	c, _, _ := newController(t, ex)
	c.Cache = &mockCache{err: errors.New("redis down")}
	c.Recorder = &mockRecorder{err: errors.New("disk full")}

	st := types.NewResearchState("topic")
	st.QueryID = 1
	require.NoError(t, c.Step(context.Background(), st))
	assert.Len(t, st.Findings, 1)
}

func TestStep_SkipsWhenErrorSet(t *testing.T) {
	ex := &scriptedExtractor{}
	c, p, _ := newController(t, ex)
	st := types.NewResearchState("topic")
	st.Error = "rejected"

	require.NoError(t, c.Step(context.Background(), st))
	assert.Zero(t, p.calls)
	assert.Zero(t, st.IterationCount)
}

func TestStep_SkipsAtCeiling(t *testing.T) {
	ex := &scriptedExtractor{}
	c, p, _ := newController(t, ex)
	st := types.NewResearchState("topic")
	st.IterationCount = 3

	require.NoError(t, c.Step(context.Background(), st))
	assert.Zero(t, p.calls)
	assert.Equal(t, 3, st.IterationCount)
}

func TestStep_PlannerErrorLeavesStateUntouched(t *testing.T) {
	ex := &scriptedExtractor{}
	c, p, _ := newController(t, ex)
	p.err = errors.New("model unavailable")
	st := types.NewResearchState("topic")

	err := c.Step(context.Background(), st)
	require.Error(t, err)
	assert.ErrorIs(t, err, p.err)
	assert.Zero(t, st.IterationCount)
}

func TestStep_ExtractorErrorPropagates(t *testing.T) {
	ex := &scriptedExtractor{err: errors.New("model unavailable")}
	c, _, _ := newController(t, ex)
	st := types.NewResearchState("topic")

	require.Error(t, c.Step(context.Background(), st))
	assert.Zero(t, st.IterationCount)
}

func TestStep_SearchFailureIsEmptyResults(t *testing.T) {
	ex := &scriptedExtractor{}
	c, _, b := newController(t, ex)
	b.err = errors.New("network unreachable")
	st := types.NewResearchState("topic")

	var report StepReport
	c.Observer = func(r StepReport) { report = r }

	require.NoError(t, c.Step(context.Background(), st))
	assert.Equal(t, 1, st.IterationCount)
	require.Len(t, ex.inputs, 1)
	assert.Empty(t, ex.inputs[0])
	assert.Equal(t, 2, report.SearchErrors)
	assert.Zero(t, report.RawResults)
}

func TestStep_Progress(t *testing.T) {
	ex := &scriptedExtractor{batches: [][]types.Finding{{f("https://a.example")}}}
	c, _, _ := newController(t, ex)
	var buf bytes.Buffer
	c.Progress = &buf

	require.NoError(t, c.Step(context.Background(), types.NewResearchState("topic")))
	assert.Contains(t, buf.String(), "research iteration 1\n")
	assert.Contains(t, buf.String(), "total findings: 1\n")
}

// --- Run ---

func TestRun_ZeroResultsHitsCeiling(t *testing.T) {
	ex := &scriptedExtractor{}
	c, p, b := newController(t, ex)
	b.results = nil
	st := types.NewResearchState("renewable energy trends")

	require.NoError(t, c.Run(context.Background(), st))
	assert.Equal(t, 3, st.IterationCount)
	assert.Equal(t, 3, p.calls)
	assert.Empty(t, st.Findings)
	assert.True(t, st.ResearchComplete)
}

func TestRun_StopsOnceQualityBarMet(t *testing.T) {
	ex := &scriptedExtractor{batches: [][]types.Finding{
		{f("https://blog-one.example"), f("https://blog-two.example")},
		{f("https://www.nasa.gov/report")},
		{f("https://never.example")},
	}}
	c, _, _ := newController(t, ex)
	st := types.NewResearchState("topic")

	require.NoError(t, c.Step(context.Background(), st))
	assert.True(t, c.ShouldContinue(st), "fewer than 3 findings")

	require.NoError(t, c.Step(context.Background(), st))
	assert.False(t, c.ShouldContinue(st), "3 findings with one high-quality source")

	st2 := types.NewResearchState("topic")
	ex2 := &scriptedExtractor{batches: ex.batches}
	c.Extractor = ex2
	require.NoError(t, c.Run(context.Background(), st2))
	assert.Equal(t, 2, st2.IterationCount)
	assert.Len(t, st2.Findings, 3)
}

func TestRun_NeverExceedsCeiling(t *testing.T) {
	ex := &scriptedExtractor{}
	c, _, _ := newController(t, ex)
	c.Loop.MaxIterations = 2
	st := types.NewResearchState("topic")

	require.NoError(t, c.Run(context.Background(), st))
	assert.Equal(t, 2, st.IterationCount)

	require.NoError(t, c.Step(context.Background(), st))
	assert.Equal(t, 2, st.IterationCount)
}

func TestRun_CancelledContext(t *testing.T) {
	ex := &scriptedExtractor{}
	c, p, _ := newController(t, ex)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, types.NewResearchState("topic"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.calls)
}

func TestShouldContinue_FalseOnError(t *testing.T) {
	c, _, _ := newController(t, &scriptedExtractor{})
	st := types.NewResearchState("topic")
	st.Error = "rejected"
	assert.False(t, c.ShouldContinue(st))
}

func TestFindingsNeverShareSource(t *testing.T) {
	dup := []types.Finding{f("https://x"), f("https://y"), f("https://x"), f("")}
	ex := &scriptedExtractor{batches: [][]types.Finding{dup, dup, dup}}
	c, _, _ := newController(t, ex)
	st := types.NewResearchState("topic")
	st.CachedFindings = dup

	require.NoError(t, c.Run(context.Background(), st))

	seen := map[string]bool{}
	for _, fd := range st.Findings {
		assert.False(t, seen[fd.Source], "duplicate source %q", fd.Source)
		seen[fd.Source] = true
	}
}
