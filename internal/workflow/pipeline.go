// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow runs a research topic end to end: validation, cache
// lookup, the research loop, summarization, and report output, wired as
// a graph of nodes over one ResearchState.
package workflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/cache"
	"github.com/pdiddy/research-assistant/internal/export"
	"github.com/pdiddy/research-assistant/internal/guardrails"
	"github.com/pdiddy/research-assistant/internal/metrics"
	"github.com/pdiddy/research-assistant/internal/research"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Node names.
const (
	NodeValidate     = "validate"
	NodeCacheCheck   = "cache_check"
	NodeResearch     = "research"
	NodeQualityCheck = "quality_check"
	NodeSummary      = "summary"
	NodeOutput       = "output"
)

// Summarizer turns accumulated findings into a Summary.
type Summarizer interface {
	Summarize(ctx context.Context, topic string, findings []types.Finding) (types.Summary, error)
}

// History persists queries and their summaries.
type History interface {
	SaveQuery(ctx context.Context, query, sessionID string) (int64, error)
	SaveSummary(ctx context.Context, queryID int64, sum types.Summary) error
}

// Pipeline runs research topics through the workflow graph. History,
// Cache, Exporter, Log, and Progress are optional.
type Pipeline struct {
	Research   *research.Controller
	Summarizer Summarizer

	History History
	Cache   cache.Cache

	// CacheResults is the number of similar past findings looked up per run.
	CacheResults int

	Exporter     *export.Exporter
	ExportFormat types.ExportFormat

	// SessionID is stamped on every run and its saved query.
	SessionID string

	Log      *zap.Logger
	Progress io.Writer
}

// NewPipeline returns a Pipeline around c and s. c is not modified, so
// one controller may back several pipelines.
func NewPipeline(c *research.Controller, s Summarizer) *Pipeline {
	return &Pipeline{
		Research:     c,
		Summarizer:   s,
		CacheResults: cache.DefaultMaxResults,
	}
}

// Graph builds the workflow graph over p's components.
func (p *Pipeline) Graph() *Graph[*types.ResearchState] {
	g := NewGraph[*types.ResearchState](p.log())

	g.AddNode(NodeValidate, p.validate)
	g.AddNode(NodeCacheCheck, p.cacheCheck)
	g.AddNode(NodeResearch, p.research)
	g.AddNode(NodeQualityCheck, p.qualityCheck)
	g.AddNode(NodeSummary, p.summarize)
	g.AddNode(NodeOutput, p.output)

	g.SetEntryPoint(NodeValidate)
	g.AddConditionalEdges(NodeValidate, routeAfterValidate, map[string]string{
		"reject":   NodeOutput,
		"continue": NodeCacheCheck,
	})
	g.AddEdge(NodeCacheCheck, NodeResearch)
	g.AddEdge(NodeResearch, NodeQualityCheck)
	g.AddConditionalEdges(NodeQualityCheck, routeAfterQuality, map[string]string{
		"research":  NodeResearch,
		"summarize": NodeSummary,
	})
	g.AddEdge(NodeSummary, NodeOutput)
	g.AddEdge(NodeOutput, End)
	return g
}

func routeAfterValidate(st *types.ResearchState) string {
	if st.Error != "" {
		return "reject"
	}
	return "continue"
}

func routeAfterQuality(st *types.ResearchState) string {
	if st.Error != "" || st.ResearchComplete {
		return "summarize"
	}
	return "research"
}

// maxSteps allows every loop pass plus the fixed nodes, with one spare.
func (p *Pipeline) maxSteps() int {
	return 2*p.Research.Loop.MaxIterations + 5
}

// Run researches query on thread threadID. An empty threadID gets a fresh
// one. Rejected topics return a state with Error set and a nil error; a
// failed model call or cancelled context returns the partial state and
// the error.
func (p *Pipeline) Run(ctx context.Context, query, threadID string) (*types.ResearchState, error) {
	if threadID == "" {
		threadID = uuid.NewString()
	}
	st := types.NewResearchState(query)
	st.ThreadID = threadID
	st.SessionID = p.SessionID

	p.progress("research topic: %s\n", query)
	p.log().Info("research run started", zap.String("thread_id", threadID), zap.String("query", query))

	start := time.Now()
	final, err := p.Graph().Execute(ctx, st, p.maxSteps())
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	status := "completed"
	switch {
	case err != nil:
		status = "failed"
		final.Error = fmt.Sprintf("research failed: %v", err)
		final.ExecutiveSummary = "Error: " + final.Error
		final.ResearchComplete = true
	case final.Error != "":
		status = "rejected"
	}
	metrics.RunsTotal.WithLabelValues(status).Inc()
	metrics.RunIterations.Observe(float64(final.IterationCount))
	metrics.RunFindings.Observe(float64(len(final.Findings)))

	p.log().Info("research run finished",
		zap.String("thread_id", threadID),
		zap.String("status", status),
		zap.Int("iterations", final.IterationCount),
		zap.Int("findings", len(final.Findings)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err != nil {
		return final, fmt.Errorf("research run: %w", err)
	}
	return final, nil
}

func (p *Pipeline) validate(ctx context.Context, st *types.ResearchState) (*types.ResearchState, error) {
	ok, msg := guardrails.Validate(st.Query)
	if !ok {
		p.progress("validation failed: %s\n", msg)
		st.Error = msg
		st.ResearchComplete = true
		return st, nil
	}

	if p.History != nil {
		id, err := p.History.SaveQuery(ctx, st.Query, st.SessionID)
		if err != nil {
			p.log().Warn("saving query failed", zap.Error(err))
		} else {
			st.QueryID = id
		}
	}
	p.progress("query validated (id %d)\n", st.QueryID)
	return st, nil
}

func (p *Pipeline) cacheCheck(ctx context.Context, st *types.ResearchState) (*types.ResearchState, error) {
	st.CachedFindings = cache.Lookup(ctx, p.Cache, st.Query, p.CacheResults, p.log())
	if len(st.CachedFindings) > 0 {
		p.progress("found %d cached findings from similar research\n", len(st.CachedFindings))
	}
	return st, nil
}

func (p *Pipeline) research(ctx context.Context, st *types.ResearchState) (*types.ResearchState, error) {
	if err := p.Research.Step(ctx, st); err != nil {
		return st, err
	}
	return st, nil
}

func (p *Pipeline) qualityCheck(_ context.Context, st *types.ResearchState) (*types.ResearchState, error) {
	_, msg := guardrails.CheckFindings(st.Findings)
	p.progress("  %s\n", msg)

	st.ResearchComplete = !p.Research.ShouldContinue(st)
	if st.ResearchComplete {
		p.progress("research sufficient (%d findings)\n", len(st.Findings))
	} else {
		p.progress("more research needed (iteration %d)\n", st.IterationCount)
	}
	return st, nil
}

func (p *Pipeline) summarize(ctx context.Context, st *types.ResearchState) (*types.ResearchState, error) {
	sum, err := p.Summarizer.Summarize(ctx, st.Query, st.Findings)
	if err != nil {
		return st, fmt.Errorf("summarizing: %w", err)
	}

	sum.ExecutiveSummary = guardrails.Sanitize(sum.ExecutiveSummary)
	for i, in := range sum.KeyInsights {
		sum.KeyInsights[i] = guardrails.Sanitize(in)
	}
	st.ApplySummary(sum)
	p.progress("summary created with %d insights\n", len(sum.KeyInsights))

	if p.History != nil && st.QueryID != 0 {
		if err := p.History.SaveSummary(ctx, st.QueryID, sum); err != nil {
			p.log().Warn("saving summary failed", zap.Int64("query_id", st.QueryID), zap.Error(err))
		}
	}
	return st, nil
}

func (p *Pipeline) output(_ context.Context, st *types.ResearchState) (*types.ResearchState, error) {
	if st.Error != "" {
		st.ExecutiveSummary = "Error: " + st.Error
		st.KeyInsights = []string{}
		return st, nil
	}
	if p.Exporter == nil || p.ExportFormat == "" || st.ExecutiveSummary == "" {
		return st, nil
	}

	paths, err := p.Exporter.Export(p.ExportFormat, export.ReportFromState(st))
	if err != nil {
		p.log().Warn("exporting report failed", zap.Error(err))
		return st, nil
	}
	st.OutputFile = paths[0]
	p.progress("report saved to %s\n", st.OutputFile)
	return st, nil
}

// Close releases the cache connection when the cache holds one.
func (p *Pipeline) Close() error {
	if c, ok := p.Cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing cache: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) log() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func (p *Pipeline) progress(format string, args ...any) {
	if p.Progress != nil {
		fmt.Fprintf(p.Progress, format, args...)
	}
}
