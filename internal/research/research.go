// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research runs the iterative research loop: plan queries, search,
// extract findings, merge them into the run state, and decide whether
// another pass is worthwhile.
//
// Findings are identified by their source URL. A ResearchState never holds
// two findings with the same source, and IterationCount grows by exactly one
// per pass up to the configured ceiling.
package research

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/guardrails"
	"github.com/pdiddy/research-assistant/internal/metrics"
	"github.com/pdiddy/research-assistant/internal/search"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Planner generates search queries for a topic.
type Planner interface {
	Plan(ctx context.Context, topic string) ([]string, error)
}

// Extractor turns raw search hits into findings.
type Extractor interface {
	Extract(ctx context.Context, topic string, raw []types.RawResult) ([]types.Finding, error)
}

// FindingsCache receives newly discovered findings for later similarity lookups.
type FindingsCache interface {
	AddFindings(ctx context.Context, query string, findings []types.Finding) error
}

// FindingsRecorder persists newly discovered findings against a saved query.
type FindingsRecorder interface {
	SaveFindings(ctx context.Context, queryID int64, findings []types.Finding) error
}

// StepReport describes what one pass did.
type StepReport struct {
	Iteration     int
	Queries       []string
	RawResults    int
	SearchErrors  int
	Extracted     int
	NewFindings   int
	CachedFolded  int
	TotalFindings int
}

// Controller runs loop passes over a ResearchState. Cache, Recorder, Log,
// Progress, and Observer are optional.
type Controller struct {
	Planner   Planner
	Search    search.Backend
	Extractor Extractor

	Loop            types.LoopConfig
	ResultsPerQuery int

	Cache    FindingsCache
	Recorder FindingsRecorder
	Log      *zap.Logger
	Progress io.Writer

	// Observer is called after every completed pass.
	Observer func(StepReport)
}

// New returns a Controller with the stock loop thresholds.
func New(p Planner, b search.Backend, e Extractor) *Controller {
	return &Controller{
		Planner:         p,
		Search:          b,
		Extractor:       e,
		Loop:            types.DefaultLoopConfig(),
		ResultsPerQuery: search.DefaultResultsPerQuery,
	}
}

// Step runs one research pass and merges its findings into st.
//
// Step does nothing when st already carries an error or has reached the
// iteration ceiling. Planner and extractor failures are returned and leave
// st untouched. Search failures count as empty results. Cache and recorder
// failures are logged and do not fail the pass.
func (c *Controller) Step(ctx context.Context, st *types.ResearchState) error {
	if st.Error != "" {
		return nil
	}
	if st.IterationCount >= c.Loop.MaxIterations {
		c.log().Debug("iteration ceiling reached, skipping pass", zap.Int("iteration", st.IterationCount))
		return nil
	}

	iteration := st.IterationCount + 1
	c.progress("research iteration %d\n", iteration)

	queries, err := c.Planner.Plan(ctx, st.Query)
	if err != nil {
		return fmt.Errorf("planning iteration %d: %w", iteration, err)
	}
	c.progress("  generated %d search queries\n", len(queries))

	out := search.Multi(ctx, c.Search, queries, c.ResultsPerQuery, c.log())
	c.progress("  found %d search results\n", len(out.Results))

	extracted, err := c.Extractor.Extract(ctx, st.Query, out.Results)
	if err != nil {
		return fmt.Errorf("extracting iteration %d: %w", iteration, err)
	}
	c.progress("  extracted %d findings\n", len(extracted))

	seen := make(map[string]bool, len(st.Findings)+len(extracted))
	for _, f := range st.Findings {
		seen[f.Source] = true
	}

	merged := append([]types.Finding(nil), st.Findings...)
	fresh := appendUnseen(&merged, seen, extracted)

	folded := 0
	if st.IterationCount == 0 && len(st.CachedFindings) > 0 {
		folded = len(appendUnseen(&merged, seen, st.CachedFindings))
	}

	st.SearchQueries = queries
	st.Findings = merged
	st.IterationCount = iteration
	st.SourcesConsulted = len(merged)
	c.progress("  total findings: %d\n", len(merged))

	c.remember(ctx, st, fresh)

	metrics.SearchErrors.Add(float64(len(out.BackendErrors)))
	metrics.CachedFindings.Add(float64(folded))

	if c.Observer != nil {
		c.Observer(StepReport{
			Iteration:     iteration,
			Queries:       queries,
			RawResults:    len(out.Results),
			SearchErrors:  len(out.BackendErrors),
			Extracted:     len(extracted),
			NewFindings:   len(fresh),
			CachedFolded:  folded,
			TotalFindings: len(merged),
		})
	}
	return nil
}

// ShouldContinue reports whether another pass should run for st.
func (c *Controller) ShouldContinue(st *types.ResearchState) bool {
	if st.Error != "" {
		return false
	}
	return guardrails.ShouldContinue(st.Findings, st.IterationCount, c.Loop)
}

// Run loops Step and ShouldContinue until the stopping rule says stop, then
// marks st complete.
func (c *Controller) Run(ctx context.Context, st *types.ResearchState) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Step(ctx, st); err != nil {
			return err
		}
		if !c.ShouldContinue(st) {
			st.ResearchComplete = true
			return nil
		}
	}
}

// appendUnseen appends the findings in batch whose source is not in seen,
// annotating quality tiers as it goes. seen grows with every append, so
// duplicates within batch are dropped too. It returns the appended findings.
func appendUnseen(dst *[]types.Finding, seen map[string]bool, batch []types.Finding) []types.Finding {
	var added []types.Finding
	for _, f := range batch {
		if seen[f.Source] {
			continue
		}
		seen[f.Source] = true
		f = guardrails.Annotate(f)
		*dst = append(*dst, f)
		added = append(added, f)
	}
	return added
}

func (c *Controller) remember(ctx context.Context, st *types.ResearchState, fresh []types.Finding) {
	if len(fresh) == 0 {
		return
	}
	if c.Cache != nil {
		if err := c.Cache.AddFindings(ctx, st.Query, fresh); err != nil {
			c.log().Warn("caching findings failed", zap.String("query", st.Query), zap.Error(err))
		}
	}
	if c.Recorder != nil && st.QueryID != 0 {
		if err := c.Recorder.SaveFindings(ctx, st.QueryID, fresh); err != nil {
			c.log().Warn("saving findings failed", zap.Int64("query_id", st.QueryID), zap.Error(err))
		}
	}
}

func (c *Controller) log() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *Controller) progress(format string, args ...any) {
	if c.Progress != nil {
		fmt.Fprintf(c.Progress, format, args...)
	}
}
