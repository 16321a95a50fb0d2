// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/cache"
	"github.com/pdiddy/research-assistant/internal/export"
	"github.com/pdiddy/research-assistant/internal/extract"
	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/planner"
	"github.com/pdiddy/research-assistant/internal/research"
	"github.com/pdiddy/research-assistant/internal/search"
	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/internal/summary"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Build assembles a Pipeline from cfg. st may be nil when persistence is
// disabled; it then backs neither history nor the sqlite cache.
func Build(ctx context.Context, cfg types.PipelineConfig, st *store.Store, log *zap.Logger, progress io.Writer) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("creating model provider: %w", err)
	}
	backend, err := search.NewBackend(cfg.Search, log)
	if err != nil {
		return nil, fmt.Errorf("creating search backend: %w", err)
	}
	c, err := cache.New(ctx, cfg.Cache, st, log)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	opts := researchOptions(cfg.LLM)

	pl := planner.New(llm.WithMetrics(provider, "plan"))
	pl.Options = opts
	if cfg.Loop.MaxSearchQueries > 0 {
		pl.MaxQueries = cfg.Loop.MaxSearchQueries
	}

	ex := extract.New(llm.WithMetrics(provider, "extract"))
	ex.Options = opts

	sm := summary.New(llm.WithMetrics(provider, "summary"))
	if cfg.LLM.SummaryTemperature > 0 {
		sm.Options.Temperature = cfg.LLM.SummaryTemperature
	}
	if cfg.LLM.MaxTokens > 0 {
		sm.Options.MaxTokens = cfg.LLM.MaxTokens
	}

	ctrl := newController(pl, backend, ex, cfg)
	ctrl.Cache = c
	ctrl.Log = log
	ctrl.Progress = progress

	p := NewPipeline(ctrl, sm)
	p.Cache = c
	if cfg.Cache.MaxResults > 0 {
		p.CacheResults = cfg.Cache.MaxResults
	}
	if st != nil {
		ctrl.Recorder = st
		p.History = st
	}
	p.Exporter = export.New(cfg.Export.OutputDir)
	p.ExportFormat = cfg.Export.AutoFormat
	p.Log = log
	p.Progress = progress

	log.Debug("pipeline built",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("search", backend.Name()),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("history", st != nil),
	)
	return p, nil
}

func researchOptions(cfg types.LLMConfig) llm.Options {
	opts := llm.Options{Temperature: 0.3, MaxTokens: llm.DefaultMaxTokens}
	if cfg.Temperature > 0 {
		opts.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		opts.MaxTokens = cfg.MaxTokens
	}
	return opts
}

func newController(pl research.Planner, b search.Backend, ex research.Extractor, cfg types.PipelineConfig) *research.Controller {
	ctrl := research.New(pl, b, ex)
	if cfg.Loop.MaxIterations > 0 {
		ctrl.Loop = cfg.Loop
	}
	if cfg.Search.ResultsPerQuery > 0 {
		ctrl.ResultsPerQuery = cfg.Search.ResultsPerQuery
	}
	return ctrl
}
