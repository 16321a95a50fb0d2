// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"time"

	"github.com/pdiddy/research-assistant/internal/metrics"
)

// instrumented records call counts and latency for one pipeline stage.
type instrumented struct {
	Provider
	stage string
}

// WithMetrics wraps p so each Generate call is counted under stage.
func WithMetrics(p Provider, stage string) Provider {
	return &instrumented{Provider: p, stage: stage}
}

func (p *instrumented) Generate(ctx context.Context, msgs []Message, opts Options) (string, error) {
	start := time.Now()
	out, err := p.Provider.Generate(ctx, msgs, opts)
	metrics.ModelLatency.WithLabelValues(p.stage).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ModelCalls.WithLabelValues(p.stage, status).Inc()
	return out, err
}
