// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// End is the pseudo-node that terminates a graph run.
const End = "__END__"

// ErrMaxSteps is returned when a run has not reached End after the
// allowed number of node executions.
var ErrMaxSteps = errors.New("workflow exceeded max steps")

// NodeFunc transforms the state at one node.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// Router picks the outgoing route key of a conditional edge.
type Router[S any] func(state S) string

type edge[S any] struct {
	to     string
	router Router[S]
	routes map[string]string
}

// Graph is a small state machine: named nodes joined by plain or
// conditional edges. A node without an outgoing edge ends the run.
type Graph[S any] struct {
	nodes map[string]NodeFunc[S]
	order []string
	edges map[string]edge[S]
	entry string
	log   *zap.Logger
}

// NewGraph returns an empty graph that logs transitions to log.
func NewGraph[S any](log *zap.Logger) *Graph[S] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Graph[S]{
		nodes: make(map[string]NodeFunc[S]),
		edges: make(map[string]edge[S]),
		log:   log,
	}
}

func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) {
	if _, ok := g.nodes[name]; !ok {
		g.order = append(g.order, name)
	}
	g.nodes[name] = fn
}

func (g *Graph[S]) SetEntryPoint(name string) {
	g.entry = name
}

func (g *Graph[S]) AddEdge(from, to string) {
	g.edges[from] = edge[S]{to: to}
}

// AddConditionalEdges routes from to routes[router(state)] after from runs.
func (g *Graph[S]) AddConditionalEdges(from string, router Router[S], routes map[string]string) {
	g.edges[from] = edge[S]{router: router, routes: routes}
}

// Validate checks that the entry point and every edge target exist.
func (g *Graph[S]) Validate() error {
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("entry point node %q not found", g.entry)
	}
	known := func(name string) bool {
		_, ok := g.nodes[name]
		return ok || name == End
	}
	for from, e := range g.edges {
		if !known(from) {
			return fmt.Errorf("edge from unknown node %q", from)
		}
		if e.router == nil {
			if !known(e.to) {
				return fmt.Errorf("edge %s -> %s targets unknown node", from, e.to)
			}
			continue
		}
		for key, to := range e.routes {
			if !known(to) {
				return fmt.Errorf("route %q from %s targets unknown node %q", key, from, to)
			}
		}
	}
	return nil
}

// Execute runs the graph from the entry point until End, running at most
// maxSteps nodes.
func (g *Graph[S]) Execute(ctx context.Context, state S, maxSteps int) (S, error) {
	current := g.entry
	if _, ok := g.nodes[current]; !ok {
		return state, fmt.Errorf("entry point node %q not found", current)
	}

	for step := 0; step < maxSteps; step++ {
		if current == End {
			return state, nil
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		fn, ok := g.nodes[current]
		if !ok {
			return state, fmt.Errorf("node %q not found in graph definition", current)
		}

		g.log.Debug("executing node", zap.String("node", current), zap.Int("step", step+1))
		next, err := fn(ctx, state)
		if err != nil {
			return state, fmt.Errorf("executing node %q: %w", current, err)
		}
		state = next

		e, ok := g.edges[current]
		switch {
		case !ok:
			current = End
		case e.router != nil:
			decision := e.router(state)
			to, mapped := e.routes[decision]
			if !mapped {
				return state, fmt.Errorf("conditional edge from %q has no route for %q", current, decision)
			}
			g.log.Debug("routing", zap.String("from", current), zap.String("decision", decision), zap.String("to", to))
			current = to
		default:
			current = e.to
		}
	}

	if current == End {
		return state, nil
	}
	return state, fmt.Errorf("%w (%d), next node %q", ErrMaxSteps, maxSteps, current)
}

// Describe renders the graph's nodes and edges, one transition per line,
// in node insertion order.
func (g *Graph[S]) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "START -> %s\n", g.entry)
	for _, name := range g.order {
		e, ok := g.edges[name]
		switch {
		case !ok:
			fmt.Fprintf(&b, "%s -> END\n", name)
		case e.router != nil:
			keys := make([]string, 0, len(e.routes))
			for k := range e.routes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "%s -[%s]-> %s\n", name, k, displayName(e.routes[k]))
			}
		default:
			fmt.Fprintf(&b, "%s -> %s\n", name, displayName(e.to))
		}
	}
	return b.String()
}

func displayName(node string) string {
	if node == End {
		return "END"
	}
	return node
}
