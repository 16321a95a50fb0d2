// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type counter struct {
	visits []string
	n      int
}

func visit(name string) NodeFunc[*counter] {
	return func(_ context.Context, c *counter) (*counter, error) {
		c.visits = append(c.visits, name)
		if name == "inc" {
			c.n++
		}
		return c, nil
	}
}

func loopGraph(t *testing.T) *Graph[*counter] {
	g := NewGraph[*counter](zaptest.NewLogger(t))
	g.AddNode("start", visit("start"))
	g.AddNode("inc", visit("inc"))
	g.AddNode("done", visit("done"))
	g.SetEntryPoint("start")
	g.AddEdge("start", "inc")
	g.AddConditionalEdges("inc", func(c *counter) string {
		if c.n < 3 {
			return "again"
		}
		return "stop"
	}, map[string]string{"again": "inc", "stop": "done"})
	g.AddEdge("done", End)
	return g
}

func TestGraph_ExecuteLoopsUntilRouterStops(t *testing.T) {
	g := loopGraph(t)
	require.NoError(t, g.Validate())

	c, err := g.Execute(context.Background(), &counter{}, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, c.n)
	assert.Equal(t, []string{"start", "inc", "inc", "inc", "done"}, c.visits)
}

func TestGraph_ExactStepBudget(t *testing.T) {
	_, err := loopGraph(t).Execute(context.Background(), &counter{}, 5)
	assert.NoError(t, err)
}

func TestGraph_MaxSteps(t *testing.T) {
	c, err := loopGraph(t).Execute(context.Background(), &counter{}, 3)
	require.ErrorIs(t, err, ErrMaxSteps)
	assert.Len(t, c.visits, 3)
}

func TestGraph_NodeWithoutEdgeEnds(t *testing.T) {
	g := NewGraph[*counter](nil)
	g.AddNode("only", visit("only"))
	g.SetEntryPoint("only")

	c, err := g.Execute(context.Background(), &counter{}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, c.visits)
}

func TestGraph_NodeError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGraph[*counter](nil)
	g.AddNode("a", func(_ context.Context, c *counter) (*counter, error) { return c, boom })
	g.SetEntryPoint("a")

	_, err := g.Execute(context.Background(), &counter{}, 5)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"a"`)
}

func TestGraph_UnmappedDecision(t *testing.T) {
	g := NewGraph[*counter](nil)
	g.AddNode("a", visit("a"))
	g.SetEntryPoint("a")
	g.AddConditionalEdges("a", func(*counter) string { return "nowhere" }, map[string]string{"x": End})

	_, err := g.Execute(context.Background(), &counter{}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestGraph_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loopGraph(t).Execute(ctx, &counter{}, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGraph_Validate(t *testing.T) {
	g := NewGraph[*counter](nil)
	g.AddNode("a", visit("a"))
	g.SetEntryPoint("missing")
	assert.Error(t, g.Validate())

	g.SetEntryPoint("a")
	g.AddEdge("a", "ghost")
	assert.Error(t, g.Validate())

	g.AddConditionalEdges("a", func(*counter) string { return "k" }, map[string]string{"k": "ghost"})
	assert.Error(t, g.Validate())

	g.AddEdge("a", End)
	assert.NoError(t, g.Validate())
}

func TestGraph_Describe(t *testing.T) {
	want := "START -> start\n" +
		"start -> inc\n" +
		"inc -[again]-> inc\n" +
		"inc -[stop]-> done\n" +
		"done -> END\n"
	assert.Equal(t, want, loopGraph(t).Describe())
}
