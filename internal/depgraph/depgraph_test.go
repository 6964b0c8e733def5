package depgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qscopehq/qscope/internal/builder"
)

func TestBuild_LinearChain(t *testing.T) {
	items := []string{"a", "b", "c"}
	edges := []builder.Edge{{From: "a", To: "b"}, {From: "b", To: "c"}}
	g, err := Build(context.Background(), items, edges)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, g.Order)
	require.Equal(t, 0, g.Layers["a"])
	require.Equal(t, 1, g.Layers["b"])
	require.Equal(t, 2, g.Layers["c"])
}

func TestBuild_OriginIndexBreaksTies(t *testing.T) {
	// b and c both become available (indegree 0) the instant a is emitted;
	// origin_index must choose c first since it appears earlier in the
	// passed item order, even though b's name would sort first.
	items := []string{"a", "c", "b"} // note: c listed before b in source order
	edges := []builder.Edge{{From: "a", To: "b"}, {From: "a", To: "c"}}
	g, err := Build(context.Background(), items, edges)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c", "b"}, g.Order)
}

func TestBuild_CycleDetected(t *testing.T) {
	// A <- C, B <- A, C <- B: the S5 scenario of spec.md §8.
	items := []string{"A", "B", "C"}
	edges := []builder.Edge{{From: "C", To: "A"}, {From: "A", To: "B"}, {From: "B", To: "C"}}
	_, err := Build(context.Background(), items, edges)
	require.Error(t, err)
	cycleErr, ok := err.(*CycleError)
	require.True(t, ok)
	require.NotEmpty(t, cycleErr.Path)
}

func TestBuild_WeaklyConnectedComponents(t *testing.T) {
	items := []string{"a", "b", "x", "y"}
	edges := []builder.Edge{{From: "a", To: "b"}, {From: "x", To: "y"}}
	g, err := Build(context.Background(), items, edges)
	require.NoError(t, err)
	require.Equal(t, g.Components["a"], g.Components["b"])
	require.Equal(t, g.Components["x"], g.Components["y"])
	require.NotEqual(t, g.Components["a"], g.Components["x"])
}

func TestBuild_NoEdgesIsTriviallyAcyclic(t *testing.T) {
	items := []string{"a", "b", "c"}
	g, err := Build(context.Background(), items, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, g.Order)
	for _, id := range items {
		require.Equal(t, 0, g.Layers[id])
	}
}
