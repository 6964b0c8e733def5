// Package depgraph implements spec.md §4.3: cycle detection by two
// independent methods that must agree, deterministic topological
// ordering by a min-heap worklist keyed by origin_index, dependency
// layering, and weakly-connected components.
//
// Grounded on two teacher-corpus sources: the worklist/DFS shape follows
// _examples/sunholo-data-ailang/internal/link/topo.go (DFS with an
// in-path set for cycle detection, producing a CycleError with the
// concrete path) and _examples/sunholo-data-ailang/internal/elaborate/scc.go
// (Tarjan SCC over a simple edge-map CallGraph) for the independent
// structural check; the second, solver-backed check reuses
// internal/solver to verify the same acyclicity claim via linear
// arithmetic (`π_j < π_i` for every edge j->i), as spec.md §4.3 literally
// prescribes.
package depgraph

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"github.com/qscopehq/qscope/internal/builder"
	"github.com/qscopehq/qscope/internal/solver"
)

// CycleError reports a concrete cycle path for the error surfaced in
// spec.md §6/§8 (S5).
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %v", e.Path)
}

// Graph is the fully analyzed dependency structure over a questionnaire's
// items.
type Graph struct {
	Order      []string          // canonical topological order (item ids)
	Layers     map[string]int    // longest-path depth from any source
	Components map[string]int    // weakly-connected component id
	Pred       map[string][]string // direct predecessors j of i (j -> i edges)
	Succ       map[string][]string // direct successors
}

// Build runs both cycle checks and, if they agree on acyclicity, computes
// the canonical order, layers, and components. Disagreement between the
// two checks is itself a bug report: spec.md §8 property 6 requires they
// always agree, so Build treats a disagreement as a cycle (the worklist
// method, which can name a path, is authoritative for the error).
func Build(ctx context.Context, items []string, edges []builder.Edge) (*Graph, error) {
	pred := make(map[string][]string, len(items))
	succ := make(map[string][]string, len(items))
	originIndex := make(map[string]int, len(items))
	for i, id := range items {
		originIndex[id] = i
		if _, ok := pred[id]; !ok {
			pred[id] = nil
		}
		if _, ok := succ[id]; !ok {
			succ[id] = nil
		}
	}
	for _, e := range edges {
		if e.From == e.To {
			continue // self-edges rejected earlier by the compiler
		}
		pred[e.To] = append(pred[e.To], e.From)
		succ[e.From] = append(succ[e.From], e.To)
	}

	smtAcyclic := checkAcyclicViaSolver(ctx, items, edges)
	order, cyclePath, worklistAcyclic := topoSort(items, pred, originIndex)

	if !worklistAcyclic {
		return nil, &CycleError{Path: cyclePath}
	}
	if !smtAcyclic {
		// Disagreement: report it as a cycle too. The worklist emitted
		// every item, so it has no path to name and Path is nil.
		return nil, &CycleError{Path: cyclePath}
	}

	layers := computeLayers(order, pred)
	components := computeComponents(items, pred, succ)

	return &Graph{
		Order:      order,
		Layers:     layers,
		Components: components,
		Pred:       pred,
		Succ:       succ,
	}, nil
}

// checkAcyclicViaSolver asserts `pos_j < pos_i` for every edge j->i over
// integer position variables bounded [0, n-1] and checks satisfiability,
// per spec.md §4.3 method 1.
func checkAcyclicViaSolver(ctx context.Context, items []string, edges []builder.Edge) bool {
	if len(items) == 0 {
		return true
	}
	domains := make(map[string]solver.Interval, len(items))
	n := int64(len(items))
	for _, id := range items {
		domains["pos_"+id] = solver.Interval{Lo: 0, Hi: n - 1}
	}
	s := solver.New(domains)
	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		s.Assert(solver.Cmp{Op: "<", L: solver.Var{Name: "pos_" + e.From}, R: solver.Var{Name: "pos_" + e.To}})
	}
	res := s.CheckSat(ctx)
	// An UNKNOWN verdict here would be surprising (position assignment is
	// a much smaller search than most per-item queries) but is treated as
	// "could not confirm acyclicity", not as a false cycle report — the
	// worklist method is authoritative when the two disagree.
	return res.Status != solver.Unsat
}

// topoSort runs Kahn's algorithm with a min-heap keyed by origin_index, so
// ties are always broken the same way (spec.md §3 invariant 4).
func topoSort(items []string, pred map[string][]string, originIndex map[string]int) (order []string, cyclePath []string, acyclic bool) {
	indegree := make(map[string]int, len(items))
	for _, id := range items {
		indegree[id] = len(pred[id])
	}
	succ := make(map[string][]string, len(items))
	for to, froms := range pred {
		for _, from := range froms {
			succ[from] = append(succ[from], to)
		}
	}

	pq := &idHeap{byOrigin: originIndex}
	for _, id := range items {
		if indegree[id] == 0 {
			heap.Push(pq, id)
		}
	}

	emitted := map[string]bool{}
	for pq.Len() > 0 {
		id := heap.Pop(pq).(string)
		emitted[id] = true
		order = append(order, id)
		next := append([]string(nil), succ[id]...)
		sort.Strings(next) // deterministic decrement order before re-heaping
		for _, to := range next {
			indegree[to]--
			if indegree[to] == 0 {
				heap.Push(pq, to)
			}
		}
	}

	if len(order) == len(items) {
		return order, nil, true
	}

	var unemitted []string
	for _, id := range items {
		if !emitted[id] {
			unemitted = append(unemitted, id)
		}
	}
	sort.Strings(unemitted)
	path := findCyclePath(unemitted, pred)
	return nil, path, false
}

// findCyclePath runs a DFS from each unemitted vertex to extract one
// concrete cycle, in the style of the teacher's link.TopoSortFromRoot DFS
// (an inPath set plus a path slice that gets trimmed back to the repeated
// node once found).
func findCyclePath(unemitted []string, pred map[string][]string) []string {
	remaining := map[string]bool{}
	for _, id := range unemitted {
		remaining[id] = true
	}

	visited := map[string]bool{}
	inPath := map[string]bool{}
	var path []string
	var cycle []string

	var dfs func(string) bool
	dfs = func(node string) bool {
		if inPath[node] {
			start := 0
			for i, n := range path {
				if n == node {
					start = i
					break
				}
			}
			cycle = append(append([]string(nil), path[start:]...), node)
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		inPath[node] = true
		path = append(path, node)
		for _, p := range pred[node] {
			if !remaining[p] {
				continue
			}
			if dfs(p) {
				return true
			}
		}
		path = path[:len(path)-1]
		inPath[node] = false
		return false
	}

	for _, id := range unemitted {
		if dfs(id) {
			return cycle
		}
	}
	return unemitted
}

func computeLayers(order []string, pred map[string][]string) map[string]int {
	layers := make(map[string]int, len(order))
	for _, id := range order {
		max := -1
		for _, p := range pred[id] {
			if layers[p] > max {
				max = layers[p]
			}
		}
		layers[id] = max + 1
	}
	return layers
}

func computeComponents(items []string, pred, succ map[string][]string) map[string]int {
	parent := map[string]string{}
	var find func(string) string
	find = func(x string) string {
		if parent[x] == x {
			return x
		}
		parent[x] = find(parent[x])
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, id := range items {
		parent[id] = id
	}
	for to, froms := range pred {
		for _, from := range froms {
			union(from, to)
		}
	}
	_ = succ

	roots := map[string]int{}
	components := make(map[string]int, len(items))
	next := 0
	for _, id := range items {
		r := find(id)
		if _, ok := roots[r]; !ok {
			roots[r] = next
			next++
		}
		components[id] = roots[r]
	}
	return components
}

// idHeap is a min-heap of item ids ordered by origin_index.
type idHeap struct {
	ids      []string
	byOrigin map[string]int
}

func (h idHeap) Len() int { return len(h.ids) }
func (h idHeap) Less(i, j int) bool {
	return h.byOrigin[h.ids[i]] < h.byOrigin[h.ids[j]]
}
func (h idHeap) Swap(i, j int) { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }
func (h *idHeap) Push(x any)   { h.ids = append(h.ids, x.(string)) }
func (h *idHeap) Pop() any {
	old := h.ids
	n := len(old)
	v := old[n-1]
	h.ids = old[:n-1]
	return v
}
