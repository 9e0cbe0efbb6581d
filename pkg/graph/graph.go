package graph

import (
	"sort"
)

// ImportGraph is a directed graph over resolved local files. Nodes are
// added explicitly for every scanned file so isolated files still appear
// in the report; duplicate edges collapse to one.
type ImportGraph struct {
	nodes map[string]bool
	edges map[string]map[string]bool
}

// Cycle is one detected import cycle, canonicalized so that reordered or
// parallel scans yield identical output.
type Cycle struct {
	// Nodes in traversal order, rotated to start at the lexicographically
	// smallest member. The closing edge back to Nodes[0] is implicit.
	Nodes []string `json:"nodes"`

	// Severity: high for 2-3 node cycles (direct mutual reference),
	// medium up to 6, low beyond.
	Severity string `json:"severity"`
}

// New creates an empty graph.
func New() *ImportGraph {
	return &ImportGraph{
		nodes: make(map[string]bool),
		edges: make(map[string]map[string]bool),
	}
}

// AddNode registers a file even if it has no imports.
func (g *ImportGraph) AddNode(node string) {
	g.nodes[node] = true
}

// AddEdge records one local import. Self-imports are kept; they surface
// as length-1 cycles.
func (g *ImportGraph) AddEdge(from, to string) {
	g.nodes[from] = true
	g.nodes[to] = true
	if g.edges[from] == nil {
		g.edges[from] = make(map[string]bool)
	}
	g.edges[from][to] = true
}

// Merge unions another graph into this one. Used to combine per-worker
// partial graphs in a single aggregation step.
func (g *ImportGraph) Merge(other *ImportGraph) {
	for n := range other.nodes {
		g.nodes[n] = true
	}
	for from, tos := range other.edges {
		for to := range tos {
			g.AddEdge(from, to)
		}
	}
}

// Nodes returns all nodes, sorted.
func (g *ImportGraph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Edges returns all edges as sorted [from, to] pairs.
func (g *ImportGraph) Edges() [][2]string {
	var out [][2]string
	for from, tos := range g.edges {
		for to := range tos {
			out = append(out, [2]string{from, to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// NodeCount returns the number of nodes.
func (g *ImportGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *ImportGraph) EdgeCount() int {
	n := 0
	for _, tos := range g.edges {
		n += len(tos)
	}
	return n
}

// DetectCycles runs a depth-first traversal with an explicit recursion
// stack. Each node is visited at most once as a traversal root (global
// visited set), keeping total work linear in edges. On hitting a node
// already on the current stack, the sub-path from its first occurrence to
// the current node is one cycle.
func (g *ImportGraph) DetectCycles() []Cycle {
	visited := make(map[string]bool)
	onStack := make(map[string]int) // node -> index in path
	var path []string

	seen := make(map[string]bool) // canonical key dedup
	var cycles []Cycle

	var visit func(node string)
	visit = func(node string) {
		visited[node] = true
		onStack[node] = len(path)
		path = append(path, node)

		// Deterministic neighbor order keeps the reported traversal
		// order stable across runs.
		neighbors := make([]string, 0, len(g.edges[node]))
		for to := range g.edges[node] {
			neighbors = append(neighbors, to)
		}
		sort.Strings(neighbors)

		for _, to := range neighbors {
			if idx, ok := onStack[to]; ok {
				cycle := canonicalize(path[idx:])
				key := cycleKey(cycle)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, Cycle{Nodes: cycle, Severity: cycleSeverity(len(cycle))})
				}
				continue
			}
			if !visited[to] {
				visit(to)
			}
		}

		path = path[:len(path)-1]
		delete(onStack, node)
	}

	for _, root := range g.Nodes() {
		if !visited[root] {
			visit(root)
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycleKey(cycles[i].Nodes) < cycleKey(cycles[j].Nodes)
	})
	return cycles
}

// canonicalize rotates a cycle to start at its lexicographically smallest
// node, preserving traversal order.
func canonicalize(cycle []string) []string {
	if len(cycle) == 0 {
		return nil
	}
	min := 0
	for i, n := range cycle {
		if n < cycle[min] {
			min = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[min:]...)
	out = append(out, cycle[:min]...)
	return out
}

func cycleKey(nodes []string) string {
	key := ""
	for _, n := range nodes {
		key += n + "\x00"
	}
	return key
}

func cycleSeverity(length int) string {
	switch {
	case length <= 3:
		return "high"
	case length <= 6:
		return "medium"
	default:
		return "low"
	}
}
