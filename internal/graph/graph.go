// Package graph maintains the workspace include multigraph: nodes are
// document URIs held in an arena and addressed by integer handles,
// edges carry the including range. Cycles are detected and recorded,
// never forbidden; traversals halt at cycle nodes.
package graph

import (
	"sort"

	"texel/internal/diag"
	"texel/internal/source"
)

// NodeID is a handle into the node arena.
type NodeID uint32

// Edge is one include site: from includes to at Span.
type Edge struct {
	From       NodeID
	To         NodeID
	Span       source.Span // спан аргумента включения в документе from
	Confidence diag.Confidence
}

// Graph is a directed multigraph. It is owned by the workspace task;
// readers receive copies of query results, never internal slices.
type Graph struct {
	uris  []string
	index map[string]NodeID
	out   map[NodeID][]Edge
	in    map[NodeID][]Edge
}

func New() *Graph {
	return &Graph{
		index: make(map[string]NodeID),
		out:   make(map[NodeID][]Edge),
		in:    make(map[NodeID][]Edge),
	}
}

// Node interns a URI and returns its handle.
func (g *Graph) Node(uri string) NodeID {
	if id, ok := g.index[uri]; ok {
		return id
	}
	id := NodeID(len(g.uris))
	g.uris = append(g.uris, uri)
	g.index[uri] = id
	return id
}

// Lookup returns the handle for uri without interning.
func (g *Graph) Lookup(uri string) (NodeID, bool) {
	id, ok := g.index[uri]
	return id, ok
}

// URI returns the document URI of a node.
func (g *Graph) URI(id NodeID) string {
	return g.uris[id]
}

// Len returns the node count.
func (g *Graph) Len() int {
	return len(g.uris)
}

// AddEdge records an include site. Parallel edges are allowed: the same
// file included twice from two sites is two edges.
func (g *Graph) AddEdge(e Edge) {
	g.out[e.From] = append(g.out[e.From], e)
	g.in[e.To] = append(g.in[e.To], e)
}

// SetOutgoing replaces all edges departing from one document; this is
// the unit of invalidation when a document's include slice changes.
func (g *Graph) SetOutgoing(from NodeID, edges []Edge) {
	for _, old := range g.out[from] {
		g.in[old.To] = removeEdge(g.in[old.To], old)
	}
	delete(g.out, from)
	for _, e := range edges {
		if e.From != from {
			continue
		}
		g.AddEdge(e)
	}
}

func removeEdge(edges []Edge, victim Edge) []Edge {
	for i, e := range edges {
		if e == victim {
			return append(edges[:i:i], edges[i+1:]...)
		}
	}
	return edges
}

// Out returns a copy of the edges departing id.
func (g *Graph) Out(id NodeID) []Edge {
	return append([]Edge(nil), g.out[id]...)
}

// In returns a copy of the edges arriving at id.
func (g *Graph) In(id NodeID) []Edge {
	return append([]Edge(nil), g.in[id]...)
}

// Cycle is one detected include cycle. Closing is the back edge at
// which the cycle closes: the diagnostic is attached there.
type Cycle struct {
	Nodes   []NodeID
	Closing Edge
}

// Cycles runs a coloring DFS over the whole graph and returns one entry
// per detected cycle. Deterministic: nodes are visited in handle order.
func (g *Graph) Cycles() []Cycle {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]uint8, len(g.uris))
	var stack []NodeID
	var cycles []Cycle

	var dfs func(NodeID)
	dfs = func(n NodeID) {
		color[n] = gray
		stack = append(stack, n)
		for _, e := range g.out[n] {
			switch color[e.To] {
			case white:
				dfs(e.To)
			case gray:
				// back edge: серый узел лежит на текущем пути
				var nodes []NodeID
				for i := len(stack) - 1; i >= 0; i-- {
					nodes = append([]NodeID{stack[i]}, nodes...)
					if stack[i] == e.To {
						break
					}
				}
				cycles = append(cycles, Cycle{Nodes: nodes, Closing: e})
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}

	for n := range g.uris {
		if color[n] == white {
			dfs(NodeID(n))
		}
	}
	return cycles
}

// Reachable expands the include closure from id. Expansion stops at
// cycle nodes naturally: every node is visited at most once.
func (g *Graph) Reachable(id NodeID) []NodeID {
	seen := make(map[NodeID]bool)
	var order []NodeID
	var walk func(NodeID)
	walk = func(n NodeID) {
		if seen[n] {
			return
		}
		seen[n] = true
		order = append(order, n)
		for _, e := range g.out[n] {
			walk(e.To)
		}
	}
	walk(id)
	return order
}

// EntrypointsIncluding returns the URIs of root documents (no incoming
// edges) from which uri is transitively reachable. A document including
// itself through a cycle is not its own entrypoint unless it is a root.
func (g *Graph) EntrypointsIncluding(uri string) []string {
	target, ok := g.index[uri]
	if !ok {
		return nil
	}

	// обратная достижимость от target
	seen := make(map[NodeID]bool)
	var walk func(NodeID)
	walk = func(n NodeID) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, e := range g.in[n] {
			walk(e.From)
		}
	}
	walk(target)

	var roots []string
	for n := range seen {
		if len(g.in[n]) == 0 {
			roots = append(roots, g.uris[n])
		}
	}
	sort.Strings(roots)
	return roots
}
