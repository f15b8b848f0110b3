// Package graph provides the immutable dependency graph built from a dbt
// manifest. A Graph is constructed once, validated, and then only read;
// reloads build a fresh Graph rather than mutating an existing one.
package graph

import (
	"fmt"
	"sort"
)

// NodeKind classifies a node by its role in the project layout.
type NodeKind string

// NodeKind values, roughly ordered from raw data to consumption.
const (
	KindSource       NodeKind = "source"
	KindSeed         NodeKind = "seed"
	KindSnapshot     NodeKind = "snapshot"
	KindStaging      NodeKind = "staging"
	KindIntermediate NodeKind = "intermediate"
	KindMart         NodeKind = "mart"
	KindOutput       NodeKind = "output"
	KindStatic       NodeKind = "static"
	KindModel        NodeKind = "model"
	KindExposure     NodeKind = "exposure"
)

// ColumnMeta holds the declared metadata for a single column.
type ColumnMeta struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Node is a single model, source, seed, snapshot, or exposure.
type Node struct {
	ID           string       `json:"id"`
	Kind         NodeKind     `json:"kind"`
	Label        string       `json:"label"`
	Path         string       `json:"path,omitempty"`
	Database     string       `json:"database,omitempty"`
	Schema       string       `json:"schema,omitempty"`
	Materialized string       `json:"materialized,omitempty"`
	RawSQL       string       `json:"-"`
	CompiledSQL  string       `json:"-"`
	Columns      []ColumnMeta `json:"columns,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	Description  string       `json:"description,omitempty"`
}

// SQL returns the best available SQL text for the node, preferring
// compiled code over raw code.
func (n *Node) SQL() string {
	if n.CompiledSQL != "" {
		return n.CompiledSQL
	}
	return n.RawSQL
}

// Qualified returns the database.schema.label relation name for the node,
// omitting empty parts.
func (n *Node) Qualified() string {
	s := n.Label
	if n.Schema != "" {
		s = n.Schema + "." + s
	}
	if n.Database != "" {
		s = n.Database + "." + s
	}
	return s
}

// Edge is a dependency from one node to another. From is the upstream
// node, To the downstream node that depends on it.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NotFoundError reports a lookup for a node id that is not in the graph.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node %q not found", e.ID)
}

// ValidationError reports an edge that referenced a missing node and was
// dropped during construction.
type ValidationError struct {
	Edge    Edge
	Missing string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("edge %s -> %s references missing node %q", e.Edge.From, e.Edge.To, e.Missing)
}

// Graph is an immutable dependency graph. All read methods are safe for
// concurrent use.
type Graph struct {
	generation uint64
	nodes      map[string]*Node
	downstream map[string][]string // node -> nodes that depend on it
	upstream   map[string][]string // node -> nodes it depends on
	edgeCount  int
}

// Build constructs a Graph from nodes and edges. Edges referencing unknown
// node ids are dropped and reported as ValidationErrors; the graph itself
// is still usable. Duplicate edges and self-loops are dropped silently.
func Build(generation uint64, nodes []Node, edges []Edge) (*Graph, []error) {
	g := &Graph{
		generation: generation,
		nodes:      make(map[string]*Node, len(nodes)),
		downstream: make(map[string][]string),
		upstream:   make(map[string][]string),
	}

	for i := range nodes {
		n := nodes[i]
		g.nodes[n.ID] = &n
	}

	var errs []error
	for _, e := range edges {
		if _, ok := g.nodes[e.From]; !ok {
			errs = append(errs, &ValidationError{Edge: e, Missing: e.From})
			continue
		}
		if _, ok := g.nodes[e.To]; !ok {
			errs = append(errs, &ValidationError{Edge: e, Missing: e.To})
			continue
		}
		if e.From == e.To {
			continue
		}
		if contains(g.downstream[e.From], e.To) {
			continue
		}
		g.downstream[e.From] = append(g.downstream[e.From], e.To)
		g.upstream[e.To] = append(g.upstream[e.To], e.From)
		g.edgeCount++
	}

	for id := range g.downstream {
		sort.Strings(g.downstream[id])
	}
	for id := range g.upstream {
		sort.Strings(g.upstream[id])
	}

	return g, errs
}

// Generation returns the build generation of this graph snapshot.
func (g *Graph) Generation() uint64 {
	return g.generation
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return n, nil
}

// Has reports whether a node with the given id exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Parents returns the direct dependencies of a node, sorted by id.
func (g *Graph) Parents(id string) []string {
	return g.upstream[id]
}

// Children returns the direct dependents of a node, sorted by id.
func (g *Graph) Children(id string) []string {
	return g.downstream[id]
}

// Upstream returns all node ids reachable by following dependency edges
// backwards from id, up to maxDepth hops. A maxDepth of 0 returns an empty
// set; a negative maxDepth means unbounded. The starting node is never
// included. Results are sorted.
func (g *Graph) Upstream(id string, maxDepth int) ([]string, error) {
	return g.traverse(id, maxDepth, g.upstream)
}

// Downstream returns all node ids reachable by following dependency edges
// forwards from id, up to maxDepth hops. Semantics mirror Upstream.
func (g *Graph) Downstream(id string, maxDepth int) ([]string, error) {
	return g.traverse(id, maxDepth, g.downstream)
}

func (g *Graph) traverse(id string, maxDepth int, adj map[string][]string) ([]string, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, &NotFoundError{ID: id}
	}

	result := []string{}
	if maxDepth == 0 {
		return result, nil
	}

	type item struct {
		id    string
		depth int
	}

	visited := map[string]bool{id: true}
	queue := []item{{id: id, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if maxDepth >= 0 && cur.depth >= maxDepth {
			continue
		}

		for _, next := range adj[cur.id] {
			if visited[next] {
				continue
			}
			visited[next] = true
			result = append(result, next)
			queue = append(queue, item{id: next, depth: cur.depth + 1})
		}
	}

	sort.Strings(result)
	return result, nil
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// Edges returns all edges sorted by (From, To).
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.edgeCount)
	for from, tos := range g.downstream {
		for _, to := range tos {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

func contains(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}
