// Package lineage stitches per-model column resolutions into cross-model
// column traces over the dependency graph.
package lineage

import (
	"strings"

	"github.com/leapstack-labs/dbtrace/internal/columns"
	"github.com/leapstack-labs/dbtrace/internal/graph"
	"github.com/leapstack-labs/dbtrace/pkg/sqlparser"
)

// ResolvedSource is a SourceRef augmented with the upstream node id the
// table reference mapped to, when it mapped at all.
type ResolvedSource struct {
	columns.SourceRef
	NodeID string `json:"node_id,omitempty"`
}

// ResolvedColumn is one output column with graph-resolved sources.
type ResolvedColumn struct {
	Name      string           `json:"name"`
	IsDerived bool             `json:"is_derived"`
	Sources   []ResolvedSource `json:"sources,omitempty"`
}

// ModelColumns is the full resolved column list for one node.
type ModelColumns struct {
	NodeID  string                `json:"node_id"`
	Columns []ResolvedColumn      `json:"columns"`
	Failure *columns.ParseFailure `json:"failure,omitempty"`
}

// TraceEntry is one upstream (model, column) pair contributing to a
// traced column. Depth is counted from the queried node as 0.
type TraceEntry struct {
	Model  string `json:"model"`
	Column string `json:"column"`
	Depth  int    `json:"depth"`
}

// TraceResult is the outcome of a column trace.
type TraceResult struct {
	Lineage *ResolvedColumn       `json:"lineage,omitempty"`
	Trace   []TraceEntry          `json:"trace"`
	Failure *columns.ParseFailure `json:"failure,omitempty"`
}

// Tracer answers column-level lineage queries against one immutable
// graph snapshot. It is safe for concurrent use.
type Tracer struct {
	graph    *graph.Graph
	cache    *Cache
	resolver *TableResolver
}

// NewTracer creates a tracer bound to a graph snapshot and its cache.
func NewTracer(g *graph.Graph, cache *Cache) *Tracer {
	return &Tracer{
		graph:    g,
		cache:    cache,
		resolver: NewTableResolver(g),
	}
}

// ResolveColumns parses the node's SQL (through the cache) and maps each
// source table reference to an upstream node id where possible.
func (t *Tracer) ResolveColumns(nodeID string) (*ModelColumns, error) {
	node, err := t.graph.Node(nodeID)
	if err != nil {
		return nil, err
	}

	res := t.resolveNode(node)

	out := &ModelColumns{NodeID: nodeID, Failure: res.Failure}
	for _, col := range res.Columns {
		out.Columns = append(out.Columns, t.resolveSources(node.ID, col))
	}
	return out, nil
}

// TraceColumn traces one output column upstream to the columns it is
// derived from, across model boundaries, bounded by maxDepth hops. A
// negative maxDepth means unbounded; termination is still guaranteed by
// the visited set.
func (t *Tracer) TraceColumn(nodeID, column string, maxDepth int) (*TraceResult, error) {
	node, err := t.graph.Node(nodeID)
	if err != nil {
		return nil, err
	}

	res := t.resolveNode(node)

	pc, ok := t.lookupColumn(res, node, column)
	if !ok {
		if res.Failure != nil {
			// The node's SQL never parsed; degrade rather than hard-fail.
			return &TraceResult{Trace: []TraceEntry{}, Failure: res.Failure}, nil
		}
		return nil, &ColumnNotFoundError{Node: nodeID, Column: column}
	}

	current := t.resolveSources(nodeID, *pc)

	type workItem struct {
		nodeID string
		column string
		depth  int
	}

	visited := map[string]bool{visitKey(nodeID, column): true}
	var queue []workItem

	push := func(upID, upColumn string, depth int) {
		if upColumn == "" || upColumn == "*" {
			return
		}
		key := visitKey(upID, upColumn)
		if visited[key] {
			return
		}
		visited[key] = true
		queue = append(queue, workItem{nodeID: upID, column: upColumn, depth: depth})
	}

	if maxDepth != 0 {
		for _, src := range current.Sources {
			if src.NodeID != "" {
				push(src.NodeID, src.Column, 1)
			}
		}
	}

	trace := []TraceEntry{}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		trace = append(trace, TraceEntry{Model: item.nodeID, Column: item.column, Depth: item.depth})

		if maxDepth >= 0 && item.depth >= maxDepth {
			continue
		}

		upNode, err := t.graph.Node(item.nodeID)
		if err != nil {
			continue
		}

		upRes := t.resolveNode(upNode)
		upCol, found := t.lookupColumn(upRes, upNode, item.column)
		if !found {
			// Parse failure or untraceable column stops this branch;
			// entries already collected stay.
			continue
		}

		for _, src := range upCol.Sources {
			if src.Column == "*" {
				continue
			}
			upID, resolved := t.resolver.Resolve(src.Table, item.nodeID)
			if !resolved {
				continue
			}
			push(upID, src.Column, item.depth+1)
		}
	}

	return &TraceResult{Lineage: &current, Trace: trace}, nil
}

// resolveNode produces the node's column list, through the cache. Nodes
// without SQL (sources, seeds) fall back to their declared columns.
func (t *Tracer) resolveNode(node *graph.Node) *columns.Result {
	sql := node.SQL()
	if sql == "" {
		return declaredColumns(node)
	}

	if cached, ok := t.cache.Get(node.ID, sql); ok {
		return cached
	}

	res := columns.Extract(sql, t.upstreamSchema(node.ID))
	t.cache.Put(node.ID, sql, res)
	return res
}

// declaredColumns synthesizes a column list from node metadata for nodes
// that carry no SQL, such as sources and seeds. They are roots of any
// trace, so the columns have no sources of their own.
func declaredColumns(node *graph.Node) *columns.Result {
	res := &columns.Result{}
	for _, meta := range node.Columns {
		res.Columns = append(res.Columns, columns.ParsedColumn{Name: meta.Name})
	}
	return res
}

// upstreamSchema assembles wildcard-expansion schema information from the
// declared columns of the node's immediate dependencies.
func (t *Tracer) upstreamSchema(nodeID string) sqlparser.Schema {
	ids, err := t.graph.Upstream(nodeID, 1)
	if err != nil {
		return nil
	}

	schema := sqlparser.Schema{}
	for _, id := range ids {
		node, err := t.graph.Node(id)
		if err != nil || len(node.Columns) == 0 {
			continue
		}
		names := make([]string, len(node.Columns))
		for i, c := range node.Columns {
			names[i] = c.Name
		}
		label := strings.ToLower(node.Label)
		schema[label] = names
		schema[strings.ReplaceAll(label, ".", "__")] = names
		schema[strings.ToLower(node.Qualified())] = names
	}

	if len(schema) == 0 {
		return nil
	}
	return schema
}

// resolveSources maps a parsed column's table references to node ids.
func (t *Tracer) resolveSources(nodeID string, col columns.ParsedColumn) ResolvedColumn {
	out := ResolvedColumn{Name: col.Name, IsDerived: col.IsDerived}
	for _, src := range col.Sources {
		rs := ResolvedSource{SourceRef: src}
		if id, ok := t.resolver.Resolve(src.Table, nodeID); ok {
			rs.NodeID = id
		}
		out.Sources = append(out.Sources, rs)
	}
	return out
}

// lookupColumn finds a column in a node's resolved output. Exact parsed
// names win; otherwise a wildcard projection is consulted against the
// upstream node's own column list, and finally the node's declared
// column metadata.
func (t *Tracer) lookupColumn(res *columns.Result, node *graph.Node, column string) (*columns.ParsedColumn, bool) {
	want := strings.ToLower(column)

	for i := range res.Columns {
		if strings.ToLower(res.Columns[i].Name) == want {
			return &res.Columns[i], true
		}
	}

	// Wildcard projections: the column may pass through a SELECT * whose
	// names are only known on the upstream node.
	for _, col := range res.Columns {
		for _, src := range col.Sources {
			if src.Column != "*" {
				continue
			}
			upID, ok := t.resolver.Resolve(src.Table, node.ID)
			if !ok {
				continue
			}
			upNode, err := t.graph.Node(upID)
			if err != nil {
				continue
			}
			if !t.nodeHasColumn(upNode, want) {
				continue
			}
			return &columns.ParsedColumn{
				Name:    column,
				Sources: []columns.SourceRef{{Table: src.Table, Column: column}},
			}, true
		}
	}

	for _, meta := range node.Columns {
		if strings.ToLower(meta.Name) == want {
			return &columns.ParsedColumn{Name: meta.Name}, true
		}
	}

	return nil, false
}

// nodeHasColumn reports whether a node outputs the given column, checking
// declared metadata first and parsed output second.
func (t *Tracer) nodeHasColumn(node *graph.Node, want string) bool {
	for _, meta := range node.Columns {
		if strings.ToLower(meta.Name) == want {
			return true
		}
	}

	res := t.resolveNode(node)
	for _, col := range res.Columns {
		if strings.ToLower(col.Name) == want {
			return true
		}
	}
	return false
}

func visitKey(nodeID, column string) string {
	return nodeID + ":" + strings.ToLower(column)
}
