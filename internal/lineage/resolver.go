package lineage

import (
	"strings"

	"github.com/leapstack-labs/dbtrace/internal/graph"
)

// TableResolver maps table references extracted from SQL to graph node
// ids. Candidates are always the declaring node's immediate upstream
// dependencies; a reference matching nothing there is a same-unit alias
// (CTE, subquery) and is simply excluded from cross-unit tracing.
type TableResolver struct {
	graph *graph.Graph
}

// NewTableResolver creates a resolver over the given graph.
func NewTableResolver(g *graph.Graph) *TableResolver {
	return &TableResolver{graph: g}
}

// Resolve maps a table reference to an upstream node id of declaringID.
// An exact database.schema.table match wins outright; otherwise a single
// unqualified name match resolves, and ties stay unresolved rather than
// guessed.
func (r *TableResolver) Resolve(ref, declaringID string) (string, bool) {
	if ref == "" {
		return "", false
	}

	candidates, err := r.graph.Upstream(declaringID, 1)
	if err != nil {
		return "", false
	}

	want := strings.ToLower(ref)

	for _, id := range candidates {
		node, err := r.graph.Node(id)
		if err != nil {
			continue
		}
		if strings.ToLower(node.Qualified()) == want {
			return id, true
		}
	}

	var matches []string
	for _, id := range candidates {
		node, err := r.graph.Node(id)
		if err != nil {
			continue
		}
		if matchesUnqualified(node, want) {
			matches = append(matches, id)
		}
	}

	if len(matches) == 1 {
		return matches[0], true
	}
	return "", false
}

// matchesUnqualified compares a lowercased reference against the node's
// unqualified names. Source labels are "source_name.table"; templated SQL
// carries them as "source_name__table", so both spellings match.
func matchesUnqualified(node *graph.Node, want string) bool {
	label := strings.ToLower(node.Label)
	if label == want {
		return true
	}
	if strings.ReplaceAll(label, ".", "__") == want {
		return true
	}
	if node.Schema != "" && strings.ToLower(node.Schema+"."+node.Label) == want {
		return true
	}
	return false
}
