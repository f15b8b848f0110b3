package manifest

import (
	"strings"

	"github.com/leapstack-labs/dbtrace/internal/graph"
)

// Classify buckets a manifest entry into a node kind for presentation.
// Resource type wins; otherwise naming and path conventions decide.
func Classify(resourceType, name, path string) graph.NodeKind {
	name = strings.ToLower(name)
	path = strings.ToLower(path)

	switch resourceType {
	case "seed":
		return graph.KindSeed
	case "snapshot":
		return graph.KindSnapshot
	}

	switch {
	case strings.Contains(path, "staging") || strings.HasPrefix(name, "stg"):
		return graph.KindStaging
	case strings.Contains(path, "intermediate") || strings.HasPrefix(name, "int"):
		return graph.KindIntermediate
	case strings.Contains(path, "mart") ||
		strings.Contains(name, "dim_") ||
		strings.Contains(name, "fct_") ||
		strings.Contains(name, "fact_"):
		return graph.KindMart
	case strings.Contains(path, "output") || strings.Contains(name, "report"):
		return graph.KindOutput
	case strings.Contains(path, "static"):
		return graph.KindStatic
	}

	return graph.KindModel
}
