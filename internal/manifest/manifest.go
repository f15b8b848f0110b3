// Package manifest ingests a dbt manifest.json into node and edge lists
// for graph construction. It does not validate edge endpoints; that
// happens in graph.Build.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/leapstack-labs/dbtrace/internal/graph"
)

// Ingest is the outcome of parsing a manifest: raw node and edge lists,
// ready for graph.Build.
type Ingest struct {
	Nodes []graph.Node
	Edges []graph.Edge
}

type rawManifest struct {
	Nodes     map[string]rawNode     `json:"nodes"`
	Sources   map[string]rawSource   `json:"sources"`
	Exposures map[string]rawExposure `json:"exposures"`
}

type rawNode struct {
	Name             string       `json:"name"`
	ResourceType     string       `json:"resource_type"`
	Database         string       `json:"database"`
	Schema           string       `json:"schema"`
	Description      string       `json:"description"`
	Path             string       `json:"path"`
	OriginalFilePath string       `json:"original_file_path"`
	RawCode          string       `json:"raw_code"`
	RawSQL           string       `json:"raw_sql"`
	CompiledCode     string       `json:"compiled_code"`
	CompiledSQL      string       `json:"compiled_sql"`
	Tags             []string     `json:"tags"`
	Config           rawConfig    `json:"config"`
	Columns          rawColumns   `json:"columns"`
	DependsOn        rawDependsOn `json:"depends_on"`
}

type rawSource struct {
	SourceName  string     `json:"source_name"`
	Name        string     `json:"name"`
	Database    string     `json:"database"`
	Schema      string     `json:"schema"`
	Description string     `json:"description"`
	Path        string     `json:"path"`
	Tags        []string   `json:"tags"`
	Columns     rawColumns `json:"columns"`
}

type rawExposure struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	DependsOn   rawDependsOn `json:"depends_on"`
}

type rawConfig struct {
	Materialized string `json:"materialized"`
}

type rawColumn struct {
	Name        string `json:"-"`
	Description string `json:"description"`
	DataType    string `json:"data_type"`
}

// rawColumns is the manifest's columns object with declaration order
// kept. encoding/json maps randomize key order, so the object is walked
// token by token instead.
type rawColumns []rawColumn

func (c *rawColumns) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("columns: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("columns: expected key, got %v", keyTok)
		}

		var col rawColumn
		if err := dec.Decode(&col); err != nil {
			return err
		}
		col.Name = name
		*c = append(*c, col)
	}
	return nil
}

type rawDependsOn struct {
	Nodes []string `json:"nodes"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Ingest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a manifest document. Test nodes are skipped; everything
// else (models, seeds, snapshots, sources, exposures) becomes a graph
// node. Edges come from each entry's depends_on list.
func Parse(r io.Reader) (*Ingest, error) {
	var raw rawManifest
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	ing := &Ingest{}

	for id, src := range raw.Sources {
		ing.Nodes = append(ing.Nodes, graph.Node{
			ID:          id,
			Kind:        graph.KindSource,
			Label:       src.SourceName + "." + src.Name,
			Path:        src.Path,
			Database:    src.Database,
			Schema:      src.Schema,
			Description: src.Description,
			Tags:        src.Tags,
			Columns:     convertColumns(src.Columns),
		})
	}

	for id, node := range raw.Nodes {
		if node.ResourceType == "test" {
			continue
		}

		path := node.OriginalFilePath
		if path == "" {
			path = node.Path
		}

		ing.Nodes = append(ing.Nodes, graph.Node{
			ID:           id,
			Kind:         Classify(node.ResourceType, node.Name, path),
			Label:        node.Name,
			Path:         path,
			Database:     node.Database,
			Schema:       node.Schema,
			Materialized: node.Config.Materialized,
			RawSQL:       firstNonEmpty(node.RawCode, node.RawSQL),
			CompiledSQL:  firstNonEmpty(node.CompiledCode, node.CompiledSQL),
			Tags:         node.Tags,
			Description:  node.Description,
			Columns:      convertColumns(node.Columns),
		})

		for _, dep := range node.DependsOn.Nodes {
			ing.Edges = append(ing.Edges, graph.Edge{From: dep, To: id})
		}
	}

	for id, exp := range raw.Exposures {
		ing.Nodes = append(ing.Nodes, graph.Node{
			ID:          id,
			Kind:        graph.KindExposure,
			Label:       exp.Name,
			Description: exp.Description,
		})
		for _, dep := range exp.DependsOn.Nodes {
			ing.Edges = append(ing.Edges, graph.Edge{From: dep, To: id})
		}
	}

	// Map iteration order is random; sort for deterministic output.
	sort.Slice(ing.Nodes, func(i, j int) bool { return ing.Nodes[i].ID < ing.Nodes[j].ID })
	sort.Slice(ing.Edges, func(i, j int) bool {
		if ing.Edges[i].From != ing.Edges[j].From {
			return ing.Edges[i].From < ing.Edges[j].From
		}
		return ing.Edges[i].To < ing.Edges[j].To
	})

	return ing, nil
}

// convertColumns keeps the manifest's declaration order.
func convertColumns(raw rawColumns) []graph.ColumnMeta {
	if len(raw) == 0 {
		return nil
	}
	cols := make([]graph.ColumnMeta, len(raw))
	for i, col := range raw {
		cols[i] = graph.ColumnMeta{
			Name:        col.Name,
			DataType:    col.DataType,
			Description: col.Description,
		}
	}
	return cols
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
