package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbtrace/internal/graph"
	"github.com/leapstack-labs/dbtrace/internal/lineage"
)

// exportOptions holds options for the export command.
type exportOptions struct {
	Out     string
	Columns bool
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the lineage graph as JSON",
		Long: `Write the full dependency graph to a file or stdout as JSON.

With --columns each model additionally carries its resolved output
columns and their sources.`,
		Example: `  # Print the graph
  dbtrace export

  # Write to a file, including column resolutions
  dbtrace export --columns --out graph.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.Columns, "columns", false, "Include resolved columns per node")

	return cmd
}

// exportDoc is the JSON shape of the export command.
type exportDoc struct {
	Generation uint64                           `json:"generation"`
	Nodes      []*graph.Node                    `json:"nodes"`
	Edges      []graph.Edge                     `json:"edges"`
	Columns    map[string]*lineage.ModelColumns `json:"columns,omitempty"`
}

func runExport(cmd *cobra.Command, opts *exportOptions) error {
	g, tracer, err := loadTracer(cmd)
	if err != nil {
		return err
	}

	doc := exportDoc{
		Generation: g.Generation(),
		Nodes:      g.Nodes(),
		Edges:      g.Edges(),
	}

	if opts.Columns {
		doc.Columns = make(map[string]*lineage.ModelColumns)
		for _, node := range doc.Nodes {
			cols, err := tracer.ResolveColumns(node.ID)
			if err != nil {
				return err
			}
			doc.Columns[node.ID] = cols
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
