package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// lineageOptions holds options for the lineage command.
type lineageOptions struct {
	OutputFormat string
	Upstream     bool
	Downstream   bool
	Depth        int
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &lineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <node>",
		Short: "Show lineage for a node",
		Long: `Display the upstream dependencies and downstream dependents of a node.

Nodes are addressed by their manifest unique id, for example
model.jaffle_shop.stg_orders or source.jaffle_shop.raw.orders.`,
		Example: `  # Full lineage for a model
  dbtrace lineage model.jaffle_shop.orders

  # Only upstream dependencies
  dbtrace lineage model.jaffle_shop.orders --downstream=false

  # Limit traversal depth
  dbtrace lineage model.jaffle_shop.orders --depth 2

  # Output as JSON
  dbtrace lineage model.jaffle_shop.orders --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVar(&opts.Upstream, "upstream", true, "Include upstream dependencies")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", true, "Include downstream dependents")
	cmd.Flags().IntVar(&opts.Depth, "depth", -1, "Max traversal depth (negative = unlimited)")

	return cmd
}

// lineageOutput is the JSON shape of the lineage command.
type lineageOutput struct {
	Root       string   `json:"root"`
	Upstream   []string `json:"upstream,omitempty"`
	Downstream []string `json:"downstream,omitempty"`
}

func runLineage(cmd *cobra.Command, nodeID string, opts *lineageOptions) error {
	g, err := loadGraph(cmd)
	if err != nil {
		return err
	}

	out := lineageOutput{Root: nodeID}
	if opts.Upstream {
		if out.Upstream, err = g.Upstream(nodeID, opts.Depth); err != nil {
			return err
		}
	}
	if opts.Downstream {
		if out.Downstream, err = g.Downstream(nodeID, opts.Depth); err != nil {
			return err
		}
	}

	if opts.OutputFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Lineage for: %s\n\n", nodeID)
	if opts.Upstream {
		fmt.Fprintf(w, "Upstream dependencies (%d):\n", len(out.Upstream))
		for _, id := range out.Upstream {
			fmt.Fprintf(w, "  - %s\n", id)
		}
		fmt.Fprintln(w)
	}
	if opts.Downstream {
		fmt.Fprintf(w, "Downstream dependents (%d):\n", len(out.Downstream))
		for _, id := range out.Downstream {
			fmt.Fprintf(w, "  - %s\n", id)
		}
	}
	return nil
}
