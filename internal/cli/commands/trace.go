package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// traceOptions holds options for the trace command.
type traceOptions struct {
	OutputFormat string
	Depth        int
}

// NewTraceCommand creates the trace command.
func NewTraceCommand() *cobra.Command {
	opts := &traceOptions{}

	cmd := &cobra.Command{
		Use:   "trace <node> <column>",
		Short: "Trace a column upstream through model SQL",
		Long: `Parse model SQL and follow one output column back through the models
and sources it is computed from.

Columns read straight through a model keep their chain going; derived
columns report every input column feeding the expression.`,
		Example: `  # Where does orders.amount_with_tax come from?
  dbtrace trace model.jaffle_shop.orders amount_with_tax

  # Only one hop up
  dbtrace trace model.jaffle_shop.orders amount_with_tax --depth 1

  # Output as JSON
  dbtrace trace model.jaffle_shop.orders amount_with_tax --output json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVar(&opts.Depth, "depth", -1, "Max traversal depth (negative = unlimited)")

	return cmd
}

func runTrace(cmd *cobra.Command, nodeID, column string, opts *traceOptions) error {
	_, tracer, err := loadTracer(cmd)
	if err != nil {
		return err
	}

	res, err := tracer.TraceColumn(nodeID, column, opts.Depth)
	if err != nil {
		return err
	}

	if opts.OutputFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Trace for: %s.%s\n\n", nodeID, column)

	if res.Failure != nil {
		fmt.Fprintf(w, "SQL could not be analyzed: %s\n", res.Failure.Message)
		return nil
	}

	if res.Lineage != nil {
		kind := "direct"
		if res.Lineage.IsDerived {
			kind = "derived"
		}
		fmt.Fprintf(w, "Column is %s, %d immediate source(s):\n", kind, len(res.Lineage.Sources))
		for _, src := range res.Lineage.Sources {
			ref := src.Table + "." + src.Column
			if src.NodeID != "" {
				ref += " (" + src.NodeID + ")"
			}
			if src.Expression != "" {
				ref += " via " + src.Expression
			}
			fmt.Fprintf(w, "  - %s\n", ref)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Upstream trace (%d):\n", len(res.Trace))
	for _, entry := range res.Trace {
		fmt.Fprintf(w, "  %*s%s.%s\n", entry.Depth*2, "", entry.Model, entry.Column)
	}
	return nil
}
