// Package commands implements the dbtrace subcommands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbtrace/internal/config"
	"github.com/leapstack-labs/dbtrace/internal/graph"
	"github.com/leapstack-labs/dbtrace/internal/lineage"
	"github.com/leapstack-labs/dbtrace/internal/manifest"
)

// getConfig retrieves the config loaded by the root command.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg, ok := config.FromContext(cmd.Context()); ok {
		return cfg
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

// loadGraph loads the manifest and builds a one-shot graph for CLI queries.
func loadGraph(cmd *cobra.Command) (*graph.Graph, error) {
	cfg := getConfig(cmd)
	log := config.Logger(cmd.Context())

	ing, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", cfg.ManifestPath, err)
	}

	g, errs := graph.Build(1, ing.Nodes, ing.Edges)
	for _, buildErr := range errs {
		log.Warn("dropped manifest edge", "error", buildErr)
	}
	return g, nil
}

// loadTracer builds a graph plus the tracer over it.
func loadTracer(cmd *cobra.Command) (*graph.Graph, *lineage.Tracer, error) {
	g, err := loadGraph(cmd)
	if err != nil {
		return nil, nil, err
	}

	cfg := getConfig(cmd)
	cache, err := lineage.NewCache(g.Generation(), cfg.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	return g, lineage.NewTracer(g, cache), nil
}
