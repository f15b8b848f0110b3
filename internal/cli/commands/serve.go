package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbtrace/internal/config"
	"github.com/leapstack-labs/dbtrace/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lineage API over HTTP",
		Long: `Load the manifest and serve lineage queries over a local HTTP API.

With --watch the server reloads the graph whenever the manifest file
changes on disk.`,
		Example: `  # Serve the default manifest on the default address
  dbtrace serve

  # Serve a specific manifest and reload on change
  dbtrace serve --manifest target/manifest.json --watch

  # Bind elsewhere
  dbtrace serve --listen 0.0.0.0:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().String("listen", "", "Address to listen on")
	cmd.Flags().Bool("watch", false, "Reload the graph when the manifest changes")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg := getConfig(cmd)
	log := config.Logger(cmd.Context())

	// Subcommand flags override config the same way persistent flags do.
	listen := cfg.Listen
	if cmd.Flags().Changed("listen") {
		listen, _ = cmd.Flags().GetString("listen")
	}
	watch := cfg.Watch
	if cmd.Flags().Changed("watch") {
		watch, _ = cmd.Flags().GetBool("watch")
	}

	srv := server.New(server.Config{
		ManifestPath: cfg.ManifestPath,
		Listen:       listen,
		Watch:        watch,
		TraceDepth:   cfg.TraceDepth,
		CacheSize:    cfg.CacheSize,
		Logger:       log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Reload(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	return srv.Serve(ctx)
}
