// Package server exposes the lineage graph over HTTP and keeps it fresh
// as the manifest changes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/dbtrace/internal/graph"
	"github.com/leapstack-labs/dbtrace/internal/lineage"
	"github.com/leapstack-labs/dbtrace/internal/manifest"
)

// snapshot bundles a graph with the tracer built for it. Requests read one
// coherent snapshot; Reload swaps in a new one atomically.
type snapshot struct {
	graph  *graph.Graph
	tracer *lineage.Tracer
}

// Config holds configuration for the lineage server.
type Config struct {
	ManifestPath string
	Listen       string
	Watch        bool
	TraceDepth   int
	CacheSize    int
	Logger       *slog.Logger
}

// Server serves lineage queries over a manifest-backed graph.
type Server struct {
	manifestPath string
	listen       string
	watch        bool
	traceDepth   int
	cacheSize    int
	logger       *slog.Logger

	snap       atomic.Pointer[snapshot]
	generation atomic.Uint64
}

// New creates a server. Call Reload before Serve to load the initial graph.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = lineage.DefaultCacheSize
	}
	return &Server{
		manifestPath: cfg.ManifestPath,
		listen:       cfg.Listen,
		watch:        cfg.Watch,
		traceDepth:   cfg.TraceDepth,
		cacheSize:    cacheSize,
		logger:       log,
	}
}

// Reload re-reads the manifest, rebuilds the graph under a fresh generation,
// and swaps it in. In-flight requests keep the snapshot they started with.
func (s *Server) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ing, err := manifest.Load(s.manifestPath)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	gen := s.generation.Add(1)
	g, errs := graph.Build(gen, ing.Nodes, ing.Edges)
	for _, buildErr := range errs {
		s.logger.Warn("dropped manifest edge", "error", buildErr)
	}

	cache, err := lineage.NewCache(gen, s.cacheSize)
	if err != nil {
		return fmt.Errorf("creating column cache: %w", err)
	}

	s.snap.Store(&snapshot{
		graph:  g,
		tracer: lineage.NewTracer(g, cache),
	})
	s.logger.Info("graph loaded",
		"generation", gen,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"dropped_edges", len(errs))
	return nil
}

// current returns the active snapshot, or nil before the first Reload.
func (s *Server) current() *snapshot {
	return s.snap.Load()
}

// Graph returns the active graph, or nil before the first Reload.
func (s *Server) Graph() *graph.Graph {
	if snap := s.current(); snap != nil {
		return snap.graph
	}
	return nil
}

// Tracer returns the active tracer, or nil before the first Reload.
func (s *Server) Tracer() *lineage.Tracer {
	if snap := s.current(); snap != nil {
		return snap.tracer
	}
	return nil
}

// Handler builds the HTTP routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/node/{id}", s.handleNode)
		r.Get("/lineage/{id}", s.handleLineage)
		r.Get("/columns/{id}", s.handleColumns)
		r.Get("/trace/{id}/{column}", s.handleTrace)
		r.Post("/reload", s.handleReload)
	})
	return r
}

// Serve starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting lineage server", "addr", s.listen)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.listen,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchManifest(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down lineage server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
