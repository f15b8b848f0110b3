package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/dbtrace/internal/graph"
	"github.com/leapstack-labs/dbtrace/internal/lineage"
)

type graphResponse struct {
	Generation uint64        `json:"generation"`
	Nodes      []*graph.Node `json:"nodes"`
	Edges      []graph.Edge  `json:"edges"`
}

type lineageResponse struct {
	ID         string   `json:"id"`
	Depth      int      `json:"depth"`
	Upstream   []string `json:"upstream"`
	Downstream []string `json:"downstream"`
}

type reloadResponse struct {
	Generation uint64 `json:"generation"`
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Generation uint64 `json:"generation"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeQueryError maps lookup failures to HTTP statuses.
func writeQueryError(w http.ResponseWriter, err error) {
	var notFound *graph.NotFoundError
	var colNotFound *lineage.ColumnNotFoundError
	switch {
	case errors.As(err, &notFound), errors.As(err, &colNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// activeSnapshot fetches the current snapshot, writing 503 when the graph
// has not been loaded yet.
func (s *Server) activeSnapshot(w http.ResponseWriter) *snapshot {
	snap := s.current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "graph not loaded")
	}
	return snap
}

// depthParam parses the optional depth query parameter, falling back to the
// server's configured default.
func (s *Server) depthParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("depth")
	if raw == "" {
		return s.traceDepth, nil
	}
	depth, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("depth must be an integer")
	}
	return depth, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if snap := s.current(); snap != nil {
		resp.Generation = snap.graph.Generation()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	snap := s.activeSnapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, graphResponse{
		Generation: snap.graph.Generation(),
		Nodes:      snap.graph.Nodes(),
		Edges:      snap.graph.Edges(),
	})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	snap := s.activeSnapshot(w)
	if snap == nil {
		return
	}
	node, err := snap.graph.Node(chi.URLParam(r, "id"))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	snap := s.activeSnapshot(w)
	if snap == nil {
		return
	}
	depth, err := s.depthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	upstream, err := snap.graph.Upstream(id, depth)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	downstream, err := snap.graph.Downstream(id, depth)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lineageResponse{
		ID:         id,
		Depth:      depth,
		Upstream:   upstream,
		Downstream: downstream,
	})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	snap := s.activeSnapshot(w)
	if snap == nil {
		return
	}
	cols, err := snap.tracer.ResolveColumns(chi.URLParam(r, "id"))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	snap := s.activeSnapshot(w)
	if snap == nil {
		return
	}
	depth, err := s.depthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := snap.tracer.TraceColumn(chi.URLParam(r, "id"), chi.URLParam(r, "column"), depth)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap := s.current()
	writeJSON(w, http.StatusOK, reloadResponse{
		Generation: snap.graph.Generation(),
		Nodes:      snap.graph.NodeCount(),
		Edges:      snap.graph.EdgeCount(),
	})
}
