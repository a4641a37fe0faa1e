// Package diagnostics exposes a read-only HTTP surface over a running
// statemachine.Machine: JSON in/out, http.Error on failure, routed with
// chi.
package diagnostics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"sectionrouting/invariant"
	"sectionrouting/statemachine"
)

// Server wraps a Machine with the chi router answering the node's
// diagnostic queries (our_prefix, is_elder, neighbour_prefixes) plus a
// manual invariant-check trigger.
type Server struct {
	machine   *statemachine.Machine
	elderSize int
	router    chi.Router
}

// NewServer builds the chi router. elderSize is passed through to
// invariant.CheckNode for the manual check endpoint.
func NewServer(m *statemachine.Machine, elderSize int) *Server {
	s := &Server{machine: m, elderSize: elderSize}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/prefix", s.handlePrefix)
	r.Get("/elder", s.handleElder)
	r.Get("/neighbours", s.handleNeighbours)
	r.Post("/invariants/check", s.handleInvariantsCheck)
	s.router = r
	return s
}

// ServeHTTP lets Server be dropped straight into http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handlePrefix(w http.ResponseWriter, _ *http.Request) {
	mem, ok := s.machine.AsMember()
	if !ok {
		http.Error(w, "node has not yet joined a section", http.StatusConflict)
		return
	}
	writeJSON(w, struct {
		Prefix string `json:"prefix"`
	}{mem.OurPrefix().String()})
}

func (s *Server) handleElder(w http.ResponseWriter, _ *http.Request) {
	mem, ok := s.machine.AsMember()
	if !ok {
		http.Error(w, "node has not yet joined a section", http.StatusConflict)
		return
	}
	writeJSON(w, struct {
		IsElder bool `json:"is_elder"`
	}{mem.IsElder()})
}

func (s *Server) handleNeighbours(w http.ResponseWriter, _ *http.Request) {
	mem, ok := s.machine.AsMember()
	if !ok {
		http.Error(w, "node has not yet joined a section", http.StatusConflict)
		return
	}
	prefixes := make([]string, 0)
	for _, info := range mem.Chain().Neighbours {
		prefixes = append(prefixes, info.Prefix.String())
	}
	writeJSON(w, struct {
		NeighbourPrefixes []string `json:"neighbour_prefixes"`
	}{prefixes})
}

func (s *Server) handleInvariantsCheck(w http.ResponseWriter, _ *http.Request) {
	mem, ok := s.machine.AsMember()
	if !ok {
		http.Error(w, "node has not yet joined a section", http.StatusConflict)
		return
	}
	view := invariant.NodeView{
		Name:       mem.FullName(),
		IsElder:    mem.IsElder(),
		Our:        mem.Chain().Our,
		Neighbours: mem.Chain().Neighbours,
	}
	violations := invariant.CheckNode(view, s.elderSize)
	out := make([]invariant.Violation, 0, len(violations))
	out = append(out, violations...)
	writeJSON(w, struct {
		CheckID    string                `json:"check_id"`
		Violations []invariant.Violation `json:"violations"`
	}{uuid.NewString(), out})
}
