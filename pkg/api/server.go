package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qraiop/chaos-go/pkg/log"
	"github.com/qraiop/chaos-go/pkg/orchestrator"
	"github.com/qraiop/chaos-go/pkg/types"
)

// Server exposes the experiment submission API
type Server struct {
	Orchestrator *orchestrator.Orchestrator

	httpServer *http.Server
}

// NewServer wires the routes on the given listen address
func NewServer(addr string, orc *orchestrator.Orchestrator) *Server {
	server := &Server{Orchestrator: orc}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", server.handleHealth)
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/api/v1/experiments", func(r chi.Router) {
		r.Post("/", server.handleSubmit)
		r.Get("/", server.handleList)
		r.Get("/{id}", server.handleGet)
		r.Post("/{id}/abort", server.handleAbort)
	})

	server.httpServer = &http.Server{Addr: addr, Handler: router}
	return server
}

// Handler returns the route tree, used by the tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.Infof("[API]: Listening on %v", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmit accepts an experiment config and starts the run in the
// background, the returned id is immediately usable for get and abort
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var config types.ExperimentConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		writeError(w, http.StatusBadRequest, "unable to decode the experiment config: "+err.Error())
		return
	}

	id, err := s.Orchestrator.Submit(config)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, _ := s.Orchestrator.Get(id)
	writeJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var filter []types.ExperimentStatus
	if status := r.URL.Query().Get("status"); status != "" {
		filter = append(filter, types.ExperimentStatus(status))
	}
	writeJSON(w, http.StatusOK, s.Orchestrator.List(filter...))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, ok := s.Orchestrator.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "experiment not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.Orchestrator.Abort(r.Context(), id) {
		writeError(w, http.StatusConflict, "experiment is not running: "+id)
		return
	}
	result, _ := s.Orchestrator.Get(id)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("[API]: Unable to encode the response, err: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
