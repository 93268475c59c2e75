// Package server exposes a read-only JSON status API and the Prometheus endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"KillZoneSentinel/internal/agent"
	"KillZoneSentinel/internal/model"
)

// Source is the read side of the agent.
type Source interface {
	Stats() agent.Stats
	Status() agent.Status
	Orders() []model.OrderPlan
	OpenOrders() []model.OrderPlan
	LatestBias() (model.BiasSnapshot, bool)
	LatestStructure() (model.StructureZone, bool)
}

// Server serves the status API.
type Server struct {
	router *mux.Router
	srv    *http.Server
	src    Source
}

// New builds the router. metrics may be nil.
func New(addr string, src Source, metrics http.Handler) *Server {
	s := &Server{router: mux.NewRouter(), src: src}
	s.routes(metrics)
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes(metrics http.Handler) {
	s.router.Use(requestLogging)
	if metrics != nil {
		s.router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(jsonContentType)
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/status", s.status).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.summary).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.orders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.order).Methods(http.MethodGet)
	api.HandleFunc("/bias", s.bias).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.srv.Addr).Msg("status server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Status())
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Stats())
}

func (s *Server) orders(w http.ResponseWriter, r *http.Request) {
	orders := s.src.Orders()
	if r.URL.Query().Get("open") == "true" {
		orders = s.src.OpenOrders()
	}
	if orders == nil {
		orders = []model.OrderPlan{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) order(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	for _, o := range s.src.Orders() {
		if o.ID == id {
			writeJSON(w, http.StatusOK, o)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown order " + id})
}

func (s *Server) bias(w http.ResponseWriter, r *http.Request) {
	b, ok := s.src.LatestBias()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no bias yet"})
		return
	}
	resp := map[string]any{"bias": b}
	if z, ok := s.src.LatestStructure(); ok {
		resp["structure"] = z
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()[:8]
		w.Header().Set("X-Request-ID", id)
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		log.Debug().Str("id", id).Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).Dur("took", time.Since(start)).Msg("request")
	})
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
