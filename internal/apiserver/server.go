// Package apiserver serves read-only views of the operational state.
//
// In GET /api/data durations are whole seconds and session_start is an
// RFC3339 timestamp (null when no session is open), not epoch seconds.
package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"FlowSentinel/internal/model"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Snapshotter exposes the current operational state.
type Snapshotter interface {
	Snapshot() model.Snapshot
}

// StatusResponse is the body of GET /api/data.
type StatusResponse struct {
	FlowLMin        float64    `json:"flow_l_min"`
	FlowLSec        float64    `json:"flow_l_sec"`
	TotalL          float64    `json:"total_l"`
	WaterStatus     string     `json:"water_status"`
	Leak            bool       `json:"leak"`
	LeakDuration    int64      `json:"leak_duration"`
	EstimatedCost   float64    `json:"estimated_cost"`
	SessionStart    *time.Time `json:"session_start"`
	SessionDuration int64      `json:"session_duration"`
}

// NewStatusResponse converts a snapshot to its wire form. Durations are
// whole seconds.
func NewStatusResponse(s model.Snapshot) StatusResponse {
	return StatusResponse{
		FlowLMin:        s.FlowPerMinute,
		FlowLSec:        s.FlowPerSecond,
		TotalL:          s.TotalLiters,
		WaterStatus:     string(s.Status),
		Leak:            s.LeakActive,
		LeakDuration:    int64(s.LeakDuration / time.Second),
		EstimatedCost:   s.EstimatedCost.InexactFloat64(),
		SessionStart:    s.SessionStart,
		SessionDuration: int64(s.SessionDuration / time.Second),
	}
}

// Server is the status query surface.
type Server struct {
	state      Snapshotter
	sourceName string
	gatherer   prometheus.Gatherer
	srv        *http.Server
	logger     *zap.Logger
}

// New creates a Server listening on addr.
func New(addr string, st Snapshotter, sourceName string, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{state: st, sourceName: sourceName, gatherer: gatherer, logger: logger.Named("http")}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router returns the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/api/data", s.data()).Methods(http.MethodGet)
	r.Handle("/healthz", s.health()).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard api listening", zap.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("dashboard api stopped")
	return nil
}

func (s *Server) data() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, NewStatusResponse(s.state.Snapshot()))
	})
}

func (s *Server) health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := s.state.Snapshot()
		s.writeJSON(w, map[string]any{
			"status":   "ok",
			"source":   s.sourceName,
			"readings": snap.Readings,
		})
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}
