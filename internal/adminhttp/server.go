// Package adminhttp is the ops-only HTTP surface: an unauthenticated
// liveness/telemetry endpoint, not the web admin UI spec.md excludes (that
// is a full management UI with auth and content editing).
package adminhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TickStats is a snapshot of the simulation tick loop's health, refreshed by
// the tick loop itself every tick via Server.ReportTick.
type TickStats struct {
	LastTickAt   time.Time
	LastTickDur  time.Duration
	TickCount    uint64
	EntityCount  int
	SessionCount int
}

// Server serves /healthz and /metrics/tick over its own listener, separate
// from the game's JSON-envelope session transport.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger

	tickCount   atomic.Uint64
	lastTickAt  atomic.Int64 // unix nanos
	lastTickDur atomic.Int64 // nanos
	entityCount atomic.Int64
	sessionCnt  atomic.Int64

	startedAt time.Time
}

func NewServer(bindAddress string, log *zap.Logger) *Server {
	s := &Server{log: log, startedAt: time.Now()}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/metrics/tick", s.handleTickMetrics).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         bindAddress,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// ReportTick is called by the tick loop every tick to update the snapshot
// served at /metrics/tick.
func (s *Server) ReportTick(dur time.Duration, entityCount, sessionCount int) {
	s.tickCount.Add(1)
	s.lastTickAt.Store(time.Now().UnixNano())
	s.lastTickDur.Store(int64(dur))
	s.entityCount.Store(int64(entityCount))
	s.sessionCnt.Store(int64(sessionCount))
}

func (s *Server) Start() error {
	if s.log != nil {
		s.log.Info("admin http listening", zap.String("addr", s.httpServer.Addr))
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleTickMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	lastTickAt := time.Time{}
	if nanos := s.lastTickAt.Load(); nanos != 0 {
		lastTickAt = time.Unix(0, nanos)
	}
	_ = json.NewEncoder(w).Encode(TickStats{
		LastTickAt:   lastTickAt,
		LastTickDur:  time.Duration(s.lastTickDur.Load()),
		TickCount:    s.tickCount.Load(),
		EntityCount:  int(s.entityCount.Load()),
		SessionCount: int(s.sessionCnt.Load()),
	})
}
