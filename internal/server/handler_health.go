package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/me/zoorunner/internal/store"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Store     string `json:"store"`
	Runs      int    `json:"runs"`
	Running   int    `json:"running"`
}

// handleHealth reports "degraded" when the store cannot be queried; the
// endpoint itself still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	resp := healthResponse{
		Status:    "healthy",
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Store:     "sqlite",
	}

	count := func(state string) (int, error) {
		_, total, err := s.store.ListRuns(r.Context(), store.ListOptions{Limit: 1, State: state})
		return total, err
	}
	var err error
	if resp.Runs, err = count(""); err == nil {
		resp.Running, err = count(string(store.RunRunning))
	}
	if err != nil {
		s.logger.Warn("health: store query failed", "error", err)
		resp.Status = "degraded"
		resp.Store = "unavailable"
	}
	respondOK(w, reqID, resp)
}
