package api

import (
	"net/http"
	"strings"

	"github.com/avelichko/couriertrack/internal/event"
	"github.com/avelichko/couriertrack/internal/realtime"
	"github.com/avelichko/couriertrack/internal/service"
)

type adminStatsResponse struct {
	Packages service.PackageStats `json:"packages"`
	Realtime realtime.RouterStats `json:"realtime"`
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	pkgStats, err := s.deps.Packages.Stats(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, adminStatsResponse{
		Packages: pkgStats,
		Realtime: s.deps.Realtime.Stats(),
	})
}

type announceRequest struct {
	Message string `json:"message"`
}

type announceResponse struct {
	Queued bool `json:"queued"`
}

// handleAnnounce pushes a broadcast onto the live channel. Delivery is
// best-effort; the response only reports whether the router accepted it.
func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	queued := s.deps.Realtime.Publish(&event.SystemAnnouncement{Message: req.Message})
	if !queued {
		writeError(w, http.StatusServiceUnavailable, "broadcast channel unavailable")
		return
	}

	writeJSON(w, http.StatusAccepted, announceResponse{Queued: true})
}
