package api

import (
	"net/http"
)

func (s *Server) handleActiveDeliveries(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	deliveries, err := s.deps.Deliveries.ActiveForCourier(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deliveries)
}

func (s *Server) handleGetDelivery(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid delivery id")
		return
	}

	d, err := s.deps.Deliveries.Get(r.Context(), actor, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid delivery id")
		return
	}

	var req locationRequest
	if !s.decode(w, r, &req) {
		return
	}

	d, err := s.deps.Deliveries.UpdateLocation(r.Context(), actor, id, req.Lat, req.Lng)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}
