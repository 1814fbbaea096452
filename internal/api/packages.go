package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avelichko/couriertrack/internal/model"
	"github.com/avelichko/couriertrack/internal/service"
)

type createPackageRequest struct {
	RecipientName         string     `json:"recipient_name"`
	RecipientPhone        string     `json:"recipient_phone"`
	RecipientID           *int64     `json:"recipient_id"`
	PickupAddress         string     `json:"pickup_address"`
	DeliveryAddress       string     `json:"delivery_address"`
	Description           string     `json:"description"`
	WeightKg              float64    `json:"weight_kg"`
	ScheduledPickupTime   *time.Time `json:"scheduled_pickup_time"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time"`
}

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req createPackageRequest
	if !s.decode(w, r, &req) {
		return
	}

	pkg, err := s.deps.Packages.Create(r.Context(), actor, service.CreatePackageInput{
		RecipientName:         req.RecipientName,
		RecipientPhone:        req.RecipientPhone,
		RecipientID:           req.RecipientID,
		PickupAddress:         req.PickupAddress,
		DeliveryAddress:       req.DeliveryAddress,
		Description:           req.Description,
		WeightKg:              req.WeightKg,
		ScheduledPickupTime:   req.ScheduledPickupTime,
		EstimatedDeliveryTime: req.EstimatedDeliveryTime,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, pkg)
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	pkgs, err := s.deps.Packages.ListFor(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pkgs)
}

func (s *Server) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid package id")
		return
	}

	pkg, err := s.deps.Packages.Get(r.Context(), actor, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pkg)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid package id")
		return
	}

	var req updateStatusRequest
	if !s.decode(w, r, &req) {
		return
	}

	pkg, err := s.deps.Packages.UpdateStatus(r.Context(), actor, id, model.PackageStatus(req.Status))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pkg)
}

type assignRequest struct {
	// CourierID is optional; couriers omit it to claim the package for
	// themselves.
	CourierID *int64 `json:"courier_id"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid package id")
		return
	}

	var req assignRequest
	if !s.decode(w, r, &req) {
		return
	}

	courierID := actor.UserID
	if req.CourierID != nil {
		courierID = *req.CourierID
	}

	pkg, err := s.deps.Packages.Assign(r.Context(), actor, id, courierID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pkg)
}

func (s *Server) handleCancelPackage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid package id")
		return
	}

	pkg, err := s.deps.Packages.Cancel(r.Context(), actor, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pkg)
}

// trackResponse is the public tracking subset. Party ids, addresses and
// phone numbers never leave the authenticated surface.
type trackResponse struct {
	TrackingNumber        string              `json:"tracking_number"`
	Status                model.PackageStatus `json:"status"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
	EstimatedDeliveryTime *time.Time          `json:"estimated_delivery_time,omitempty"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "trackingNumber")
	if number == "" {
		writeError(w, http.StatusBadRequest, "missing tracking number")
		return
	}

	pkg, err := s.deps.Packages.Track(r.Context(), number)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, trackResponse{
		TrackingNumber:        pkg.TrackingNumber,
		Status:                pkg.Status,
		CreatedAt:             pkg.CreatedAt,
		UpdatedAt:             pkg.UpdatedAt,
		EstimatedDeliveryTime: pkg.EstimatedDeliveryTime,
	})
}

func (s *Server) handleDeliveryByPackage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid package id")
		return
	}

	d, err := s.deps.Deliveries.ByPackage(r.Context(), actor, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}
