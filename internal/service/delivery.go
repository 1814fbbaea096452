package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelichko/couriertrack/internal/event"
	"github.com/avelichko/couriertrack/internal/model"
	"github.com/avelichko/couriertrack/internal/realtime"
	"github.com/avelichko/couriertrack/internal/store"
)

type deliveryStore interface {
	GetByID(ctx context.Context, id int64) (model.Delivery, error)
	GetByPackage(ctx context.Context, packageID int64) (model.Delivery, error)
	ActiveByCourier(ctx context.Context, courierID int64) ([]model.Delivery, error)
	UpdateLocation(ctx context.Context, id int64, lat, lng float64, at time.Time) error
}

type packageReader interface {
	GetByID(ctx context.Context, id int64) (model.Package, error)
}

// DeliveryService serves courier-side delivery reads and location reports.
type DeliveryService struct {
	deliveries deliveryStore
	packages   packageReader
	events     eventPublisher
	log        *slog.Logger
}

// NewDeliveryService creates a delivery service. Events may be nil; location
// reports then update the row without a live broadcast.
func NewDeliveryService(deliveries *store.DeliveryStore, packages *store.PackageStore, events realtime.Router, logger *slog.Logger) *DeliveryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryService{deliveries: deliveries, packages: packages, events: events, log: logger}
}

// Get fetches one delivery for an admin, the owning courier, or the
// package's sender or recipient.
func (s *DeliveryService) Get(ctx context.Context, actor model.Identity, id int64) (model.Delivery, error) {
	d, err := s.deliveries.GetByID(ctx, id)
	if err != nil {
		return model.Delivery{}, err
	}
	if err := s.authorize(ctx, actor, d); err != nil {
		return model.Delivery{}, err
	}
	return d, nil
}

// ByPackage fetches the delivery leg for a package the caller can see. This
// is how clients resolve the delivery id to subscribe to for live tracking.
func (s *DeliveryService) ByPackage(ctx context.Context, actor model.Identity, packageID int64) (model.Delivery, error) {
	p, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return model.Delivery{}, err
	}
	if !canAccessPackage(actor, p) {
		return model.Delivery{}, ErrPermissionDenied
	}
	return s.deliveries.GetByPackage(ctx, packageID)
}

// ActiveForCourier returns the caller's open deliveries, oldest first.
func (s *DeliveryService) ActiveForCourier(ctx context.Context, actor model.Identity) ([]model.Delivery, error) {
	if actor.Role != model.RoleCourier {
		return nil, ErrPermissionDenied
	}
	return s.deliveries.ActiveByCourier(ctx, actor.UserID)
}

// UpdateLocation records a position fix on an open delivery and broadcasts
// it to live subscribers. Only the owning courier may report; locations are
// transient, so no notification rows are written.
func (s *DeliveryService) UpdateLocation(ctx context.Context, actor model.Identity, deliveryID int64, lat, lng float64) (model.Delivery, error) {
	if actor.Role != model.RoleCourier {
		return model.Delivery{}, ErrPermissionDenied
	}
	if lat < -90 || lat > 90 {
		return model.Delivery{}, fmt.Errorf("%w: latitude out of range", ErrInvalidInput)
	}
	if lng < -180 || lng > 180 {
		return model.Delivery{}, fmt.Errorf("%w: longitude out of range", ErrInvalidInput)
	}

	d, err := s.deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		return model.Delivery{}, err
	}
	if d.CourierID != actor.UserID {
		return model.Delivery{}, ErrPermissionDenied
	}
	if d.CompletedAt != nil {
		return model.Delivery{}, ErrDeliveryClosed
	}

	now := time.Now().UTC()
	if err := s.deliveries.UpdateLocation(ctx, d.ID, lat, lng, now); err != nil {
		// The row existed a moment ago, so a vanished row means the leg
		// completed concurrently.
		if errors.Is(err, store.ErrNotFound) {
			return model.Delivery{}, ErrDeliveryClosed
		}
		return model.Delivery{}, err
	}

	s.publish(&event.DeliveryLocationUpdated{DeliveryID: d.ID, Lat: lat, Lng: lng})

	d.CurrentLat = &lat
	d.CurrentLng = &lng
	d.LastLocationUpdate = &now
	s.log.Debug("location updated", "delivery_id", d.ID, "lat", lat, "lng", lng)
	return d, nil
}

func (s *DeliveryService) authorize(ctx context.Context, actor model.Identity, d model.Delivery) error {
	switch {
	case actor.Role == model.RoleAdmin:
		return nil
	case actor.Role == model.RoleCourier && d.CourierID == actor.UserID:
		return nil
	}
	p, err := s.packages.GetByID(ctx, d.PackageID)
	if err != nil {
		return err
	}
	if !canAccessPackage(actor, p) {
		return ErrPermissionDenied
	}
	return nil
}

func (s *DeliveryService) publish(ev event.Event) {
	if s.events == nil {
		return
	}
	if !s.events.Publish(ev) {
		s.log.Debug("event dropped, router not accepting", "type", fmt.Sprintf("%T", ev))
	}
}
