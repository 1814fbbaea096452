package apiclient

import (
	"context"
	"fmt"
	"time"

	"github.com/avelichko/couriertrack/internal/model"
)

// CreatePackageRequest registers a new package for delivery.
type CreatePackageRequest struct {
	RecipientName         string     `json:"recipient_name"`
	RecipientPhone        string     `json:"recipient_phone,omitempty"`
	RecipientID           *int64     `json:"recipient_id,omitempty"`
	PickupAddress         string     `json:"pickup_address"`
	DeliveryAddress       string     `json:"delivery_address"`
	Description           string     `json:"description,omitempty"`
	WeightKg              float64    `json:"weight_kg"`
	ScheduledPickupTime   *time.Time `json:"scheduled_pickup_time,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
}

// TrackInfo is the public tracking subset served without authentication.
type TrackInfo struct {
	TrackingNumber        string              `json:"tracking_number"`
	Status                model.PackageStatus `json:"status"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
	EstimatedDeliveryTime *time.Time          `json:"estimated_delivery_time,omitempty"`
}

// CreatePackage registers a package for the authenticated sender.
func (c *Client) CreatePackage(ctx context.Context, req CreatePackageRequest) (model.Package, error) {
	var pkg model.Package
	if err := c.post(ctx, "/api/packages", req, &pkg); err != nil {
		return model.Package{}, err
	}
	return pkg, nil
}

// Packages lists the packages visible to the authenticated account.
func (c *Client) Packages(ctx context.Context) ([]model.Package, error) {
	var pkgs []model.Package
	if err := c.get(ctx, "/api/packages", nil, &pkgs); err != nil {
		return nil, err
	}
	return pkgs, nil
}

// Package fetches a single package by id.
func (c *Client) Package(ctx context.Context, id int64) (model.Package, error) {
	var pkg model.Package
	if err := c.get(ctx, fmt.Sprintf("/api/packages/%d", id), nil, &pkg); err != nil {
		return model.Package{}, err
	}
	return pkg, nil
}

// UpdatePackageStatus moves a package along its lifecycle.
func (c *Client) UpdatePackageStatus(ctx context.Context, id int64, status model.PackageStatus) (model.Package, error) {
	req := struct {
		Status model.PackageStatus `json:"status"`
	}{Status: status}

	var pkg model.Package
	if err := c.post(ctx, fmt.Sprintf("/api/packages/%d/status", id), req, &pkg); err != nil {
		return model.Package{}, err
	}
	return pkg, nil
}

// AssignPackage assigns a package to a courier. A nil courierID claims the
// package for the authenticated courier.
func (c *Client) AssignPackage(ctx context.Context, id int64, courierID *int64) (model.Package, error) {
	req := struct {
		CourierID *int64 `json:"courier_id,omitempty"`
	}{CourierID: courierID}

	var pkg model.Package
	if err := c.post(ctx, fmt.Sprintf("/api/packages/%d/assign", id), req, &pkg); err != nil {
		return model.Package{}, err
	}
	return pkg, nil
}

// CancelPackage cancels a package that has not reached a terminal state.
func (c *Client) CancelPackage(ctx context.Context, id int64) (model.Package, error) {
	var pkg model.Package
	if err := c.post(ctx, fmt.Sprintf("/api/packages/%d/cancel", id), struct{}{}, &pkg); err != nil {
		return model.Package{}, err
	}
	return pkg, nil
}

// Track looks up the public tracking state for a tracking number. No
// authentication required.
func (c *Client) Track(ctx context.Context, trackingNumber string) (TrackInfo, error) {
	var info TrackInfo
	if err := c.get(ctx, "/api/track/"+trackingNumber, nil, &info); err != nil {
		return TrackInfo{}, err
	}
	return info, nil
}

// DeliveryForPackage resolves the delivery leg attached to a package.
func (c *Client) DeliveryForPackage(ctx context.Context, packageID int64) (model.Delivery, error) {
	var d model.Delivery
	if err := c.get(ctx, fmt.Sprintf("/api/packages/%d/delivery", packageID), nil, &d); err != nil {
		return model.Delivery{}, err
	}
	return d, nil
}
