package apiclient

import (
	"context"
	"fmt"

	"github.com/avelichko/couriertrack/internal/model"
)

// ActiveDeliveries lists the authenticated courier's open delivery legs.
func (c *Client) ActiveDeliveries(ctx context.Context) ([]model.Delivery, error) {
	var ds []model.Delivery
	if err := c.get(ctx, "/api/deliveries/active", nil, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// Delivery fetches a single delivery by id.
func (c *Client) Delivery(ctx context.Context, id int64) (model.Delivery, error) {
	var d model.Delivery
	if err := c.get(ctx, fmt.Sprintf("/api/deliveries/%d", id), nil, &d); err != nil {
		return model.Delivery{}, err
	}
	return d, nil
}

// UpdateLocation reports the courier's position on a delivery.
func (c *Client) UpdateLocation(ctx context.Context, deliveryID int64, lat, lng float64) (model.Delivery, error) {
	req := struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}{Lat: lat, Lng: lng}

	var d model.Delivery
	if err := c.post(ctx, fmt.Sprintf("/api/deliveries/%d/location", deliveryID), req, &d); err != nil {
		return model.Delivery{}, err
	}
	return d, nil
}
