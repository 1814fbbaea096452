package apiclient

import (
	"context"

	"github.com/avelichko/couriertrack/internal/realtime"
	"github.com/avelichko/couriertrack/internal/service"
)

// AdminStats combines package counts with live broadcaster statistics.
type AdminStats struct {
	Packages service.PackageStats `json:"packages"`
	Realtime realtime.RouterStats `json:"realtime"`
}

// AdminStats fetches platform statistics. Admin token required.
func (c *Client) AdminStats(ctx context.Context) (AdminStats, error) {
	var stats AdminStats
	if err := c.get(ctx, "/api/admin/stats", nil, &stats); err != nil {
		return AdminStats{}, err
	}
	return stats, nil
}

// Announce broadcasts a message to every connected client. Admin token
// required.
func (c *Client) Announce(ctx context.Context, message string) error {
	req := struct {
		Message string `json:"message"`
	}{Message: message}
	return c.post(ctx, "/api/admin/announce", req, nil)
}
