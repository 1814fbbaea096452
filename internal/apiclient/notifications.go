package apiclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/avelichko/couriertrack/internal/model"
)

// NotificationsPage is the notification list with the account's unread
// count.
type NotificationsPage struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int64                `json:"unread"`
}

// Notifications lists the account's notifications, optionally narrowed to
// unread ones.
func (c *Client) Notifications(ctx context.Context, onlyUnread bool) (NotificationsPage, error) {
	var query url.Values
	if onlyUnread {
		query = url.Values{"unread": []string{"true"}}
	}

	var page NotificationsPage
	if err := c.get(ctx, "/api/notifications", query, &page); err != nil {
		return NotificationsPage{}, err
	}
	return page, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.post(ctx, fmt.Sprintf("/api/notifications/%d/read", id), struct{}{}, nil)
}

// MarkAllNotificationsRead marks every unread notification as read and
// returns how many flipped.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var resp struct {
		Marked int64 `json:"marked"`
	}
	if err := c.post(ctx, "/api/notifications/read-all", struct{}{}, &resp); err != nil {
		return 0, err
	}
	return resp.Marked, nil
}
