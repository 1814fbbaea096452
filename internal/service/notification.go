package service

import (
	"context"
	"log/slog"

	"github.com/avelichko/couriertrack/internal/model"
	"github.com/avelichko/couriertrack/internal/store"
)

type notificationStore interface {
	ListByUser(ctx context.Context, userID int64, onlyUnread bool) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// NotificationService serves each user's own notification feed.
type NotificationService struct {
	notifs notificationStore
	log    *slog.Logger
}

// NewNotificationService creates a notification service.
func NewNotificationService(notifs *store.NotificationStore, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{notifs: notifs, log: logger}
}

// ListFor returns the caller's notifications, newest first.
func (s *NotificationService) ListFor(ctx context.Context, actor model.Identity, onlyUnread bool) ([]model.Notification, error) {
	return s.notifs.ListByUser(ctx, actor.UserID, onlyUnread)
}

// UnreadCount returns how many unread notifications the caller has.
func (s *NotificationService) UnreadCount(ctx context.Context, actor model.Identity) (int64, error) {
	return s.notifs.CountUnread(ctx, actor.UserID)
}

// MarkRead marks one of the caller's notifications as read. Rows belonging
// to other users come back as not found.
func (s *NotificationService) MarkRead(ctx context.Context, actor model.Identity, id int64) error {
	return s.notifs.MarkRead(ctx, id, actor.UserID)
}

// MarkAllRead marks the caller's whole feed as read and reports how many
// rows changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor model.Identity) (int64, error) {
	return s.notifs.MarkAllRead(ctx, actor.UserID)
}
