package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelichko/couriertrack/internal/model"
)

// NotificationStore persists per-user notifications.
type NotificationStore struct {
	db *pgxpool.Pool
}

// NewNotificationStore creates a notification store backed by the given pool.
func NewNotificationStore(db *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationColumns = `id, user_id, title, message, kind, is_read, related_package_id, created_at`

// InsertBatch writes one notification per recipient in a single round trip
// and returns how many rows landed.
func (s *NotificationStore) InsertBatch(ctx context.Context, notifs []model.Notification) (int64, error) {
	if len(notifs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, n := range notifs {
		batch.Queue(`
			INSERT INTO notifications (user_id, title, message, kind, related_package_id)
			VALUES ($1, $2, $3, $4, $5)`,
			n.UserID, n.Title, n.Message, n.Kind, n.RelatedPackageID)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range notifs {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert notification batch: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// ListByUser returns the user's notifications, newest first. With onlyUnread
// set, read notifications are filtered out.
func (s *NotificationStore) ListByUser(ctx context.Context, userID int64, onlyUnread bool) ([]model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if onlyUnread {
		q += ` AND NOT is_read`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifs []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Kind,
			&n.IsRead, &n.RelatedPackageID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifs = append(notifs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifs, nil
}

// CountUnread returns how many unread notifications the user has.
func (s *NotificationStore) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications as read. The user scope is
// part of the predicate so users cannot touch each other's rows.
func (s *NotificationStore) MarkRead(ctx context.Context, id, userID int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read and returns
// how many changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteReadBefore deletes read notifications created before the cutoff and
// returns how many went away. The housekeeper calls it on a schedule.
func (s *NotificationStore) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM notifications WHERE is_read AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
