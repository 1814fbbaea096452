package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelichko/couriertrack/internal/model"
)

// DeliveryStore persists delivery legs.
type DeliveryStore struct {
	db *pgxpool.Pool
}

// NewDeliveryStore creates a delivery store backed by the given pool.
func NewDeliveryStore(db *pgxpool.Pool) *DeliveryStore {
	return &DeliveryStore{db: db}
}

const deliveryColumns = `id, package_id, courier_id, current_lat, current_lng,
	last_location_update, started_at, completed_at`

// Create inserts a delivery leg for a freshly assigned package.
func (s *DeliveryStore) Create(ctx context.Context, d model.Delivery) (model.Delivery, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO deliveries (package_id, courier_id, started_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		d.PackageID, d.CourierID, d.StartedAt,
	).Scan(&d.ID)
	if err != nil {
		return model.Delivery{}, fmt.Errorf("insert delivery: %w", err)
	}
	return d, nil
}

// GetByID fetches a delivery by primary key.
func (s *DeliveryStore) GetByID(ctx context.Context, id int64) (model.Delivery, error) {
	row := s.db.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id)
	d, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Delivery{}, ErrNotFound
		}
		return model.Delivery{}, fmt.Errorf("get delivery %d: %w", id, err)
	}
	return d, nil
}

// GetByPackage fetches the delivery leg for a package.
func (s *DeliveryStore) GetByPackage(ctx context.Context, packageID int64) (model.Delivery, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE package_id = $1`, packageID)
	d, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Delivery{}, ErrNotFound
		}
		return model.Delivery{}, fmt.Errorf("get delivery for package %d: %w", packageID, err)
	}
	return d, nil
}

// ActiveByCourier returns the courier's deliveries that have not completed,
// oldest first.
func (s *DeliveryStore) ActiveByCourier(ctx context.Context, courierID int64) ([]model.Delivery, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+deliveryColumns+` FROM deliveries
		WHERE courier_id = $1 AND completed_at IS NULL
		ORDER BY started_at`,
		courierID)
	if err != nil {
		return nil, fmt.Errorf("list active deliveries: %w", err)
	}
	defer rows.Close()

	var ds []model.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		ds = append(ds, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active deliveries: %w", err)
	}
	return ds, nil
}

// UpdateLocation records the courier's latest position on an open delivery.
func (s *DeliveryStore) UpdateLocation(ctx context.Context, id int64, lat, lng float64, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE deliveries SET current_lat = $2, current_lng = $3, last_location_update = $4
		WHERE id = $1 AND completed_at IS NULL`,
		id, lat, lng, at)
	if err != nil {
		return fmt.Errorf("update delivery location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Complete closes the delivery leg for a package when it reaches a terminal
// status. Already-closed legs are left untouched.
func (s *DeliveryStore) Complete(ctx context.Context, packageID int64, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE deliveries SET completed_at = $2
		WHERE package_id = $1 AND completed_at IS NULL`,
		packageID, at)
	if err != nil {
		return fmt.Errorf("complete delivery: %w", err)
	}
	return nil
}

func scanDelivery(row pgx.Row) (model.Delivery, error) {
	var d model.Delivery
	err := row.Scan(&d.ID, &d.PackageID, &d.CourierID, &d.CurrentLat, &d.CurrentLng,
		&d.LastLocationUpdate, &d.StartedAt, &d.CompletedAt)
	return d, err
}
