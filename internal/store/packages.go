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

// PackageStore persists packages.
type PackageStore struct {
	db *pgxpool.Pool
}

// NewPackageStore creates a package store backed by the given pool.
func NewPackageStore(db *pgxpool.Pool) *PackageStore {
	return &PackageStore{db: db}
}

const packageColumns = `id, tracking_number, sender_id, courier_id, recipient_id,
	recipient_name, recipient_phone, pickup_address, delivery_address,
	description, weight_kg, status, scheduled_pickup_time,
	estimated_delivery_time, created_at, updated_at`

// Create inserts a new package and returns it with generated fields populated.
func (s *PackageStore) Create(ctx context.Context, p model.Package) (model.Package, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO packages (tracking_number, sender_id, recipient_id, recipient_name,
			recipient_phone, pickup_address, delivery_address, description, weight_kg,
			status, scheduled_pickup_time, estimated_delivery_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		p.TrackingNumber, p.SenderID, p.RecipientID, p.RecipientName,
		p.RecipientPhone, p.PickupAddress, p.DeliveryAddr, p.Description, p.WeightKg,
		p.Status, p.ScheduledPickupTime, p.EstimatedDeliveryTime,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Package{}, fmt.Errorf("insert package: %w", err)
	}
	return p, nil
}

// GetByID fetches a package by primary key.
func (s *PackageStore) GetByID(ctx context.Context, id int64) (model.Package, error) {
	row := s.db.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)
	p, err := scanPackage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Package{}, ErrNotFound
		}
		return model.Package{}, fmt.Errorf("get package %d: %w", id, err)
	}
	return p, nil
}

// GetByTracking fetches a package by its tracking number.
func (s *PackageStore) GetByTracking(ctx context.Context, trackingNumber string) (model.Package, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+packageColumns+` FROM packages WHERE tracking_number = $1`, trackingNumber)
	p, err := scanPackage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Package{}, ErrNotFound
		}
		return model.Package{}, fmt.Errorf("get package by tracking number: %w", err)
	}
	return p, nil
}

// List returns all packages, newest first.
func (s *PackageStore) List(ctx context.Context) ([]model.Package, error) {
	return s.listWhere(ctx, ``)
}

// ListBySender returns packages created by the given sender, newest first.
func (s *PackageStore) ListBySender(ctx context.Context, senderID int64) ([]model.Package, error) {
	return s.listWhere(ctx, `WHERE sender_id = $1`, senderID)
}

// ListForCourier returns packages assigned to the courier plus unassigned ones
// still open for pickup, newest first.
func (s *PackageStore) ListForCourier(ctx context.Context, courierID int64) ([]model.Package, error) {
	return s.listWhere(ctx, `WHERE courier_id = $1 OR status = $2`, courierID, model.StatusCreated)
}

// ListByRecipient returns packages addressed to the given recipient, newest first.
func (s *PackageStore) ListByRecipient(ctx context.Context, recipientID int64) ([]model.Package, error) {
	return s.listWhere(ctx, `WHERE recipient_id = $1`, recipientID)
}

func (s *PackageStore) listWhere(ctx context.Context, where string, args ...any) ([]model.Package, error) {
	q := `SELECT ` + packageColumns + ` FROM packages `
	if where != "" {
		q += where + " "
	}
	q += `ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var pkgs []model.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		pkgs = append(pkgs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return pkgs, nil
}

// UpdateStatus moves a package from one status to another. The old status is
// part of the predicate so concurrent transitions cannot overwrite each other;
// a zero-row update reports ErrStaleStatus.
func (s *PackageStore) UpdateStatus(ctx context.Context, id int64, from, to model.PackageStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE packages SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("update package status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

// Assign attaches a courier to a still-unassigned package and moves it to
// assigned. Losing the race to another courier reports ErrStaleStatus.
func (s *PackageStore) Assign(ctx context.Context, id, courierID int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE packages SET courier_id = $2, status = $3, updated_at = now()
		WHERE id = $1 AND status = $4 AND courier_id IS NULL`,
		id, courierID, model.StatusAssigned, model.StatusCreated)
	if err != nil {
		return fmt.Errorf("assign package: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

// CountsByStatus returns the number of packages in each status.
func (s *PackageStore) CountsByStatus(ctx context.Context) (map[model.PackageStatus]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT status, count(*) FROM packages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count packages by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.PackageStatus]int64)
	for rows.Next() {
		var status model.PackageStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count packages by status: %w", err)
	}
	return counts, nil
}

// StaleUnassigned returns packages still unassigned after the cutoff, oldest
// first. The dispatch sweeper uses it to re-announce forgotten packages.
func (s *PackageStore) StaleUnassigned(ctx context.Context, cutoff time.Time) ([]model.Package, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+packageColumns+` FROM packages
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at`,
		model.StatusCreated, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale packages: %w", err)
	}
	defer rows.Close()

	var pkgs []model.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		pkgs = append(pkgs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stale packages: %w", err)
	}
	return pkgs, nil
}

func scanPackage(row pgx.Row) (model.Package, error) {
	var p model.Package
	err := row.Scan(&p.ID, &p.TrackingNumber, &p.SenderID, &p.CourierID, &p.RecipientID,
		&p.RecipientName, &p.RecipientPhone, &p.PickupAddress, &p.DeliveryAddr,
		&p.Description, &p.WeightKg, &p.Status, &p.ScheduledPickupTime,
		&p.EstimatedDeliveryTime, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
