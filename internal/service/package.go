package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avelichko/couriertrack/internal/event"
	"github.com/avelichko/couriertrack/internal/model"
	"github.com/avelichko/couriertrack/internal/presence"
	"github.com/avelichko/couriertrack/internal/realtime"
	"github.com/avelichko/couriertrack/internal/store"
)

type packageStore interface {
	Create(ctx context.Context, p model.Package) (model.Package, error)
	GetByID(ctx context.Context, id int64) (model.Package, error)
	GetByTracking(ctx context.Context, trackingNumber string) (model.Package, error)
	List(ctx context.Context) ([]model.Package, error)
	ListBySender(ctx context.Context, senderID int64) ([]model.Package, error)
	ListForCourier(ctx context.Context, courierID int64) ([]model.Package, error)
	ListByRecipient(ctx context.Context, recipientID int64) ([]model.Package, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.PackageStatus) error
	Assign(ctx context.Context, id, courierID int64) error
	CountsByStatus(ctx context.Context) (map[model.PackageStatus]int64, error)
}

type deliveryWriter interface {
	Create(ctx context.Context, d model.Delivery) (model.Delivery, error)
	Complete(ctx context.Context, packageID int64, at time.Time) error
}

type userDirectory interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
	IDsByRole(ctx context.Context, role model.Role) ([]int64, error)
}

type notificationWriter interface {
	InsertBatch(ctx context.Context, notifs []model.Notification) (int64, error)
}

type eventPublisher interface {
	Publish(ev event.Event) bool
}

type presenceSource interface {
	OnlineCourierIDs(ctx context.Context) ([]int64, error)
}

// PackageService owns the package lifecycle: creation, assignment and status
// transitions, with the persisted notifications and events each step emits.
type PackageService struct {
	packages   packageStore
	deliveries deliveryWriter
	users      userDirectory
	notifs     notificationWriter
	presence   presenceSource
	events     eventPublisher
	log        *slog.Logger
}

// NewPackageService creates a package service. Presence and events may be
// nil; creation then offers packages to no couriers and publishes nothing.
func NewPackageService(
	packages *store.PackageStore,
	deliveries *store.DeliveryStore,
	users *store.UserStore,
	notifs *store.NotificationStore,
	pres *presence.Tracker,
	events realtime.Router,
	logger *slog.Logger,
) *PackageService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PackageService{
		packages:   packages,
		deliveries: deliveries,
		users:      users,
		notifs:     notifs,
		events:     events,
		log:        logger,
	}
	if pres != nil {
		s.presence = pres
	}
	return s
}

// CreatePackageInput is the payload for posting a new package.
type CreatePackageInput struct {
	RecipientName         string
	RecipientPhone        string
	RecipientID           *int64
	PickupAddress         string
	DeliveryAddress       string
	Description           string
	WeightKg              float64
	ScheduledPickupTime   *time.Time
	EstimatedDeliveryTime *time.Time
}

// Create registers a new package for the calling sender, notifies admins and
// the couriers currently online, and publishes PackageCreated.
func (s *PackageService) Create(ctx context.Context, actor model.Identity, in CreatePackageInput) (model.Package, error) {
	if actor.Role != model.RoleSender && actor.Role != model.RoleAdmin {
		return model.Package{}, ErrPermissionDenied
	}
	switch {
	case strings.TrimSpace(in.RecipientName) == "":
		return model.Package{}, fmt.Errorf("%w: recipient name required", ErrInvalidInput)
	case strings.TrimSpace(in.PickupAddress) == "":
		return model.Package{}, fmt.Errorf("%w: pickup address required", ErrInvalidInput)
	case strings.TrimSpace(in.DeliveryAddress) == "":
		return model.Package{}, fmt.Errorf("%w: delivery address required", ErrInvalidInput)
	case in.WeightKg <= 0:
		return model.Package{}, fmt.Errorf("%w: weight must be positive", ErrInvalidInput)
	}

	p, err := s.packages.Create(ctx, model.Package{
		TrackingNumber:        model.NewTrackingNumber(),
		SenderID:              actor.UserID,
		RecipientID:           in.RecipientID,
		RecipientName:         in.RecipientName,
		RecipientPhone:        in.RecipientPhone,
		PickupAddress:         in.PickupAddress,
		DeliveryAddr:          in.DeliveryAddress,
		Description:           in.Description,
		WeightKg:              in.WeightKg,
		Status:                model.StatusCreated,
		ScheduledPickupTime:   in.ScheduledPickupTime,
		EstimatedDeliveryTime: in.EstimatedDeliveryTime,
	})
	if err != nil {
		return model.Package{}, err
	}

	eligible := s.eligibleCouriers(ctx)
	s.notifyCreated(ctx, p, eligible)
	s.publish(&event.PackageCreated{
		PackageID:          p.ID,
		TrackingNumber:     p.TrackingNumber,
		SenderID:           p.SenderID,
		PickupAddress:      p.PickupAddress,
		DeliveryAddress:    p.DeliveryAddr,
		EligibleCourierIDs: eligible,
	})

	s.log.Info("package created",
		"package_id", p.ID, "tracking_number", p.TrackingNumber, "sender_id", p.SenderID)
	return p, nil
}

// Get fetches one package, enforcing the caller's visibility.
func (s *PackageService) Get(ctx context.Context, actor model.Identity, id int64) (model.Package, error) {
	p, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return model.Package{}, err
	}
	if !canAccessPackage(actor, p) {
		return model.Package{}, ErrPermissionDenied
	}
	return p, nil
}

// ListFor returns the packages visible to the caller: admins see everything,
// senders their own, couriers their assignments plus unclaimed packages,
// recipients packages addressed to them.
func (s *PackageService) ListFor(ctx context.Context, actor model.Identity) ([]model.Package, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return s.packages.List(ctx)
	case model.RoleSender:
		return s.packages.ListBySender(ctx, actor.UserID)
	case model.RoleCourier:
		return s.packages.ListForCourier(ctx, actor.UserID)
	case model.RoleRecipient:
		return s.packages.ListByRecipient(ctx, actor.UserID)
	}
	return nil, ErrPermissionDenied
}

// Track looks a package up by tracking number. Public, no identity required.
func (s *PackageService) Track(ctx context.Context, trackingNumber string) (model.Package, error) {
	return s.packages.GetByTracking(ctx, trackingNumber)
}

// UpdateStatus moves a package along the lifecycle. Assignment has its own
// operation and is rejected here.
func (s *PackageService) UpdateStatus(ctx context.Context, actor model.Identity, id int64, to model.PackageStatus) (model.Package, error) {
	if !to.Valid() {
		return model.Package{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}
	if to == model.StatusAssigned {
		return model.Package{}, fmt.Errorf("%w: assignment goes through assign", ErrInvalidTransition)
	}

	p, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return model.Package{}, err
	}
	if !canUpdateStatus(actor, p) {
		return model.Package{}, ErrPermissionDenied
	}
	return s.applyTransition(ctx, p, to)
}

// Assign attaches a courier to an unassigned package and opens its delivery
// leg. Admins assign anyone; couriers claim for themselves only.
func (s *PackageService) Assign(ctx context.Context, actor model.Identity, packageID, courierID int64) (model.Package, error) {
	switch actor.Role {
	case model.RoleAdmin:
		if courierID == 0 {
			return model.Package{}, fmt.Errorf("%w: courier_id required", ErrInvalidInput)
		}
	case model.RoleCourier:
		if courierID == 0 {
			courierID = actor.UserID
		}
		if courierID != actor.UserID {
			return model.Package{}, ErrPermissionDenied
		}
	default:
		return model.Package{}, ErrPermissionDenied
	}

	target, err := s.users.GetByID(ctx, courierID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Package{}, ErrNotCourier
		}
		return model.Package{}, err
	}
	if target.Role != model.RoleCourier || !target.IsActive {
		return model.Package{}, ErrNotCourier
	}

	p, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return model.Package{}, err
	}

	if err := s.packages.Assign(ctx, packageID, courierID); err != nil {
		return model.Package{}, err
	}
	if _, err := s.deliveries.Create(ctx, model.Delivery{
		PackageID: packageID,
		CourierID: courierID,
		StartedAt: time.Now().UTC(),
	}); err != nil {
		// The assignment itself is committed at this point. Surface the
		// failure so the operator can reconcile the missing leg.
		s.log.Error("create delivery leg",
			"package_id", packageID, "courier_id", courierID, "error", err)
		return model.Package{}, fmt.Errorf("create delivery leg: %w", err)
	}

	s.notifyAssigned(ctx, p, courierID)
	s.publish(&event.PackageAssigned{
		PackageID:       p.ID,
		TrackingNumber:  p.TrackingNumber,
		CourierID:       courierID,
		SenderID:        p.SenderID,
		PickupAddress:   p.PickupAddress,
		DeliveryAddress: p.DeliveryAddr,
	})
	s.publish(&event.PackageStatusChanged{
		PackageID:      p.ID,
		TrackingNumber: p.TrackingNumber,
		OldStatus:      model.StatusCreated,
		NewStatus:      model.StatusAssigned,
		SenderID:       p.SenderID,
		CourierID:      &courierID,
		RecipientID:    p.RecipientID,
	})

	s.log.Info("package assigned", "package_id", p.ID, "courier_id", courierID)
	return s.packages.GetByID(ctx, packageID)
}

// Cancel aborts a package that has not been picked up yet. Senders cancel
// their own packages; admins any package the lifecycle still allows.
func (s *PackageService) Cancel(ctx context.Context, actor model.Identity, id int64) (model.Package, error) {
	p, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return model.Package{}, err
	}
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleSender:
		if p.SenderID != actor.UserID {
			return model.Package{}, ErrPermissionDenied
		}
	default:
		return model.Package{}, ErrPermissionDenied
	}
	return s.applyTransition(ctx, p, model.StatusCancelled)
}

// PackageStats is the admin dashboard summary.
type PackageStats struct {
	Total          int64                         `json:"total_packages"`
	ByStatus       map[model.PackageStatus]int64 `json:"by_status"`
	Unassigned     int64                         `json:"unassigned"`
	OnlineCouriers int                           `json:"online_couriers"`
}

// Stats aggregates package counts and courier presence. Admin only.
func (s *PackageService) Stats(ctx context.Context, actor model.Identity) (PackageStats, error) {
	if actor.Role != model.RoleAdmin {
		return PackageStats{}, ErrPermissionDenied
	}
	counts, err := s.packages.CountsByStatus(ctx)
	if err != nil {
		return PackageStats{}, err
	}

	st := PackageStats{ByStatus: counts, OnlineCouriers: len(s.eligibleCouriers(ctx))}
	for status, n := range counts {
		st.Total += n
		if status == model.StatusCreated {
			st.Unassigned = n
		}
	}
	return st, nil
}

// applyTransition commits a validated status move and emits its side
// effects: delivery leg completion on terminal statuses, persisted
// notifications and the PackageStatusChanged event.
func (s *PackageService) applyTransition(ctx context.Context, p model.Package, to model.PackageStatus) (model.Package, error) {
	if !p.Status.CanTransitionTo(to) {
		return model.Package{}, fmt.Errorf("%w: %s cannot move to %s", ErrInvalidTransition, p.Status, to)
	}
	if err := s.packages.UpdateStatus(ctx, p.ID, p.Status, to); err != nil {
		return model.Package{}, err
	}
	if to.Terminal() && p.CourierID != nil {
		if err := s.deliveries.Complete(ctx, p.ID, time.Now().UTC()); err != nil {
			s.log.Error("close delivery leg", "package_id", p.ID, "error", err)
		}
	}

	s.notifyStatusChange(ctx, p, to)
	s.publish(&event.PackageStatusChanged{
		PackageID:      p.ID,
		TrackingNumber: p.TrackingNumber,
		OldStatus:      p.Status,
		NewStatus:      to,
		SenderID:       p.SenderID,
		CourierID:      p.CourierID,
		RecipientID:    p.RecipientID,
	})

	s.log.Info("package status changed",
		"package_id", p.ID, "from", p.Status, "to", to)
	return s.packages.GetByID(ctx, p.ID)
}

// canAccessPackage is the visibility rule shared by package and delivery
// reads. Couriers see unassigned packages so they can claim them.
func canAccessPackage(actor model.Identity, p model.Package) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleSender:
		return p.SenderID == actor.UserID
	case model.RoleCourier:
		return p.CourierID == nil || *p.CourierID == actor.UserID
	case model.RoleRecipient:
		return p.RecipientID != nil && *p.RecipientID == actor.UserID
	}
	return false
}

// canUpdateStatus: admins always, couriers only on packages assigned to them.
func canUpdateStatus(actor model.Identity, p model.Package) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleCourier:
		return p.CourierID != nil && *p.CourierID == actor.UserID
	}
	return false
}

// eligibleCouriers is the audience for new-package offers: the couriers
// currently online. Presence being down degrades to no offers, never to a
// failed create.
func (s *PackageService) eligibleCouriers(ctx context.Context) []int64 {
	if s.presence == nil {
		return nil
	}
	ids, err := s.presence.OnlineCourierIDs(ctx)
	if err != nil {
		s.log.Warn("list online couriers", "error", err)
		return nil
	}
	return ids
}

func (s *PackageService) notifyCreated(ctx context.Context, p model.Package, eligible []int64) {
	adminIDs, err := s.users.IDsByRole(ctx, model.RoleAdmin)
	if err != nil {
		s.log.Warn("list admins", "error", err)
	}

	var notifs []model.Notification
	for _, id := range adminIDs {
		notifs = append(notifs, model.Notification{
			UserID:           id,
			Title:            "New package",
			Message:          fmt.Sprintf("Package %s awaits courier assignment", p.TrackingNumber),
			Kind:             string(event.KindPackageCreated),
			RelatedPackageID: &p.ID,
		})
	}
	for _, id := range eligible {
		notifs = append(notifs, model.Notification{
			UserID:           id,
			Title:            "New package available",
			Message:          fmt.Sprintf("Package %s is ready for pickup at %s", p.TrackingNumber, p.PickupAddress),
			Kind:             string(event.KindNewPackageAvailable),
			RelatedPackageID: &p.ID,
		})
	}
	s.persistNotifications(ctx, notifs)
}

func (s *PackageService) notifyAssigned(ctx context.Context, p model.Package, courierID int64) {
	s.persistNotifications(ctx, []model.Notification{
		{
			UserID:           courierID,
			Title:            "Package assigned to you",
			Message:          fmt.Sprintf("Pick up package %s at %s", p.TrackingNumber, p.PickupAddress),
			Kind:             string(event.KindPackageAssignedToYou),
			RelatedPackageID: &p.ID,
		},
		{
			UserID:           p.SenderID,
			Title:            "Package assigned",
			Message:          fmt.Sprintf("Package %s has been assigned to a courier", p.TrackingNumber),
			Kind:             string(event.KindPackageAssigned),
			RelatedPackageID: &p.ID,
		},
	})
}

func (s *PackageService) notifyStatusChange(ctx context.Context, p model.Package, to model.PackageStatus) {
	msg := fmt.Sprintf("Package %s is now %s", p.TrackingNumber, to)
	notifs := []model.Notification{{
		UserID:           p.SenderID,
		Title:            "Package status updated",
		Message:          msg,
		Kind:             string(event.KindPackageStatusUpdated),
		RelatedPackageID: &p.ID,
	}}
	if p.RecipientID != nil {
		notifs = append(notifs, model.Notification{
			UserID:           *p.RecipientID,
			Title:            "Package status updated",
			Message:          msg,
			Kind:             string(event.KindPackageStatusUpdated),
			RelatedPackageID: &p.ID,
		})
	}
	s.persistNotifications(ctx, notifs)
}

// persistNotifications writes notification rows best effort. The rows are a
// catch-up surface for offline users, not part of the operation's contract.
func (s *PackageService) persistNotifications(ctx context.Context, notifs []model.Notification) {
	if len(notifs) == 0 {
		return
	}
	if _, err := s.notifs.InsertBatch(ctx, notifs); err != nil {
		s.log.Warn("persist notifications", "count", len(notifs), "error", err)
	}
}

func (s *PackageService) publish(ev event.Event) {
	if s.events == nil {
		return
	}
	if !s.events.Publish(ev) {
		s.log.Debug("event dropped, router not accepting", "type", fmt.Sprintf("%T", ev))
	}
}
