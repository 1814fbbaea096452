package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avelichko/couriertrack/internal/event"
	"github.com/avelichko/couriertrack/internal/model"
	"github.com/avelichko/couriertrack/internal/store"
)

// fakePackages is an in-memory packageStore with the real store's predicate
// semantics.
type fakePackages struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Package
}

func newFakePackages() *fakePackages {
	return &fakePackages{rows: make(map[int64]model.Package)}
}

func (f *fakePackages) add(p model.Package) model.Package {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = p.CreatedAt
	f.rows[p.ID] = p
	return p
}

func (f *fakePackages) Create(_ context.Context, p model.Package) (model.Package, error) {
	return f.add(p), nil
}

func (f *fakePackages) GetByID(_ context.Context, id int64) (model.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return model.Package{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakePackages) GetByTracking(_ context.Context, trackingNumber string) (model.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.TrackingNumber == trackingNumber {
			return p, nil
		}
	}
	return model.Package{}, store.ErrNotFound
}

func (f *fakePackages) List(_ context.Context) ([]model.Package, error) {
	return f.filter(func(model.Package) bool { return true }), nil
}

func (f *fakePackages) ListBySender(_ context.Context, senderID int64) ([]model.Package, error) {
	return f.filter(func(p model.Package) bool { return p.SenderID == senderID }), nil
}

func (f *fakePackages) ListForCourier(_ context.Context, courierID int64) ([]model.Package, error) {
	return f.filter(func(p model.Package) bool {
		return (p.CourierID != nil && *p.CourierID == courierID) || p.Status == model.StatusCreated
	}), nil
}

func (f *fakePackages) ListByRecipient(_ context.Context, recipientID int64) ([]model.Package, error) {
	return f.filter(func(p model.Package) bool {
		return p.RecipientID != nil && *p.RecipientID == recipientID
	}), nil
}

func (f *fakePackages) filter(keep func(model.Package) bool) []model.Package {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Package
	for id := int64(1); id <= f.nextID; id++ {
		if p, ok := f.rows[id]; ok && keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakePackages) UpdateStatus(_ context.Context, id int64, from, to model.PackageStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != from {
		return store.ErrStaleStatus
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	f.rows[id] = p
	return nil
}

func (f *fakePackages) Assign(_ context.Context, id, courierID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != model.StatusCreated || p.CourierID != nil {
		return store.ErrStaleStatus
	}
	p.CourierID = &courierID
	p.Status = model.StatusAssigned
	p.UpdatedAt = time.Now()
	f.rows[id] = p
	return nil
}

func (f *fakePackages) CountsByStatus(_ context.Context) (map[model.PackageStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[model.PackageStatus]int64)
	for _, p := range f.rows {
		counts[p.Status]++
	}
	return counts, nil
}

// fakeDeliveries is an in-memory delivery store covering both the writer and
// reader slices.
type fakeDeliveries struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Delivery
}

func newFakeDeliveries() *fakeDeliveries {
	return &fakeDeliveries{rows: make(map[int64]model.Delivery)}
}

func (f *fakeDeliveries) add(d model.Delivery) model.Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	d.ID = f.nextID
	if d.StartedAt.IsZero() {
		d.StartedAt = time.Now()
	}
	f.rows[d.ID] = d
	return d
}

func (f *fakeDeliveries) Create(_ context.Context, d model.Delivery) (model.Delivery, error) {
	return f.add(d), nil
}

func (f *fakeDeliveries) GetByID(_ context.Context, id int64) (model.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[id]
	if !ok {
		return model.Delivery{}, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeDeliveries) GetByPackage(_ context.Context, packageID int64) (model.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.rows {
		if d.PackageID == packageID {
			return d, nil
		}
	}
	return model.Delivery{}, store.ErrNotFound
}

func (f *fakeDeliveries) ActiveByCourier(_ context.Context, courierID int64) ([]model.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Delivery
	for id := int64(1); id <= f.nextID; id++ {
		if d, ok := f.rows[id]; ok && d.CourierID == courierID && d.CompletedAt == nil {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDeliveries) UpdateLocation(_ context.Context, id int64, lat, lng float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[id]
	if !ok || d.CompletedAt != nil {
		return store.ErrNotFound
	}
	d.CurrentLat = &lat
	d.CurrentLng = &lng
	d.LastLocationUpdate = &at
	f.rows[id] = d
	return nil
}

func (f *fakeDeliveries) Complete(_ context.Context, packageID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, d := range f.rows {
		if d.PackageID == packageID && d.CompletedAt == nil {
			d.CompletedAt = &at
			f.rows[id] = d
		}
	}
	return nil
}

func (f *fakeDeliveries) completedPackages() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, d := range f.rows {
		if d.CompletedAt != nil {
			out = append(out, d.PackageID)
		}
	}
	return out
}

// fakeUsers is an in-memory user store.
type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: make(map[int64]model.User)}
}

func (f *fakeUsers) add(u model.User) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	f.rows[u.ID] = u
	return u
}

func (f *fakeUsers) Create(_ context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	for _, existing := range f.rows {
		if existing.Email == u.Email {
			f.mu.Unlock()
			return model.User{}, store.ErrDuplicateEmail
		}
	}
	f.mu.Unlock()
	return f.add(u), nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for id := int64(1); id <= f.nextID; id++ {
		if u, ok := f.rows[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) IDsByRole(_ context.Context, role model.Role) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id := int64(1); id <= f.nextID; id++ {
		if u, ok := f.rows[id]; ok && u.Role == role && u.IsActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	f.rows[id] = u
	return nil
}

func (f *fakeUsers) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = active
	f.rows[id] = u
	return nil
}

// fakeNotifs records inserted notifications and serves the feed reads.
type fakeNotifs struct {
	mu        sync.Mutex
	nextID    int64
	rows      []model.Notification
	insertErr error
}

func (f *fakeNotifs) InsertBatch(_ context.Context, notifs []model.Notification) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	for _, n := range notifs {
		f.nextID++
		n.ID = f.nextID
		f.rows = append(f.rows, n)
	}
	return int64(len(notifs)), nil
}

func (f *fakeNotifs) ListByUser(_ context.Context, userID int64, onlyUnread bool) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.rows {
		if n.UserID == userID && (!onlyUnread || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifs) CountUnread(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if row.UserID == userID && !row.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifs) MarkRead(_ context.Context, id, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, row := range f.rows {
		if row.ID == id && row.UserID == userID {
			f.rows[i].IsRead = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeNotifs) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i, row := range f.rows {
		if row.UserID == userID && !row.IsRead {
			f.rows[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifs) forUser(userID int64) []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []event.Event
	reject bool
}

func (f *fakePublisher) Publish(ev event.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakePublisher) all() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Event(nil), f.events...)
}

// fakePresence reports a fixed online set.
type fakePresence struct {
	ids []int64
	err error
}

func (f *fakePresence) OnlineCourierIDs(context.Context) ([]int64, error) {
	return f.ids, f.err
}

// packageFixture wires a PackageService onto fakes.
type packageFixture struct {
	svc        *PackageService
	packages   *fakePackages
	deliveries *fakeDeliveries
	users      *fakeUsers
	notifs     *fakeNotifs
	presence   *fakePresence
	events     *fakePublisher
}

func newPackageFixture() *packageFixture {
	f := &packageFixture{
		packages:   newFakePackages(),
		deliveries: newFakeDeliveries(),
		users:      newFakeUsers(),
		notifs:     &fakeNotifs{},
		presence:   &fakePresence{},
		events:     &fakePublisher{},
	}
	f.svc = &PackageService{
		packages:   f.packages,
		deliveries: f.deliveries,
		users:      f.users,
		notifs:     f.notifs,
		presence:   f.presence,
		events:     f.events,
		log:        slog.Default(),
	}
	return f
}

// deliveryFixture wires a DeliveryService onto fakes.
type deliveryFixture struct {
	svc        *DeliveryService
	deliveries *fakeDeliveries
	packages   *fakePackages
	events     *fakePublisher
}

func newDeliveryFixture() *deliveryFixture {
	f := &deliveryFixture{
		deliveries: newFakeDeliveries(),
		packages:   newFakePackages(),
		events:     &fakePublisher{},
	}
	f.svc = &DeliveryService{
		deliveries: f.deliveries,
		packages:   f.packages,
		events:     f.events,
		log:        slog.Default(),
	}
	return f
}
