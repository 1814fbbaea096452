package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avelichko/couriertrack/internal/event"
	"github.com/avelichko/couriertrack/internal/model"
	"github.com/avelichko/couriertrack/internal/realtime"
	"github.com/avelichko/couriertrack/internal/service"
)

// Well-known bearer tokens accepted by the stub verifier.
const (
	adminToken   = "admin-token"
	courierToken = "courier-token"
	senderToken  = "sender-token"
)

var (
	adminIdentity   = model.Identity{UserID: 1, Role: model.RoleAdmin}
	courierIdentity = model.Identity{UserID: 2, Role: model.RoleCourier}
	senderIdentity  = model.Identity{UserID: 3, Role: model.RoleSender}
)

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (model.Identity, error) {
	switch token {
	case adminToken:
		return adminIdentity, nil
	case courierToken:
		return courierIdentity, nil
	case senderToken:
		return senderIdentity, nil
	}
	return model.Identity{}, errors.New("unknown token")
}

// Function-field stubs. Tests set only the methods the endpoint under test
// touches; hitting anything else panics, which points straight at the
// missing wiring.

type stubUsers struct {
	registerFn  func(in service.RegisterInput) (model.User, error)
	loginFn     func(email, password string) (model.User, model.TokenPair, error)
	refreshFn   func(token string) (model.TokenPair, error)
	changeFn    func(actor model.Identity, current, next string) error
	meFn        func(actor model.Identity) (model.User, error)
	listFn      func(actor model.Identity) ([]model.User, error)
	setActiveFn func(actor model.Identity, id int64, active bool) error
}

func (f *stubUsers) Register(_ context.Context, in service.RegisterInput) (model.User, error) {
	return f.registerFn(in)
}

func (f *stubUsers) Login(_ context.Context, email, password string) (model.User, model.TokenPair, error) {
	return f.loginFn(email, password)
}

func (f *stubUsers) Refresh(_ context.Context, token string) (model.TokenPair, error) {
	return f.refreshFn(token)
}

func (f *stubUsers) ChangePassword(_ context.Context, actor model.Identity, current, next string) error {
	return f.changeFn(actor, current, next)
}

func (f *stubUsers) Me(_ context.Context, actor model.Identity) (model.User, error) {
	return f.meFn(actor)
}

func (f *stubUsers) List(_ context.Context, actor model.Identity) ([]model.User, error) {
	return f.listFn(actor)
}

func (f *stubUsers) SetActive(_ context.Context, actor model.Identity, id int64, active bool) error {
	return f.setActiveFn(actor, id, active)
}

type stubPackages struct {
	createFn func(actor model.Identity, in service.CreatePackageInput) (model.Package, error)
	getFn    func(actor model.Identity, id int64) (model.Package, error)
	listFn   func(actor model.Identity) ([]model.Package, error)
	trackFn  func(trackingNumber string) (model.Package, error)
	statusFn func(actor model.Identity, id int64, to model.PackageStatus) (model.Package, error)
	assignFn func(actor model.Identity, packageID, courierID int64) (model.Package, error)
	cancelFn func(actor model.Identity, id int64) (model.Package, error)
	statsFn  func(actor model.Identity) (service.PackageStats, error)
}

func (f *stubPackages) Create(_ context.Context, actor model.Identity, in service.CreatePackageInput) (model.Package, error) {
	return f.createFn(actor, in)
}

func (f *stubPackages) Get(_ context.Context, actor model.Identity, id int64) (model.Package, error) {
	return f.getFn(actor, id)
}

func (f *stubPackages) ListFor(_ context.Context, actor model.Identity) ([]model.Package, error) {
	return f.listFn(actor)
}

func (f *stubPackages) Track(_ context.Context, trackingNumber string) (model.Package, error) {
	return f.trackFn(trackingNumber)
}

func (f *stubPackages) UpdateStatus(_ context.Context, actor model.Identity, id int64, to model.PackageStatus) (model.Package, error) {
	return f.statusFn(actor, id, to)
}

func (f *stubPackages) Assign(_ context.Context, actor model.Identity, packageID, courierID int64) (model.Package, error) {
	return f.assignFn(actor, packageID, courierID)
}

func (f *stubPackages) Cancel(_ context.Context, actor model.Identity, id int64) (model.Package, error) {
	return f.cancelFn(actor, id)
}

func (f *stubPackages) Stats(_ context.Context, actor model.Identity) (service.PackageStats, error) {
	return f.statsFn(actor)
}

type stubDeliveries struct {
	getFn       func(actor model.Identity, id int64) (model.Delivery, error)
	byPackageFn func(actor model.Identity, packageID int64) (model.Delivery, error)
	activeFn    func(actor model.Identity) ([]model.Delivery, error)
	locationFn  func(actor model.Identity, deliveryID int64, lat, lng float64) (model.Delivery, error)
}

func (f *stubDeliveries) Get(_ context.Context, actor model.Identity, id int64) (model.Delivery, error) {
	return f.getFn(actor, id)
}

func (f *stubDeliveries) ByPackage(_ context.Context, actor model.Identity, packageID int64) (model.Delivery, error) {
	return f.byPackageFn(actor, packageID)
}

func (f *stubDeliveries) ActiveForCourier(_ context.Context, actor model.Identity) ([]model.Delivery, error) {
	return f.activeFn(actor)
}

func (f *stubDeliveries) UpdateLocation(_ context.Context, actor model.Identity, deliveryID int64, lat, lng float64) (model.Delivery, error) {
	return f.locationFn(actor, deliveryID, lat, lng)
}

type stubNotifications struct {
	listFn    func(actor model.Identity, onlyUnread bool) ([]model.Notification, error)
	unreadFn  func(actor model.Identity) (int64, error)
	readFn    func(actor model.Identity, id int64) error
	readAllFn func(actor model.Identity) (int64, error)
}

func (f *stubNotifications) ListFor(_ context.Context, actor model.Identity, onlyUnread bool) ([]model.Notification, error) {
	return f.listFn(actor, onlyUnread)
}

func (f *stubNotifications) UnreadCount(_ context.Context, actor model.Identity) (int64, error) {
	return f.unreadFn(actor)
}

func (f *stubNotifications) MarkRead(_ context.Context, actor model.Identity, id int64) error {
	return f.readFn(actor, id)
}

func (f *stubNotifications) MarkAllRead(_ context.Context, actor model.Identity) (int64, error) {
	return f.readAllFn(actor)
}

// stubBroadcaster satisfies realtime.Router and records published events.
type stubBroadcaster struct {
	accept    bool
	published []event.Event
	stats     realtime.RouterStats
	wsHits    int
}

func (b *stubBroadcaster) Start(context.Context) error { return nil }
func (b *stubBroadcaster) Stop(context.Context) error  { return nil }

func (b *stubBroadcaster) Publish(ev event.Event) bool {
	b.published = append(b.published, ev)
	return b.accept
}

func (b *stubBroadcaster) ServeWS(w http.ResponseWriter, _ *http.Request) {
	b.wsHits++
	w.WriteHeader(http.StatusUpgradeRequired)
}

func (b *stubBroadcaster) Stats() realtime.RouterStats { return b.stats }

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// testServer bundles the server under test with its stubs.
type testServer struct {
	handler       http.Handler
	users         *stubUsers
	packages      *stubPackages
	deliveries    *stubDeliveries
	notifications *stubNotifications
	broadcaster   *stubBroadcaster
	health        map[string]Pinger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		users:         &stubUsers{},
		packages:      &stubPackages{},
		deliveries:    &stubDeliveries{},
		notifications: &stubNotifications{},
		broadcaster:   &stubBroadcaster{accept: true},
		health:        make(map[string]Pinger),
	}

	srv := NewServer(Deps{
		Users:         ts.users,
		Packages:      ts.packages,
		Deliveries:    ts.deliveries,
		Notifications: ts.notifications,
		Realtime:      ts.broadcaster,
		Auth:          stubVerifier{},
		Health:        ts.health,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ts.handler = srv.Routes()
	return ts
}

// do sends a request through the full routing table. An empty token leaves
// the Authorization header unset; a non-nil body is JSON-encoded.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
	return v
}
