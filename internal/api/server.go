package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelichko/couriertrack/internal/metrics"
	"github.com/avelichko/couriertrack/internal/model"
	"github.com/avelichko/couriertrack/internal/realtime"
	"github.com/avelichko/couriertrack/internal/service"
)

// UserService is the slice of the user service the handlers need.
type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (model.User, error)
	Login(ctx context.Context, email, password string) (model.User, model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	ChangePassword(ctx context.Context, actor model.Identity, current, next string) error
	Me(ctx context.Context, actor model.Identity) (model.User, error)
	List(ctx context.Context, actor model.Identity) ([]model.User, error)
	SetActive(ctx context.Context, actor model.Identity, id int64, active bool) error
}

// PackageService is the slice of the package service the handlers need.
type PackageService interface {
	Create(ctx context.Context, actor model.Identity, in service.CreatePackageInput) (model.Package, error)
	Get(ctx context.Context, actor model.Identity, id int64) (model.Package, error)
	ListFor(ctx context.Context, actor model.Identity) ([]model.Package, error)
	Track(ctx context.Context, trackingNumber string) (model.Package, error)
	UpdateStatus(ctx context.Context, actor model.Identity, id int64, to model.PackageStatus) (model.Package, error)
	Assign(ctx context.Context, actor model.Identity, packageID, courierID int64) (model.Package, error)
	Cancel(ctx context.Context, actor model.Identity, id int64) (model.Package, error)
	Stats(ctx context.Context, actor model.Identity) (service.PackageStats, error)
}

// DeliveryService is the slice of the delivery service the handlers need.
type DeliveryService interface {
	Get(ctx context.Context, actor model.Identity, id int64) (model.Delivery, error)
	ByPackage(ctx context.Context, actor model.Identity, packageID int64) (model.Delivery, error)
	ActiveForCourier(ctx context.Context, actor model.Identity) ([]model.Delivery, error)
	UpdateLocation(ctx context.Context, actor model.Identity, deliveryID int64, lat, lng float64) (model.Delivery, error)
}

// NotificationService is the slice of the notification service the handlers need.
type NotificationService interface {
	ListFor(ctx context.Context, actor model.Identity, onlyUnread bool) ([]model.Notification, error)
	UnreadCount(ctx context.Context, actor model.Identity) (int64, error)
	MarkRead(ctx context.Context, actor model.Identity, id int64) error
	MarkAllRead(ctx context.Context, actor model.Identity) (int64, error)
}

// TokenVerifier authenticates bearer tokens on the REST surface.
type TokenVerifier interface {
	Verify(token string) (model.Identity, error)
}

// Pinger reports whether a backing component is reachable. Both the pgx
// pool and the presence tracker satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the server's collaborators. Metrics may be nil; Health entries
// are keyed by component name as reported on /healthz.
type Deps struct {
	Users         UserService
	Packages      PackageService
	Deliveries    DeliveryService
	Notifications NotificationService
	Realtime      realtime.Router
	Auth          TokenVerifier
	Metrics       *metrics.Metrics
	Health        map[string]Pinger
}

// Server is the HTTP surface. Construct with NewServer and mount Routes on
// an http.Server.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// NewServer creates the HTTP surface around the given collaborators.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, logger: logger}
}

// Routes builds the full routing table. The WebSocket upgrade and the
// scrape endpoints sit outside the request middleware so that long-lived
// upgraded connections never pass through the status-recording writer.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/ws", s.deps.Realtime.ServeWS)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.recoverPanic)
		r.Use(s.logRequests)

		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		// Public tracking page lookup.
		r.Get("/track/{trackingNumber}", s.handleTrack)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/users/me", s.handleMe)
			r.Post("/users/me/password", s.handleChangePassword)

			r.Post("/packages", s.handleCreatePackage)
			r.Get("/packages", s.handleListPackages)
			r.Get("/packages/{id}", s.handleGetPackage)
			r.Post("/packages/{id}/status", s.handleUpdateStatus)
			r.Post("/packages/{id}/assign", s.handleAssign)
			r.Post("/packages/{id}/cancel", s.handleCancelPackage)
			r.Get("/packages/{id}/delivery", s.handleDeliveryByPackage)

			r.Get("/deliveries/active", s.handleActiveDeliveries)
			r.Get("/deliveries/{id}", s.handleGetDelivery)
			r.Post("/deliveries/{id}/location", s.handleUpdateLocation)

			r.Get("/notifications", s.handleListNotifications)
			r.Post("/notifications/{id}/read", s.handleMarkRead)
			r.Post("/notifications/read-all", s.handleMarkAllRead)

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(model.RoleAdmin))

				r.Get("/users", s.handleListUsers)
				r.Post("/users/{id}/active", s.handleSetUserActive)
				r.Get("/admin/stats", s.handleAdminStats)
				r.Post("/admin/announce", s.handleAnnounce)
			})
		})
	})

	return r
}
