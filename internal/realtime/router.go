package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/avelichko/couriertrack/internal/event"
	"github.com/avelichko/couriertrack/internal/model"
)

// Router receives domain events and fans them out to live sessions.
type Router interface {
	// Start begins consuming published events.
	Start(ctx context.Context) error

	// Stop drains queued events and shuts down every live session.
	Stop(ctx context.Context) error

	// Publish queues an event for fan-out without blocking the caller.
	// It reports false once the router is closed.
	Publish(ev event.Event) bool

	// ServeWS authenticates and upgrades an HTTP request into a session.
	ServeWS(w http.ResponseWriter, r *http.Request)

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	reg    *registry
	subs   *subscriptionTable
	events *growableBuffer[event.Event]

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	mu            sync.RWMutex
	closed        bool
	published     int64
	routed        int64
	framesSent    int64
	framesDropped int64
}

// NewRouter creates an event router. Zero config fields fall back to
// DefaultConfig values.
func NewRouter(cfg Config, deps Deps, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = def.PongTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}

	return &router{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		reg:    newRegistry(),
		subs:   newSubscriptionTable(),
		events: newGrowableBuffer[event.Event](cfg.EventBuffer),
	}
}

// Start begins routing events.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	// Canceling the parent context closes intake the same way Stop does.
	go func() {
		<-r.ctx.Done()
		r.closeIntake()
	}()

	r.logger.Info("event router started",
		"send_buffer", r.cfg.SendBuffer,
		"event_buffer", r.cfg.EventBuffer,
		"ping_interval", r.cfg.PingInterval,
	)
	return nil
}

// Stop closes intake, drains queued events and tears down every session.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping event router")

	if r.cancel != nil {
		r.cancel()
	} else {
		r.closeIntake()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("event router stop timed out")
	}

	for _, s := range r.reg.snapshot() {
		s.teardown()
	}

	r.logger.Info("event router stopped")
	return nil
}

// closeIntake makes Publish report false and lets the route loop drain out.
func (r *router) closeIntake() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.events.close()
}

func (r *router) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Publish queues an event for fan-out.
func (r *router) Publish(ev event.Event) bool {
	if r.isClosed() {
		return false
	}
	if !r.events.send(ev) {
		return false
	}
	r.mu.Lock()
	r.published++
	r.mu.Unlock()
	return true
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RouterStats{
		EventsPublished: r.published,
		EventsRouted:    r.routed,
		FramesSent:      r.framesSent,
		FramesDropped:   r.framesDropped,
		Sessions:        r.reg.length(),
		Subscriptions:   r.subs.length(),
		Buffer:          r.events.stats(),
	}
}

// routeLoop is the single consumer goroutine; one consumer keeps events for
// a given delivery in publish order.
func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		ev, ok := r.events.receive()
		if !ok {
			return
		}
		r.dispatch(ev)
	}
}

// dispatch fans one event out to its audience. The switch is exhaustive
// over the closed event set.
func (r *router) dispatch(ev event.Event) {
	ts := event.Stamp()

	switch e := ev.(type) {
	case *event.PackageCreated:
		r.fanOut(event.KindPackageCreated, event.PackageCreatedFrame{
			Type:            event.KindPackageCreated,
			PackageID:       e.PackageID,
			TrackingNumber:  e.TrackingNumber,
			SenderID:        e.SenderID,
			PickupAddress:   e.PickupAddress,
			DeliveryAddress: e.DeliveryAddress,
			Timestamp:       ts,
		}, r.reg.sessionsForRole(model.RoleAdmin))

		r.fanOut(event.KindNewPackageAvailable, event.NewPackageAvailableFrame{
			Type:            event.KindNewPackageAvailable,
			PackageID:       e.PackageID,
			TrackingNumber:  e.TrackingNumber,
			PickupAddress:   e.PickupAddress,
			DeliveryAddress: e.DeliveryAddress,
			Timestamp:       ts,
		}, r.sessionsForUsers(e.EligibleCourierIDs))
		r.noteRouted("package_created")

	case *event.PackageStatusChanged:
		r.fanOut(event.KindPackageStatusUpdated, event.PackageStatusUpdatedFrame{
			Type:           event.KindPackageStatusUpdated,
			PackageID:      e.PackageID,
			TrackingNumber: e.TrackingNumber,
			OldStatus:      string(e.OldStatus),
			NewStatus:      string(e.NewStatus),
			Timestamp:      ts,
		}, r.statusChangeTargets(e))
		r.noteRouted("package_status_changed")

	case *event.PackageAssigned:
		frame := event.PackageAssignedFrame{
			PackageID:       e.PackageID,
			TrackingNumber:  e.TrackingNumber,
			CourierID:       e.CourierID,
			PickupAddress:   e.PickupAddress,
			DeliveryAddress: e.DeliveryAddress,
			Timestamp:       ts,
		}

		frame.Type = event.KindPackageAssignedToYou
		r.fanOut(frame.Type, frame, r.reg.sessionsForUser(e.CourierID))

		frame.Type = event.KindPackageAssigned
		r.fanOut(frame.Type, frame, r.reg.sessionsForUser(e.SenderID))
		r.noteRouted("package_assigned")

	case *event.DeliveryLocationUpdated:
		r.fanOut(event.KindDeliveryLocation, event.DeliveryLocationFrame{
			Type:       event.KindDeliveryLocation,
			DeliveryID: e.DeliveryID,
			Lat:        e.Lat,
			Lng:        e.Lng,
			Timestamp:  ts,
		}, r.subscriberSessions(e.DeliveryID))
		r.noteRouted("delivery_location_updated")

	case *event.SystemAnnouncement:
		r.fanOut(event.KindSystemAnnouncement, event.SystemAnnouncementFrame{
			Type:      event.KindSystemAnnouncement,
			Message:   e.Message,
			Timestamp: ts,
		}, r.reg.snapshot())
		r.noteRouted("system_announcement")

	default:
		r.logger.Error("unroutable event", "event", ev)
	}
}

// fanOut marshals the frame once and enqueues it on every target session.
func (r *router) fanOut(kind event.Kind, frame any, sessions []*session) {
	if len(sessions) == 0 {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		r.logger.Error("marshal frame", "kind", string(kind), "error", err)
		return
	}
	for _, s := range sessions {
		s.enqueue(kind, data)
	}
}

// statusChangeTargets collects the sessions of the package's participants
// plus every admin, deduplicated by session.
func (r *router) statusChangeTargets(e *event.PackageStatusChanged) []*session {
	seen := make(map[uuid.UUID]*session)
	add := func(sessions []*session) {
		for _, s := range sessions {
			seen[s.id] = s
		}
	}

	add(r.reg.sessionsForUser(e.SenderID))
	if e.CourierID != nil {
		add(r.reg.sessionsForUser(*e.CourierID))
	}
	if e.RecipientID != nil {
		add(r.reg.sessionsForUser(*e.RecipientID))
	}
	add(r.reg.sessionsForRole(model.RoleAdmin))

	out := make([]*session, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	return out
}

func (r *router) sessionsForUsers(userIDs []int64) []*session {
	var out []*session
	for _, id := range userIDs {
		out = append(out, r.reg.sessionsForUser(id)...)
	}
	return out
}

func (r *router) subscriberSessions(deliveryID int64) []*session {
	ids := r.subs.subscribersOf(deliveryID)
	out := make([]*session, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.reg.get(id); ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *router) noteRouted(eventType string) {
	r.mu.Lock()
	r.routed++
	r.mu.Unlock()
	r.deps.Metrics.EventRouted(eventType)
}

func (r *router) noteFrameSent(kind event.Kind) {
	r.mu.Lock()
	r.framesSent++
	r.mu.Unlock()
	r.deps.Metrics.FrameSent(string(kind))
}

func (r *router) noteFrameDropped() {
	r.mu.Lock()
	r.framesDropped++
	r.mu.Unlock()
	r.deps.Metrics.FrameDropped()
}
