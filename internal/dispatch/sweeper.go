package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avelichko/couriertrack/internal/event"
	"github.com/avelichko/couriertrack/internal/metrics"
	"github.com/avelichko/couriertrack/internal/model"
)

// PackageSource lists packages still awaiting assignment.
type PackageSource interface {
	StaleUnassigned(ctx context.Context, cutoff time.Time) ([]model.Package, error)
}

// CourierSource lists the couriers currently online.
type CourierSource interface {
	OnlineCourierIDs(ctx context.Context) ([]int64, error)
}

// Publisher hands re-announcement events to the realtime router.
type Publisher interface {
	Publish(ev event.Event) bool
}

// NotificationWriter persists reminder notifications.
type NotificationWriter interface {
	InsertBatch(ctx context.Context, notifs []model.Notification) (int64, error)
}

// Config holds sweeper configuration.
type Config struct {
	Interval    time.Duration // sweep cadence (default 5m)
	StaleAfter  time.Duration // package age before re-offer (default 15m)
	Concurrency int           // max concurrent notification writes (default 8)
	Timeout     time.Duration // per-package write timeout (default 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Minute,
		StaleAfter:  15 * time.Minute,
		Concurrency: 8,
		Timeout:     10 * time.Second,
	}
}

// Stats is a snapshot of sweeper counters.
type Stats struct {
	Cycles        int64 `json:"cycles"`
	Reannounced   int64 `json:"reannounced"`
	Notifications int64 `json:"notifications"`
	Errors        int64 `json:"errors"`
}

// Sweeper periodically re-offers stale unassigned packages to online
// couriers.
type Sweeper struct {
	cfg      Config
	packages PackageSource
	couriers CourierSource
	events   Publisher
	notifs   NotificationWriter
	metrics  *metrics.Metrics
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cycles        atomic.Int64
	reannounced   atomic.Int64
	notifications atomic.Int64
	errors        atomic.Int64
}

// New creates a sweeper. Events and metrics may be nil; sweeping then only
// writes reminder notifications.
func New(cfg Config, packages PackageSource, couriers CourierSource, events Publisher, notifs NotificationWriter, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Sweeper{
		cfg:      cfg,
		packages: packages,
		couriers: couriers,
		events:   events,
		notifs:   notifs,
		metrics:  m,
		logger:   logger,
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("dispatch sweeper started",
		"interval", s.cfg.Interval,
		"stale_after", s.cfg.StaleAfter,
		"concurrency", s.cfg.Concurrency,
	)
	return nil
}

// Stop shuts the sweeper down, waiting for an in-flight sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("dispatch sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current counters.
func (s *Sweeper) Stats() Stats {
	return Stats{
		Cycles:        s.cycles.Load(),
		Reannounced:   s.reannounced.Load(),
		Notifications: s.notifications.Load(),
		Errors:        s.errors.Load(),
	}
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.ctx)
		}
	}
}

// Sweep runs one pass: find stale unassigned packages, re-announce each to
// the couriers online right now and write them reminder notifications.
// Exported so the sweep can be triggered outside the ticker cadence.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()
	s.cycles.Add(1)

	cutoff := start.Add(-s.cfg.StaleAfter)
	stale, err := s.packages.StaleUnassigned(ctx, cutoff)
	if err != nil {
		s.errors.Add(1)
		s.logger.Error("list stale packages", "error", err)
		return
	}
	if len(stale) == 0 {
		s.logger.Debug("no stale packages")
		return
	}

	online, err := s.couriers.OnlineCourierIDs(ctx)
	if err != nil {
		s.errors.Add(1)
		s.logger.Error("list online couriers", "error", err)
		return
	}
	if len(online) == 0 {
		s.logger.Info("stale packages but no couriers online", "stale", len(stale))
		return
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	before := s.reannounced.Load()

	for _, p := range stale {
		wg.Add(1)
		go func(p model.Package) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			if err := s.reofferPackage(ctx, p, online); err != nil {
				s.errors.Add(1)
				s.logger.Warn("re-offer failed",
					"package_id", p.ID,
					"tracking_number", p.TrackingNumber,
					"error", err,
				)
				return
			}
			s.reannounced.Add(1)
		}(p)
	}

	wg.Wait()

	reannounced := int(s.reannounced.Load() - before)
	s.metrics.PackagesReannounced(reannounced)
	s.logger.Info("sweep complete",
		"stale", len(stale),
		"couriers_online", len(online),
		"reannounced", reannounced,
		"duration", time.Since(start),
	)
}

// reofferPackage publishes one re-announcement and persists the reminder
// rows. The event reuses the creation fan-out path, so online couriers see
// the same new_package_available frame a fresh package produces.
func (s *Sweeper) reofferPackage(ctx context.Context, p model.Package, online []int64) error {
	if s.events != nil {
		s.events.Publish(&event.PackageCreated{
			PackageID:          p.ID,
			TrackingNumber:     p.TrackingNumber,
			SenderID:           p.SenderID,
			PickupAddress:      p.PickupAddress,
			DeliveryAddress:    p.DeliveryAddr,
			EligibleCourierIDs: online,
		})
	}

	notifs := make([]model.Notification, 0, len(online))
	for _, courierID := range online {
		notifs = append(notifs, model.Notification{
			UserID:           courierID,
			Title:            "Package still available",
			Message:          fmt.Sprintf("Package %s is still waiting for pickup at %s", p.TrackingNumber, p.PickupAddress),
			Kind:             string(event.KindNewPackageAvailable),
			RelatedPackageID: &p.ID,
		})
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	n, err := s.notifs.InsertBatch(writeCtx, notifs)
	if err != nil {
		return fmt.Errorf("insert reminders: %w", err)
	}
	s.notifications.Add(n)
	return nil
}
