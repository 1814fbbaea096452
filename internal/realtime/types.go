package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/avelichko/couriertrack/internal/metrics"
	"github.com/avelichko/couriertrack/internal/model"
)

// Errors
var (
	ErrRouterClosed = errors.New("router closed")
	ErrNotStarted   = errors.New("router not started")
)

// Config configures the broadcaster.
type Config struct {
	SendBuffer     int           // per-session outbound frame buffer
	EventBuffer    int           // router FIFO initial capacity
	PingInterval   time.Duration // server ping cadence
	PongTimeout    time.Duration // read deadline granted per pong
	WriteTimeout   time.Duration // per-frame write deadline
	MaxMessageSize int64         // inbound frame cap in bytes
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:     256,
		EventBuffer:    1024,
		PingInterval:   54 * time.Second,
		PongTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 4096,
	}
}

// TokenVerifier authenticates an upgrade request. It returns the caller's
// identity or an error; the router consults it once, before the handshake
// completes.
type TokenVerifier interface {
	Verify(token string) (model.Identity, error)
}

// PresenceTracker records courier liveness. MarkOnline is called on connect
// and refreshed on every pong; MarkOffline only when a courier's last
// session closes.
type PresenceTracker interface {
	MarkOnline(ctx context.Context, courierID int64) error
	MarkOffline(ctx context.Context, courierID int64) error
}

// Deps are the router's collaborators. Presence and Metrics may be nil.
type Deps struct {
	Auth     TokenVerifier
	Presence PresenceTracker
	Metrics  *metrics.Metrics
}

// RouterStats contains runtime statistics. Served on the admin stats
// endpoint, so fields carry JSON names.
type RouterStats struct {
	EventsPublished int64       `json:"events_published"`
	EventsRouted    int64       `json:"events_routed"`
	FramesSent      int64       `json:"frames_sent"`
	FramesDropped   int64       `json:"frames_dropped"`
	Sessions        int         `json:"sessions"`
	Subscriptions   int         `json:"subscriptions"`
	Buffer          BufferStats `json:"buffer"`
}
