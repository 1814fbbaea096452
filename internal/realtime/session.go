package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/avelichko/couriertrack/internal/event"
	"github.com/avelichko/couriertrack/internal/model"
)

// presenceTimeout bounds presence calls made off the request path.
const presenceTimeout = 5 * time.Second

// session is one live WebSocket connection. The read pump parses inbound
// commands, the write pump serializes frames and heartbeats. All outbound
// traffic goes through enqueue, which never blocks.
type session struct {
	id       uuid.UUID
	identity model.Identity
	conn     *websocket.Conn
	rt       *router
	log      *slog.Logger

	send chan []byte
	done chan struct{}
	once sync.Once
}

func newSession(rt *router, conn *websocket.Conn, identity model.Identity) *session {
	s := &session{
		id:       uuid.New(),
		identity: identity,
		conn:     conn,
		rt:       rt,
		send:     make(chan []byte, rt.cfg.SendBuffer),
		done:     make(chan struct{}),
	}
	s.log = rt.logger.With(
		"session_id", s.id.String(),
		"user_id", identity.UserID,
		"role", string(identity.Role),
	)
	return s
}

// enqueue hands a marshaled frame to the write pump without blocking. A full
// send buffer tears the session down so one slow consumer never stalls
// fan-out to everyone else.
func (s *session) enqueue(kind event.Kind, data []byte) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- data:
		s.rt.noteFrameSent(kind)
	default:
		s.rt.noteFrameDropped()
		s.log.Warn("send buffer full, dropping session")
		go s.teardown()
	}
}

// sendFrame marshals and enqueues a session-local frame (acks, pong, errors).
func (s *session) sendFrame(kind event.Kind, frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		s.log.Error("marshal frame", "kind", string(kind), "error", err)
		return
	}
	s.enqueue(kind, data)
}

// readPump consumes inbound frames until the socket errors, the read
// deadline lapses (missed pong) or a protocol error closes the session.
func (s *session) readPump() {
	defer s.teardown()

	s.conn.SetReadLimit(s.rt.cfg.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.rt.cfg.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.rt.cfg.PongTimeout))
		s.touchPresence()
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read loop ended", "error", err)
			}
			return
		}
		if !s.handleCommand(data) {
			return
		}
	}
}

// handleCommand processes one inbound frame. Returning false ends the read
// loop after a protocol-error close has been sent.
func (s *session) handleCommand(data []byte) bool {
	cmd, err := event.ParseCommand(data)
	if err != nil {
		s.log.Debug("malformed frame", "error", err)
		s.closeWith(websocket.CloseProtocolError, "malformed frame")
		return false
	}

	switch cmd.Type {
	case event.CmdSubscribeDelivery:
		if cmd.DeliveryID <= 0 {
			s.sendFrame(event.KindError, event.ErrorFrame{
				Type: event.KindError, Message: "delivery_id required", Timestamp: event.Stamp(),
			})
			return true
		}
		if s.rt.subs.subscribe(s.id, cmd.DeliveryID) {
			s.rt.deps.Metrics.SubscriptionAdded()
		}
		s.sendFrame(event.KindDeliverySubscribed, event.SubscriptionAckFrame{
			Type: event.KindDeliverySubscribed, DeliveryID: cmd.DeliveryID, Timestamp: event.Stamp(),
		})

	case event.CmdUnsubscribeDelivery:
		if s.rt.subs.unsubscribe(s.id, cmd.DeliveryID) {
			s.rt.deps.Metrics.SubscriptionRemoved()
		}
		s.sendFrame(event.KindDeliveryUnsubscribed, event.SubscriptionAckFrame{
			Type: event.KindDeliveryUnsubscribed, DeliveryID: cmd.DeliveryID, Timestamp: event.Stamp(),
		})

	case event.CmdPing:
		s.sendFrame(event.KindPong, event.PongFrame{Type: event.KindPong, Timestamp: event.Stamp()})

	default:
		s.log.Debug("ignoring unknown command", "type", cmd.Type)
	}
	return true
}

// writePump owns all writes to the socket: queued frames, heartbeat pings
// and the final close frame.
func (s *session) writePump() {
	ticker := time.NewTicker(s.rt.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.teardown()
	}()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.rt.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.rt.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(s.rt.cfg.WriteTimeout))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// closeWith sends a close control frame with the given code. WriteControl is
// safe alongside the write pump.
func (s *session) closeWith(code int, reason string) {
	deadline := time.Now().Add(s.rt.cfg.WriteTimeout)
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
}

// teardown releases everything the session holds: registry entry,
// subscriptions, courier presence (last session only) and the socket.
// Safe to call from any goroutine; runs once.
func (s *session) teardown() {
	s.once.Do(func() {
		close(s.done)

		remaining := s.rt.reg.unregister(s)
		if n := s.rt.subs.clear(s.id); n > 0 {
			s.rt.deps.Metrics.SubscriptionsCleared(n)
		}
		s.rt.deps.Metrics.SessionClosed()

		if s.identity.Role == model.RoleCourier && remaining == 0 {
			// Off the teardown path: teardown may run inside the router
			// goroutine and must not wait on Redis.
			go s.markOffline()
		}

		if s.conn != nil {
			s.conn.Close()
		}
		s.log.Info("session closed", "remaining_user_sessions", remaining)
	})
}

func (s *session) markOffline() {
	if s.rt.deps.Presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := s.rt.deps.Presence.MarkOffline(ctx, s.identity.UserID); err != nil {
		s.log.Warn("presence mark offline", "error", err)
	}
}

// touchPresence refreshes the courier's presence TTL. Pongs arrive at the
// ping cadence, well inside the key TTL.
func (s *session) touchPresence() {
	if s.rt.deps.Presence == nil || s.identity.Role != model.RoleCourier {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := s.rt.deps.Presence.MarkOnline(ctx, s.identity.UserID); err != nil {
		s.log.Warn("presence refresh", "error", err)
	}
}
