package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/avelichko/couriertrack/internal/event"
	"github.com/avelichko/couriertrack/internal/model"
)

// Token auth gates the upgrade; cross-origin browser clients are expected.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeWS authenticates the request, upgrades it and runs the session pumps.
// Missing or invalid tokens are rejected with a plain HTTP 401 before any
// handshake completes.
func (r *router) ServeWS(w http.ResponseWriter, req *http.Request) {
	if r.isClosed() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	token := req.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	identity, err := r.deps.Auth.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		r.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := newSession(r, conn, identity)
	r.reg.register(s)
	r.deps.Metrics.SessionOpened()

	if identity.Role == model.RoleCourier {
		s.touchPresence()
	}

	s.sendFrame(event.KindConnectionEstablished, event.ConnectionEstablishedFrame{
		Type:      event.KindConnectionEstablished,
		UserID:    identity.UserID,
		Role:      string(identity.Role),
		Timestamp: event.Stamp(),
	})
	s.log.Info("session opened")

	go s.writePump()
	s.readPump()
}
