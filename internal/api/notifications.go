package api

import (
	"net/http"

	"github.com/avelichko/couriertrack/internal/model"
)

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int64                `json:"unread"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	onlyUnread := r.URL.Query().Get("unread") == "true"

	notifs, err := s.deps.Notifications.ListFor(r.Context(), actor, onlyUnread)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	unread, err := s.deps.Notifications.UnreadCount(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if notifs == nil {
		notifs = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: notifs, Unread: unread})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := s.deps.Notifications.MarkRead(r.Context(), actor, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type markAllReadResponse struct {
	Marked int64 `json:"marked"`
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.identity(w, r)
	if !ok {
		return
	}

	n, err := s.deps.Notifications.MarkAllRead(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, markAllReadResponse{Marked: n})
}
