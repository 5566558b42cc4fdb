package http

import (
	"net/http"
)

const notificationPageSize = 10

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	notifications, err := s.store.ListNotifications(r.Context(), user.ID, notificationPageSize)
	if err != nil {
		s.logger.Error("list notifications", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	unread, err := s.store.UnreadNotificationCount(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("count unread notifications", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": toNotificationList(notifications),
		"unread_count":  unread,
	})
}

func (s *Server) handleMarkNotifications(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req markReadRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.MarkAllRead {
		if err := s.store.MarkAllNotificationsRead(r.Context(), user.ID); err != nil {
			s.logger.Error("mark all notifications read", "error", err, "user_id", user.ID)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeMessage(w, http.StatusOK, "all notifications marked as read")
		return
	}

	if req.NotificationID <= 0 {
		writeError(w, http.StatusBadRequest, "notification_id is required")
		return
	}
	if err := s.store.MarkNotificationRead(r.Context(), user.ID, req.NotificationID); err != nil {
		s.respondStoreError(w, err, "mark notification read", user.ID)
		return
	}
	writeMessage(w, http.StatusOK, "notification marked as read")
}
