package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeRawJSON(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		slog.Error("write response", "error", err)
	}
}

// respondCached stores the rendered payload in the report cache before
// sending it, so the next identical request skips the aggregation.
func (s *Server) respondCached(w http.ResponseWriter, userID int64, r *http.Request, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("encode report", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.reports.set(userID, r, data)
	writeRawJSON(w, http.StatusOK, data)
}
