package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/shapes-interaction/internal/hub"
	"github.com/DoyleJ11/shapes-interaction/internal/lobby"
)

const statsTimeout = 2 * time.Second

type statsResponse struct {
	lobby.View
	Connections int `json:"connections"`
}

// Stats reports what the lobby and hub currently hold. Both are asked
// through their inboxes.
func Stats(l *lobby.Lobby, h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
		defer cancel()

		view, err := l.State(ctx)
		if err != nil {
			http.Error(w, "lobby unavailable", http.StatusServiceUnavailable)
			return
		}
		conns, err := h.Count(ctx)
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statsResponse{View: view, Connections: conns})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
