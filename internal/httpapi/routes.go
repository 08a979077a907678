package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/shapes-interaction/internal/hub"
	"github.com/DoyleJ11/shapes-interaction/internal/lobby"
	"github.com/DoyleJ11/shapes-interaction/internal/ws"
)

func SetupRoutes(l *lobby.Lobby, h *hub.Hub, opts ws.Options, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/stats", Stats(l, h))
	r.Get("/ws", ws.Handler(l, h, opts, log.Named("ws")))
	return r
}
