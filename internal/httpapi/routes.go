package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hogserver/internal/hub"
	"hogserver/internal/ws"
)

func SetupRoutes(h *hub.Hub, defaultProtocol int, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	r.Get("/rooms", ListRooms(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, defaultProtocol, log))
	return r
}
