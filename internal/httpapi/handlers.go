package httpapi

import (
	"encoding/json"
	"net/http"

	"hogserver/internal/hub"
)

// ListRooms exposes a read-only snapshot of the room list.
func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.View, 1)
		h.Inbox() <- hub.GetState{Reply: reply}
		view := <-reply

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
