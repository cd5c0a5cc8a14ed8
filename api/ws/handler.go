package ws

import (
	"context"
	"net/http"

	gws "github.com/gorilla/websocket"

	"github.com/hyuricane/redchat/internal/websocket"
	"github.com/hyuricane/redchat/pkg/logger"
	"github.com/hyuricane/redchat/service"
)

// For demonstration. If you already have your own Upgrader, reuse it.
var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func HandleWebSocket(
	chatService service.ChatService,
	registry *websocket.Registry,
	rootCtx context.Context,
	logg logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			logg.Errorf("[WS HANDLER] Missing username param")
			http.Error(w, "username is required", http.StatusBadRequest)
			return
		}
		// An empty id means the core generates one.
		userID := r.URL.Query().Get("id")

		agent, err := chatService.CreateAgent(r.Context(), userID, username)
		if err != nil {
			logg.Errorf("[WS HANDLER] Failed to create agent for %q: %v", username, err)
			http.Error(w, "failed to create agent", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Errorf("[WS HANDLER] Upgrade error: %v", err)
			return
		}

		session := websocket.NewSession(conn, agent, registry, logg)
		registry.Add(session)
		logg.Infof("[WS HANDLER] New connection from %s (user=%s)", conn.RemoteAddr(), username)

		go session.ReadPump()
		go session.WritePump()
	}
}
