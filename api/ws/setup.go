package ws

import (
	"context"
	"net/http"

	"github.com/hyuricane/redchat/internal/websocket"
	"github.com/hyuricane/redchat/pkg/logger"
	"github.com/hyuricane/redchat/service"
)

type WSConfig struct {
	ChatService service.ChatService
	Registry    *websocket.Registry
	RootCtx     context.Context
}

func SetupWebSocketRoutes(cfg WSConfig) http.Handler {
	mux := http.NewServeMux()
	// Get logger from context for websocket module
	log := logger.FromContext(cfg.RootCtx).WithModule("websocket")
	mux.HandleFunc("/ws", HandleWebSocket(cfg.ChatService, cfg.Registry, cfg.RootCtx, log))
	return mux
}
