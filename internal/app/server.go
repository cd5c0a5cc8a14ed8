package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyuricane/redchat/api/ws"
	"github.com/hyuricane/redchat/config"
	redisstore "github.com/hyuricane/redchat/internal/redis"
	"github.com/hyuricane/redchat/internal/websocket"
	"github.com/hyuricane/redchat/pkg/logger"
	"github.com/hyuricane/redchat/service"
)

// App represents the main application structure holding all dependencies
type App struct {
	cfg         config.Config
	logger      logger.Logger
	store       *redisstore.Client
	chatService service.ChatService
	registry    *websocket.Registry
	httpServer  *http.Server
	rootCtx     context.Context
	cancel      context.CancelFunc
}

// NewApp initializes and connects all application dependencies
func NewApp(cfg config.Config) (*App, error) {
	// Create application root context
	baseLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFile)
	rootCtx := logger.NewContext(context.Background(), baseLogger)
	rootCtx, rootCancel := context.WithCancel(rootCtx)

	// Get scoped logger for app
	log := logger.FromContext(rootCtx).WithModule("app")
	log.Infof("Initializing application components...")

	// The store's connections come up asynchronously; only a bad URL fails
	// construction.
	store, err := redisstore.NewClient(rootCtx, cfg.RedisURL)
	if err != nil {
		rootCancel()
		return nil, fmt.Errorf("failed to build Redis client: %w", err)
	}

	chatService := service.NewChatService(rootCtx, store, cfg.ChatPrefix, cfg.HistoryLimit)
	registry := websocket.NewRegistry()
	httpServer := createHTTPServer(rootCtx, cfg.Port, chatService, registry)

	app := &App{
		cfg:         cfg,
		logger:      log,
		store:       store,
		chatService: chatService,
		registry:    registry,
		httpServer:  httpServer,
		rootCtx:     rootCtx,
		cancel:      rootCancel,
	}

	log.Infof("Application initialized successfully")
	return app, nil
}

func createHTTPServer(ctx context.Context, port int, chatService service.ChatService, registry *websocket.Registry) *http.Server {
	wsConfig := ws.WSConfig{
		ChatService: chatService,
		Registry:    registry,
		RootCtx:     ctx,
	}

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: ws.SetupWebSocketRoutes(wsConfig),
	}
}

// Start runs the application and handles graceful shutdown on signal
func (a *App) Start() error {
	log := a.logger.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
	})

	log.Infof("Starting application server")

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatalf("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.WithFields(map[string]interface{}{
		"signal": sig.String(),
	}).Warnf("Received shutdown signal")

	return a.Stop()
}

// Stop gracefully shuts down the server and closes all connections
func (a *App) Stop() error {
	log := a.logger.WithFields(map[string]interface{}{
		"shutdown_timeout": "5s",
	})

	log.Infof("Initiating graceful shutdown")

	// Cancel root context first
	a.cancel()

	// Create shutdown timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Errorf("HTTP server shutdown error")
	}

	// Closing sessions leaves their rooms, so presence-driven expiry can
	// proceed for anything they occupied.
	log.Infof("Closing websocket sessions")
	a.registry.CloseAll()

	log.Infof("Closing Redis connections")
	if err := a.store.Close(); err != nil {
		log.Errorf("Redis close error: %v", err)
	}

	log.Infof("Shutdown completed successfully")
	return nil
}
