package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"

	"github.com/go-chi/chi/v5"
)

// ServerOptions are the optional collaborators of a Server
type ServerOptions struct {
	Controls          config.Controls
	Renderer          FrameRenderer
	Sounds            SoundBank
	AllowedOrigins    []string
	BroadcastInterval time.Duration
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	opts        ServerOptions
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(engine *game.Engine, opts ServerOptions) *Server {
	s := &Server{
		engine: engine,
		wsHub:  NewWebSocketHub(engine, opts.AllowedOrigins),
		opts:   opts,
	}

	// Create rate limiter (we track it for cleanup)
	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Controls:    opts.Controls,
		Renderer:    opts.Renderer,
		Sounds:      opts.Sounds,
		RateLimiter: s.rateLimiter,
		CORSOrigins: opts.AllowedOrigins,
	})

	// WebSocket route needs the wsHub instance
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	// Events reach clients as they happen, not on the state cadence
	engine.AddEventSink(s.wsHub.EventSink())

	return s
}

// startWorkers launches the hub and the state broadcaster
func (s *Server) startWorkers() {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.opts.BroadcastInterval)
}

// Start begins the HTTP server AND starts background workers.
// This is the ONLY method that starts goroutines or opens network listeners.
// It blocks until the server stops; http.ErrServerClosed means a clean Shutdown.
func (s *Server) Start(addr string) error {
	s.startWorkers()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🥋 State: http://localhost%s/api/state", addr)

	return s.httpServer.ListenAndServe()
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
//
// Example:
//
//	server := api.NewServer(engine, api.ServerOptions{})
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown performs graceful shutdown of the listener and background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
