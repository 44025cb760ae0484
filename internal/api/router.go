package api

import (
	"io"
	"net/http"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the game engine methods used by the API.
// This interface enables testing against a stepped engine without the ticker.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetSnapshot returns the latest lock-free snapshot (valid until the producer wraps)
	GetSnapshot() *game.MatchSnapshot
	// Snapshot returns a deep copy of the current state
	Snapshot() game.MatchSnapshot
	// Roster returns the immutable character data
	Roster() *game.Roster
	// Press and Release queue button edges for the human fighter
	Press(b game.Button) bool
	Release(b game.Button) bool
	// Tap presses and releases a button
	Tap(b game.Button) bool
	// SelectCharacter starts a ladder run from the select screen
	SelectCharacter(id game.CharacterID) error
	// StartVersus starts a single match
	StartVersus(player, opponent game.CharacterID) error
	// EventLog exposes recent events
	EventLog() *game.EventLog
}

// FrameRenderer draws a snapshot as a PNG image
type FrameRenderer interface {
	RenderPNG(w io.Writer, snap *game.MatchSnapshot) error
}

// SoundBank synthesizes a sound cue as a WAV file
type SoundBank interface {
	WAV(cue game.SoundCue) ([]byte, error)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: engine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Controls are the active key bindings, reported by /api/bindings
	Controls config.Controls

	// Renderer serves /api/frame.png; the route answers 503 when nil
	Renderer FrameRenderer

	// Sounds serves /api/sounds/{cue}.wav; the route answers 503 when nil
	Sounds SoundBank

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses DefaultAllowedOrigins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
// This is used internally to pass handlers to route setup.
type routerHandlers struct {
	engine   EngineInterface
	controls config.Controls
	renderer FrameRenderer
	sounds   SoundBank
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE apart from the rate limiter's cleanup
// goroutine when no limiter is supplied:
//   - No network listeners are opened
//   - No simulation ticks are driven
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(instrumentRequests)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultAllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	controls := cfg.Controls
	if controls.Bindings == nil {
		controls = config.DefaultControls()
	}
	h := &routerHandlers{
		engine:   cfg.Engine,
		controls: controls,
		renderer: cfg.Renderer,
		sounds:   cfg.Sounds,
	}

	r.Route("/api", func(r chi.Router) {
		// Match state
		r.Get("/state", h.handleGetState)
		r.Get("/events", h.handleGetEvents)
		r.Get("/frame.png", h.handleGetFrame)

		// Character data
		r.Get("/roster", h.handleGetRoster)
		r.Get("/moves/{id}", h.handleGetMoves)

		// Controls
		r.Get("/bindings", h.handleGetBindings)
		r.Post("/input", h.handleInput)
		r.Post("/confirm", h.handleConfirm)
		r.Post("/select", h.handleSelect)
		r.Post("/versus", h.handleVersus)

		// Presentation assets
		r.Get("/sounds/{cue}.wav", h.handleGetSound)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	return r
}
