package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"critique-kombat/internal/api"
	"critique-kombat/internal/audio"
	"critique-kombat/internal/config"
	"critique-kombat/internal/game"
	"critique-kombat/internal/render"
	"critique-kombat/internal/scripting"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🥋 ================================")
	log.Println("🥋  CRITIQUE KOMBAT - GO ENGINE")
	log.Println("🥋 ================================")

	appConfig := config.Load()
	simCfg := appConfig.Simulation
	serverCfg := appConfig.Server

	controls, err := config.LoadControls(appConfig.IniPath)
	if err != nil {
		log.Fatalf("❌ Controls: %v", err)
	}
	log.Printf("🎹 Controls: %s (%d bindings, %d tuning overrides)", appConfig.IniPath, len(controls.Bindings), len(controls.Tuning))

	roster, err := game.LoadRoster(nil, controls.Tuning)
	if err != nil {
		log.Fatalf("❌ Roster: %v", err)
	}
	policy, err := scripting.PolicyFromConfig(simCfg)
	if err != nil {
		log.Fatalf("❌ AI policy: %v", err)
	}

	engine := game.NewEngine(simCfg.MatchConfig(), roster, policy)
	log.Printf("🎮 Config: %d TPS, %ds rounds, %dx%d frames", simCfg.TickRate, simCfg.MatchConfig().RoundSeconds, appConfig.Video.Width, appConfig.Video.Height)

	// Start event log
	if logCfg := appConfig.EventLog; logCfg.Enabled {
		engine.EventLog().SetRateLimit(logCfg.Rate)
		if err := engine.StartEventLog(logCfg.Path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else if logCfg.Path != "" {
			log.Printf("📝 Event log: %s", logCfg.Path)
		}
	}

	// Metrics before anything else observes the engine
	api.Instrument(engine)

	// Start debug server
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" && serverCfg.DebugPort > 0 {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = net.JoinHostPort("127.0.0.1", strconv.Itoa(serverCfg.DebugPort))
		debugCfg.BasicAuthUser = os.Getenv("DEBUG_USER")
		debugCfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	// Frame renderer for /api/frame.png
	var renderer api.FrameRenderer
	pool, err := render.NewPool(appConfig.Video, nil, 0)
	if err != nil {
		log.Printf("⚠️ Frame rendering disabled: %v", err)
	} else {
		engine.AddEventSink(pool.Effects().Sink())
		pool.Start()
		defer pool.Stop()
		renderer = pool
		log.Printf("🖼️ Render pool: %d workers", pool.NumWorkers())
	}

	// Sound cues for /api/sounds
	var sounds api.SoundBank
	if appConfig.Audio.Enabled {
		bank := audio.NewBank(appConfig.Audio)
		if err := bank.Preload(); err != nil {
			log.Printf("⚠️ Sound cues disabled: %v", err)
		} else {
			sounds = bank
			log.Printf("🔊 Sound cues: %d Hz, volume %.2f", appConfig.Audio.SampleRate, appConfig.Audio.Volume)
		}
	}

	server := api.NewServer(engine, api.ServerOptions{
		Controls:       controls,
		Renderer:       renderer,
		Sounds:         sounds,
		AllowedOrigins: serverCfg.AllowedOrigins,
	})

	// Start game engine
	engine.Start()
	log.Println("✅ Game Engine started")

	// Start API server in goroutine
	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("🔌 WebSocket: ws://localhost%s/ws", addr)

		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	engine.Stop()
	engine.StopEventLog()
	if policy, ok := policy.(interface{ Close() }); ok {
		policy.Close()
	}
	log.Println("👋 Goodbye!")
}
