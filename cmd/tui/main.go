// =============================================================================
// CRITIQUE KOMBAT - TERMINAL CLIENT
// =============================================================================
// Runs the engine in-process and plays it in the terminal:
// - Draws snapshots with tcell (fighters, hitboxes, projectiles, HUD)
// - Maps keys to buttons through kombat.ini [bindings]
// - Plays sound cues on the local device when SFX_ENABLED is not "false"
//
// Logs go to KOMBAT_TUI_LOG (default kombat-tui.log) since the screen is
// owned by the UI. Esc or Ctrl-C quits.
// =============================================================================
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"critique-kombat/internal/audio"
	"critique-kombat/internal/config"
	"critique-kombat/internal/game"
	"critique-kombat/internal/scripting"
	"critique-kombat/internal/tui"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment
	if err := godotenv.Load("../.env"); err != nil {
		godotenv.Load(".env")
	}

	logPath := os.Getenv("KOMBAT_TUI_LOG")
	if logPath == "" {
		logPath = "kombat-tui.log"
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("open log: %v", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	appConfig := config.Load()
	controls, err := config.LoadControls(appConfig.IniPath)
	if err != nil {
		log.Fatalf("❌ Controls: %v", err)
	}
	roster, err := game.LoadRoster(nil, controls.Tuning)
	if err != nil {
		log.Fatalf("❌ Roster: %v", err)
	}
	policy, err := scripting.PolicyFromConfig(appConfig.Simulation)
	if err != nil {
		log.Fatalf("❌ AI policy: %v", err)
	}

	engine := game.NewEngine(appConfig.Simulation.MatchConfig(), roster, policy)
	if logCfg := appConfig.EventLog; logCfg.Enabled && logCfg.Path != "" {
		engine.EventLog().SetRateLimit(logCfg.Rate)
		if err := engine.StartEventLog(logCfg.Path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		}
		defer engine.StopEventLog()
	}

	player := audio.NewPlayer(audio.NewBank(appConfig.Audio))
	if err := player.Initialize(); err != nil {
		// Non-fatal, the game runs without sound
		log.Printf("⚠️ Audio initialization failed: %v", err)
	}
	defer player.Close()
	engine.AddEventSink(player.Sink())

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("❌ Screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("❌ Screen: %v", err)
	}
	defer screen.Fini()

	engine.Start()
	defer engine.Stop()
	log.Println("✅ Game Engine started")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := tui.NewApp(screen, engine, controls)
	if err := app.Run(ctx); err != nil {
		log.Printf("❌ UI: %v", err)
	}
	log.Println("👋 Goodbye!")
}
