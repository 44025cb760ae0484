// Package config provides centralized configuration management.
// Every tunable the binaries read lives here; other packages take the
// resulting structs and never read the environment themselves.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"critique-kombat/internal/game"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimulationConfig holds the match clock and opponent settings.
type SimulationConfig struct {
	TickRate        int    // Simulation ticks per second
	RoundSeconds    int    // Round timer start value
	AIReactionTicks int    // Slowest CPU decision interval
	AICooldownTicks int    // Longest CPU pause after an attack
	AIScript        string // Optional Lua policy file; empty uses the built-in CPU
	Seed            int64  // RNG seed for the CPU; 0 picks one from the clock
}

// DefaultSimulation returns arcade timing at 60 ticks per second.
func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		TickRate:        60,
		RoundSeconds:    99,
		AIReactionTicks: 10,
		AICooldownTicks: 30,
	}
}

// SimulationFromEnv returns simulation configuration with environment overrides.
func SimulationFromEnv() SimulationConfig {
	cfg := DefaultSimulation()

	if v := getEnvInt("KOMBAT_TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvInt("KOMBAT_ROUND_SECONDS", 0); v > 0 {
		cfg.RoundSeconds = v
	}
	if v := getEnvInt("KOMBAT_AI_REACTION_TICKS", 0); v > 0 {
		cfg.AIReactionTicks = v
	}
	if v := getEnvInt("KOMBAT_AI_COOLDOWN_TICKS", 0); v > 0 {
		cfg.AICooldownTicks = v
	}
	cfg.AIScript = os.Getenv("KOMBAT_AI_SCRIPT")
	if v := os.Getenv("KOMBAT_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}

	return cfg
}

// ResolvedSeed returns the configured seed, or a clock-based one when unset.
func (c SimulationConfig) ResolvedSeed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return time.Now().UnixNano()
}

// MatchConfig converts the settings into the simulation's match rules.
// Round timing in ticks is scaled from the 60 TPS defaults.
func (c SimulationConfig) MatchConfig() game.MatchConfig {
	cfg := game.DefaultMatchConfig()
	if c.TickRate > 0 && c.TickRate != cfg.TickRate {
		scale := func(ticks int) int { return max(1, ticks*c.TickRate/cfg.TickRate) }
		cfg.RoundStartStep = scale(cfg.RoundStartStep)
		cfg.RoundEndTicks = scale(cfg.RoundEndTicks)
		cfg.FinishWindowTicks = scale(cfg.FinishWindowTicks)
		cfg.GameOverTicks = scale(cfg.GameOverTicks)
		cfg.LadderCompleteTicks = scale(cfg.LadderCompleteTicks)
		cfg.LoseCutsceneTicks = scale(cfg.LoseCutsceneTicks)
		cfg.BonusTicks = scale(cfg.BonusTicks)
		cfg.BonusResumeTicks = scale(cfg.BonusResumeTicks)
		cfg.TickRate = c.TickRate
	}
	if c.RoundSeconds > 0 {
		cfg.RoundSeconds = c.RoundSeconds
	}
	return cfg
}

// =============================================================================
// FRAME RENDERING CONFIGURATION
// =============================================================================

// VideoConfig holds the debug frame renderer settings.
type VideoConfig struct {
	Width  int // PNG width in pixels
	Height int // PNG height in pixels
}

// DefaultVideo returns a 720p frame.
func DefaultVideo() VideoConfig {
	return VideoConfig{
		Width:  1280,
		Height: 720,
	}
}

// VideoFromEnv returns video configuration with environment variable overrides.
func VideoFromEnv() VideoConfig {
	cfg := DefaultVideo()

	if w := getEnvInt("FRAME_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("FRAME_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}

	return cfg
}

// =============================================================================
// AUDIO CONFIGURATION
// =============================================================================

// AudioConfig holds sound cue synthesis settings.
type AudioConfig struct {
	SampleRate int     // Audio sample rate in Hz
	Volume     float64 // Master volume (0.0 to 1.0)
	Enabled    bool    // Whether cue playback is enabled
	SoundsDir  string  // Optional .ogg/.wav overrides named after cues
}

// DefaultAudio returns the default audio configuration.
func DefaultAudio() AudioConfig {
	return AudioConfig{
		SampleRate: 44100,
		Volume:     0.3,
		Enabled:    true,
		SoundsDir:  "assets/sounds",
	}
}

// AudioFromEnv returns audio configuration with environment variable overrides.
func AudioFromEnv() AudioConfig {
	cfg := DefaultAudio()

	if v := getEnvFloat("SFX_VOLUME", -1); v >= 0 {
		cfg.Volume = min(v, 1)
	}
	if os.Getenv("SFX_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if v, ok := os.LookupEnv("SFX_DIR"); ok {
		cfg.SoundsDir = v
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	DebugPort      int
	AllowedOrigins []string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		DebugPort:      6060,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if p := getEnvInt("DEBUG_PORT", -1); p >= 0 {
		cfg.DebugPort = p
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	return cfg
}

// =============================================================================
// EVENT LOG CONFIGURATION
// =============================================================================

// EventLogConfig controls the JSONL event journal.
type EventLogConfig struct {
	Enabled bool
	Path    string // Empty keeps events in memory only
	Rate    int    // Events per second accepted by the journal
}

// DefaultEventLog returns the default journal settings.
func DefaultEventLog() EventLogConfig {
	return EventLogConfig{
		Enabled: true,
		Path:    "events.jsonl",
		Rate:    game.MaxEventsPerSec,
	}
}

// EventLogFromEnv returns journal configuration with environment overrides.
func EventLogFromEnv() EventLogConfig {
	cfg := DefaultEventLog()

	if v, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.Path = v
	}
	if os.Getenv("EVENT_LOG_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if r := getEnvInt("EVENT_LOG_RATE", 0); r > 0 {
		cfg.Rate = r
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Simulation SimulationConfig
	Video      VideoConfig
	Audio      AudioConfig
	Server     ServerConfig
	EventLog   EventLogConfig

	// IniPath is the bindings/tuning file; see LoadControls
	IniPath string
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Simulation: SimulationFromEnv(),
		Video:      VideoFromEnv(),
		Audio:      AudioFromEnv(),
		Server:     ServerFromEnv(),
		EventLog:   EventLogFromEnv(),
		IniPath:    getEnvWithDefault("KOMBAT_INI", "kombat.ini"),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvWithDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
