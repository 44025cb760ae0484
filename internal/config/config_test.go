package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Simulation.TickRate != 60 || cfg.Simulation.RoundSeconds != 99 {
		t.Errorf("simulation defaults = %+v", cfg.Simulation)
	}
	if cfg.Server.Port != 3000 || cfg.Server.DebugPort != 6060 {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if !cfg.EventLog.Enabled || cfg.IniPath != "kombat.ini" {
		t.Errorf("event log %+v ini %q", cfg.EventLog, cfg.IniPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KOMBAT_TICK_RATE", "30")
	t.Setenv("KOMBAT_ROUND_SECONDS", "45")
	t.Setenv("KOMBAT_AI_REACTION_TICKS", "4")
	t.Setenv("KOMBAT_AI_SCRIPT", "ai/rushdown.lua")
	t.Setenv("KOMBAT_SEED", "1234")
	t.Setenv("PORT", "8080")
	t.Setenv("DEBUG_PORT", "0")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("EVENT_LOG_PATH", "")
	t.Setenv("EVENT_LOG_ENABLED", "false")
	t.Setenv("EVENT_LOG_RATE", "50")
	t.Setenv("KOMBAT_INI", "/etc/kombat.ini")

	cfg := Load()
	sim := cfg.Simulation
	if sim.TickRate != 30 || sim.RoundSeconds != 45 || sim.AIReactionTicks != 4 || sim.AICooldownTicks != 30 {
		t.Errorf("simulation = %+v", sim)
	}
	if sim.AIScript != "ai/rushdown.lua" || sim.Seed != 1234 || sim.ResolvedSeed() != 1234 {
		t.Errorf("script %q seed %d", sim.AIScript, sim.Seed)
	}
	if cfg.Server.Port != 8080 || cfg.Server.DebugPort != 0 {
		t.Errorf("server = %+v", cfg.Server)
	}
	origins := cfg.Server.AllowedOrigins
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Errorf("origins = %q", origins)
	}
	if cfg.EventLog.Enabled || cfg.EventLog.Path != "" || cfg.EventLog.Rate != 50 {
		t.Errorf("event log = %+v", cfg.EventLog)
	}
	if cfg.IniPath != "/etc/kombat.ini" {
		t.Errorf("ini = %q", cfg.IniPath)
	}
}

func TestBadEnvFallsBack(t *testing.T) {
	t.Setenv("KOMBAT_TICK_RATE", "fast")
	t.Setenv("KOMBAT_SEED", "x")
	t.Setenv("SFX_VOLUME", "7")
	cfg := Load()
	if cfg.Simulation.TickRate != 60 || cfg.Simulation.Seed != 0 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Audio.Volume != 1 {
		t.Errorf("volume = %v, want clamp to 1", cfg.Audio.Volume)
	}
}

func TestMatchConfigScaling(t *testing.T) {
	tests := []struct {
		name      string
		sim       SimulationConfig
		roundEnd  int
		roundStep int
		seconds   int
	}{
		{"default rate", DefaultSimulation(), 120, 48, 99},
		{"half rate", SimulationConfig{TickRate: 30, RoundSeconds: 60}, 60, 24, 60},
		{"double rate", SimulationConfig{TickRate: 120}, 240, 96, 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := tt.sim.MatchConfig()
			if mc.RoundEndTicks != tt.roundEnd || mc.RoundStartStep != tt.roundStep || mc.RoundSeconds != tt.seconds {
				t.Errorf("match config end %d step %d seconds %d", mc.RoundEndTicks, mc.RoundStartStep, mc.RoundSeconds)
			}
		})
	}
}
