package scripting

import (
	"log"
	"math/rand"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"
)

// PolicyFromConfig builds the opponent: the configured Lua script when one is
// set, otherwise the built-in CPU seeded from the configuration.
func PolicyFromConfig(cfg config.SimulationConfig) (game.Policy, error) {
	seed := cfg.ResolvedSeed()
	if cfg.AIScript != "" {
		p, err := LoadLuaPolicy(cfg.AIScript, seed)
		if err != nil {
			return nil, err
		}
		log.Printf("🤖 AI script: %s", cfg.AIScript)
		return p, nil
	}
	log.Printf("🤖 CPU opponent (reaction %d, cooldown %d, seed %d)", cfg.AIReactionTicks, cfg.AICooldownTicks, seed)
	return game.NewCPUPolicy(rand.New(rand.NewSource(seed)), cfg.AIReactionTicks, cfg.AICooldownTicks), nil
}
