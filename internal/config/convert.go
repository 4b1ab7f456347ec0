package config

import (
	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/compliance"
	"github.com/Iron-Ham/cypher/internal/orchestrator"
)

// Format returns the default battle format for new sessions.
func (c *Config) Format() battle.Format {
	return battle.Format{
		TurnsPerParticipant: c.Battle.TurnsPerParticipant,
		BarsPerTurn:         c.Battle.BarsPerTurn,
		TurnOrder:           battle.TurnOrder(c.Battle.TurnOrder),
		Style:               battle.Style(c.Battle.Style),
	}
}

// Orchestrator returns the registry settings captured by new sessions.
func (c *Config) Orchestrator() orchestrator.Config {
	return orchestrator.Config{
		Format:             c.Format(),
		TurnInterval:       c.Battle.TurnInterval(),
		RoundInterval:      c.Battle.RoundInterval(),
		GenerationTimeout:  c.Timeouts.Generation(),
		AudioTimeout:       c.Timeouts.Audio(),
		MaxSessionLifetime: c.Battle.MaxSessionLifetime(),
	}
}

// Gate returns the compliance gate settings.
func (c *Config) Gate() compliance.GateConfig {
	return compliance.GateConfig{
		Threshold:   c.Compliance.Threshold,
		MaxAttempts: c.Compliance.MaxAttempts,
		Timeout:     c.Timeouts.Screening(),
	}
}
