package orchestrator

import (
	"context"
	"time"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/compliance"
	"github.com/Iron-Ham/cypher/internal/evaluator"
	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/logging"
	"github.com/Iron-Ham/cypher/internal/persistence"
	"github.com/Iron-Ham/cypher/internal/vote"
)

// Generator produces the text of one turn.
type Generator interface {
	Generate(ctx context.Context, p battle.Prompt) (string, error)
}

// Synthesizer renders a turn to audio and returns a reference to it. An
// empty reference with a nil error means audio is disabled.
type Synthesizer interface {
	Synthesize(ctx context.Context, sessionID string, turnIndex int, text string) (string, error)
}

// Config holds the pacing and timeout settings captured by each session when
// it is created.
type Config struct {
	// Format is applied field by field where a create request leaves it zero.
	Format battle.Format

	// TurnInterval is the pause between the turns of a round.
	TurnInterval time.Duration

	// RoundInterval is the voting window after each round, before round_end.
	RoundInterval time.Duration

	// GenerationTimeout bounds each generation call.
	GenerationTimeout time.Duration

	// AudioTimeout bounds each synthesis call.
	AudioTimeout time.Duration

	// MaxSessionLifetime force-ends a session that runs longer. It is also
	// the vote dedup TTL.
	MaxSessionLifetime time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Format: battle.Format{
			TurnsPerParticipant: 3,
			BarsPerTurn:         8,
			TurnOrder:           battle.OrderFixed,
			Style:               battle.StyleBattle,
		},
		TurnInterval:       2 * time.Second,
		RoundInterval:      5 * time.Second,
		GenerationTimeout:  30 * time.Second,
		AudioTimeout:       20 * time.Second,
		MaxSessionLifetime: 2 * time.Hour,
	}
}

// Dependencies are the collaborators a Registry drives. Only Generator is
// required; NewRegistry fills the rest with in-process defaults.
type Dependencies struct {
	Generator   Generator
	Synthesizer Synthesizer
	Gate        *compliance.Gate
	Evaluator   *evaluator.Evaluator
	Gateway     *persistence.Gateway
	Broadcaster *event.Broadcaster
	Ledger      *vote.Ledger
	Logger      *logging.Logger
}
