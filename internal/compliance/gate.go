package compliance

import (
	"context"
	"time"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/logging"
	"github.com/Iron-Ham/cypher/internal/util"
)

// Violation categories produced by the gate itself rather than by a screener.
const (
	CategoryScreeningUnavailable = "screening_unavailable"
	CategoryBelowThreshold       = "below_threshold"
)

// Gate limits.
const (
	DefaultMaxAttempts = 3
	MinAttempts        = 1
	MaxAttempts        = 5
	DefaultThreshold   = 0.7
)

// RegenerateFunc produces another candidate for the same turn. attempt is
// the 1-based number of the candidate being requested.
type RegenerateFunc func(ctx context.Context, attempt int) (string, error)

// Outcome is the accepted text for a turn and how it was reached.
type Outcome struct {
	Text     string
	Verdict  Verdict
	Attempts int // candidates screened
	Chosen   int // 1-based attempt whose text was accepted
	Flagged  bool
}

// GateConfig holds the tunables of a Gate.
type GateConfig struct {
	Threshold   float64
	MaxAttempts int
	Timeout     time.Duration
}

// Gate wraps a Screener with bounded regeneration and accept-and-flag.
type Gate struct {
	screener Screener
	cfg      GateConfig
	logger   *logging.Logger
}

// NewGate creates a Gate. MaxAttempts is clamped into [MinAttempts, MaxAttempts].
func NewGate(screener Screener, cfg GateConfig, logger *logging.Logger) *Gate {
	if cfg.MaxAttempts < MinAttempts {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MaxAttempts > MaxAttempts {
		cfg.MaxAttempts = MaxAttempts
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = DefaultThreshold
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Gate{screener: screener, cfg: cfg, logger: logger}
}

// Config returns the effective gate configuration.
func (g *Gate) Config() GateConfig {
	return g.cfg
}

// Pass screens first and, while it is unsafe and attempts remain, asks
// regenerate for another candidate. The first safe candidate is accepted
// with no violations. If none is safe, the best-scoring candidate is
// accepted and flagged with its violations. An error from regenerate stops
// the loop early with the best candidate so far.
func (g *Gate) Pass(ctx context.Context, first string, regenerate RegenerateFunc) Outcome {
	text := first
	attempt := 1

	var best Outcome
	haveBest := false

	for {
		v := g.screen(ctx, text)
		if v.Safe {
			return Outcome{
				Text:     text,
				Verdict:  Verdict{Safe: true, Score: v.Score},
				Attempts: attempt,
				Chosen:   attempt,
			}
		}

		g.logger.Info("candidate rejected by compliance gate",
			"attempt", attempt,
			"score", v.Score,
			"violations", len(v.Violations))

		if !haveBest || v.Score > best.Verdict.Score {
			best = Outcome{Text: text, Verdict: v, Chosen: attempt}
			haveBest = true
		}

		if attempt >= g.cfg.MaxAttempts || regenerate == nil {
			break
		}
		next, err := regenerate(ctx, attempt+1)
		if err != nil {
			g.logger.Warn("regeneration stopped", "attempt", attempt+1, "error", err.Error())
			break
		}
		attempt++
		text = next
	}

	best.Attempts = attempt
	best.Flagged = true
	return best
}

// screen calls the screener under the gate timeout and normalizes the verdict.
// A screener failure or timeout is treated as unsafe with a zero score.
func (g *Gate) screen(ctx context.Context, text string) Verdict {
	if g.screener == nil {
		return Verdict{Safe: true, Score: 1}
	}

	v, err := util.CallWithTimeout(ctx, "screening", g.cfg.Timeout, func(ctx context.Context) (Verdict, error) {
		return g.screener.Screen(ctx, text)
	})
	if err != nil {
		g.logger.Warn("screening unavailable", "error", err.Error())
		return unavailable()
	}

	v.Score = clamp01(v.Score)
	v.Safe = v.Safe && v.Score >= g.cfg.Threshold
	if !v.Safe && len(v.Violations) == 0 {
		v.Violations = []battle.Violation{{Category: CategoryBelowThreshold, Penalty: 1 - v.Score}}
	}
	return v
}

func unavailable() Verdict {
	return Verdict{
		Safe:       false,
		Score:      0,
		Violations: []battle.Violation{{Category: CategoryScreeningUnavailable, Penalty: 1}},
	}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
