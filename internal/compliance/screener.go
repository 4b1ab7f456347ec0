package compliance

import (
	"context"
	"math"

	"github.com/Iron-Ham/cypher/internal/battle"
)

// Verdict is the outcome of screening one piece of text.
type Verdict struct {
	Safe       bool               `json:"safe"`
	Score      float64            `json:"score"`
	Violations []battle.Violation `json:"violations,omitempty"`
}

// Screener detects disallowed content categories in generated text.
type Screener interface {
	Screen(ctx context.Context, text string) (Verdict, error)
}

// ScreenerFunc adapts a function to the Screener interface.
type ScreenerFunc func(ctx context.Context, text string) (Verdict, error)

// Screen calls f.
func (f ScreenerFunc) Screen(ctx context.Context, text string) (Verdict, error) {
	return f(ctx, text)
}

// Score converts violations into a compliance score in [0, 1].
// Penalties add across categories and the total is clamped at 1.
func Score(violations []battle.Violation) float64 {
	total := 0.0
	for _, v := range violations {
		total += v.Penalty
	}
	total = math.Min(1, total)
	return math.Max(0, 1-total)
}
