package compliance

import (
	"context"
	"strings"
	"unicode"

	"github.com/Iron-Ham/cypher/internal/battle"
)

// PatternScreener screens text against compiled rule categories.
// It is safe for concurrent use.
type PatternScreener struct {
	categories []compiledCategory
	threshold  float64
}

// NewPatternScreener compiles rf. Text is safe when no category fires and
// the score is at least threshold.
func NewPatternScreener(rf *RuleFile, threshold float64) (*PatternScreener, error) {
	if rf == nil {
		rf = DefaultRules()
	}
	categories, err := compile(rf)
	if err != nil {
		return nil, err
	}
	return &PatternScreener{categories: categories, threshold: threshold}, nil
}

// Screen implements Screener.
func (s *PatternScreener) Screen(ctx context.Context, text string) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}

	words := splitWords(text)
	var violations []battle.Violation
	for _, c := range s.categories {
		if match, ok := c.match(text, words); ok {
			violations = append(violations, battle.Violation{
				Category: c.name,
				Match:    match,
				Penalty:  c.penalty,
			})
		}
	}

	score := Score(violations)
	return Verdict{
		Safe:       len(violations) == 0 && score >= s.threshold,
		Score:      score,
		Violations: violations,
	}, nil
}

// match returns the first matching fragment for the category.
func (c compiledCategory) match(text string, words []string) (string, bool) {
	for _, w := range words {
		if _, ok := c.terms[w]; ok {
			return w, true
		}
	}
	for _, re := range c.patterns {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	for _, g := range c.globs {
		for _, w := range words {
			if g.Match(w) {
				return w, true
			}
		}
	}
	return "", false
}

// splitWords lowercases text and splits it on anything that is not a letter,
// digit, apostrophe or asterisk.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '*'
	})
}
