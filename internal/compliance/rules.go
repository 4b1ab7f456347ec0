package compliance

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk YAML layout of screening rules.
type RuleFile struct {
	Version    string     `yaml:"version"`
	Categories []Category `yaml:"categories"`
}

// Category is one class of disallowed content.
type Category struct {
	// Name is reported as the violation category (e.g. "profanity").
	Name string `yaml:"name"`
	// Penalty is subtracted from the score once when any matcher fires.
	Penalty float64 `yaml:"penalty"`
	// Terms match whole words, case-insensitively.
	Terms []string `yaml:"terms,omitempty"`
	// Patterns are regular expressions matched against the whole text.
	Patterns []string `yaml:"patterns,omitempty"`
	// Globs are shell-style patterns matched against each lowercased word.
	Globs []string `yaml:"globs,omitempty"`
}

// compiledCategory holds the matchers built from a Category.
type compiledCategory struct {
	name     string
	penalty  float64
	terms    map[string]struct{}
	patterns []*regexp.Regexp
	globs    []glob.Glob
}

// LoadRules reads and parses a YAML rule file.
func LoadRules(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses YAML rule data.
func ParseRules(data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if len(rf.Categories) == 0 {
		return nil, fmt.Errorf("rules define no categories")
	}
	for i, c := range rf.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
		if c.Penalty <= 0 || c.Penalty > 1 {
			return nil, fmt.Errorf("category %q penalty must be in (0, 1], got %v", c.Name, c.Penalty)
		}
	}
	return &rf, nil
}

// DefaultRules returns the built-in rule set used when no rules file is configured.
func DefaultRules() *RuleFile {
	return &RuleFile{
		Version: "1",
		Categories: []Category{
			{
				Name:    "profanity",
				Penalty: 0.2,
				Terms:   []string{"damn", "hell", "crap"},
				Globs:   []string{"f[u0]ck*", "sh[i1]t*"},
			},
			{
				Name:     "hate_speech",
				Penalty:  0.6,
				Patterns: []string{`(?i)\b(subhuman|vermin)\b`},
			},
			{
				Name:     "violence",
				Penalty:  0.4,
				Terms:    []string{"kill", "murder", "stab"},
				Patterns: []string{`(?i)\bshoot(ing)?\s+(you|him|her|them)\b`},
			},
			{
				Name:     "personal_info",
				Penalty:  0.5,
				Patterns: []string{`\b\d{3}[-. ]\d{3}[-. ]\d{4}\b`, `(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`},
			},
		},
	}
}

func compile(rf *RuleFile) ([]compiledCategory, error) {
	out := make([]compiledCategory, 0, len(rf.Categories))
	for _, c := range rf.Categories {
		cc := compiledCategory{
			name:    c.Name,
			penalty: c.Penalty,
			terms:   make(map[string]struct{}, len(c.Terms)),
		}
		for _, term := range c.Terms {
			cc.terms[strings.ToLower(term)] = struct{}{}
		}
		for _, p := range c.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("category %q: invalid pattern %q: %w", c.Name, p, err)
			}
			cc.patterns = append(cc.patterns, re)
		}
		for _, g := range c.Globs {
			compiled, err := glob.Compile(strings.ToLower(g))
			if err != nil {
				return nil, fmt.Errorf("category %q: invalid glob %q: %w", c.Name, g, err)
			}
			cc.globs = append(cc.globs, compiled)
		}
		out = append(out, cc)
	}
	return out, nil
}
