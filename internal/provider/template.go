package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/Iron-Ham/cypher/internal/battle"
)

// FallbackVerse is the deterministic verse used when generation fails or
// times out. It depends only on the participant name and the topic.
func FallbackVerse(name, topic string) string {
	return fmt.Sprintf("%s on the mic, the signal dropped mid-flight,\n"+
		"but %s is still the topic and I'm still here tonight.", name, topic)
}

// TemplateGenerator produces verses offline from fixed line templates.
// Every template line references at least one argument by index.
// Output is deterministic for a given prompt, which makes it useful for
// demos and tests.
type TemplateGenerator struct{}

var templateLines = []string{
	"Talkin' %[1]s, I was born for this stage,",
	"%[2]s step up but you're stuck on the same page,",
	"Every bar that I drop got %[1]s in the frame,",
	"Round %[3]d and the crowd still chanting my name,",
	"%[2]s brought a spark, I brought the whole flame,",
	"When it comes to %[1]s I'm rewriting the game,",
	"Keep it clean on %[1]s, keep it tight on the beat,",
	"%[2]s, take a seat, this is round %[3]d heat.",
}

// Name identifies the binding in health output and logs.
func (TemplateGenerator) Name() string { return "template" }

// Generate implements the generation collaborator.
func (TemplateGenerator) Generate(ctx context.Context, p battle.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	bars := p.Bars
	if bars <= 0 {
		bars = 4
	}

	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%d|%d", p.Topic, p.Speaker.ID, p.TurnIndex, p.Attempt)
	offset := int(h.Sum32() % uint32(len(templateLines)))

	lines := make([]string, 0, bars)
	for i := range bars {
		tmpl := templateLines[(offset+i)%len(templateLines)]
		lines = append(lines, fmt.Sprintf(tmpl, p.Topic, p.Opponent.DisplayName, p.Round))
	}
	return strings.Join(lines, "\n"), nil
}

// SilentSynthesizer is the audio binding used when synthesis is disabled.
// It never produces audio.
type SilentSynthesizer struct{}

// Name identifies the binding in health output and logs.
func (SilentSynthesizer) Name() string { return "none" }

// Synthesize implements the audio collaborator.
func (SilentSynthesizer) Synthesize(ctx context.Context, sessionID string, turnIndex int, text string) (string, error) {
	return "", nil
}
