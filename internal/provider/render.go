package provider

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Iron-Ham/cypher/internal/battle"
)

// systemPrompt frames the generation model as one MC.
const systemPrompt = `You are %s, an MC in a live, family-friendly rap battle.
%s
Write only the verse: no titles, no stage directions, no commentary.
Never use slurs, threats, profanity or personal information.`

var styleDirections = map[battle.Style]string{
	battle.StyleBattle:    "Go at your opponent with clever wordplay and punchlines, but keep it playful.",
	battle.StyleAnswer:    "Answer your opponent's last verse directly: flip their lines and rebut their points.",
	battle.StyleFreestyle: "Freestyle on the topic with vivid imagery; you do not need to address your opponent.",
}

var turnTemplate = template.Must(template.New("turn").Parse(
	`Topic: {{.Topic}}
Round {{.Round}} of {{.Rounds}}. You are {{.Speaker.DisplayName}}; your opponent is {{.Opponent.DisplayName}}.
{{- if .History}}

Battle so far:
{{- range .History}}
[{{.Side}}] {{.Content.Text}}
{{- end}}
{{- end}}
{{- if .Retry}}

Your previous attempt was rejected by the content filter. Keep it clean this time.
{{- end}}

Write exactly {{.Bars}} bars, one per line.`))

// SystemPrompt returns the system instructions for the speaking participant.
func SystemPrompt(p battle.Prompt) string {
	direction, ok := styleDirections[p.Style]
	if !ok {
		direction = styleDirections[battle.StyleBattle]
	}
	if persona := strings.TrimSpace(p.Speaker.Profile.Persona); persona != "" {
		direction = persona + "\n" + direction
	}
	return fmt.Sprintf(systemPrompt, p.Speaker.DisplayName, direction)
}

// TurnPrompt renders the user message for one turn, including the full
// battle history so far.
func TurnPrompt(p battle.Prompt) (string, error) {
	data := struct {
		battle.Prompt
		Retry bool
	}{Prompt: p, Retry: p.Attempt > 1}

	var buf bytes.Buffer
	if err := turnTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render turn prompt: %w", err)
	}
	return buf.String(), nil
}

// judgeSystemPrompt frames the adjudication model.
const judgeSystemPrompt = `You are the judge of a rap battle. Score each MC from 0 to 10 on wordplay, flow, relevance to the topic and how well they answered their opponent.
Respond with ONLY a JSON object of the form:
{"winner": "A" | "B" | "tie", "scores": {"A": <number>, "B": <number>}, "rationale": "<one or two sentences>"}`

// JudgePrompt renders the adjudication request for a transcript.
func JudgePrompt(t battle.Transcript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", t.Topic)
	writeVerses(&b, "A", t.Participants.A.DisplayName, t.VersesA)
	writeVerses(&b, "B", t.Participants.B.DisplayName, t.VersesB)
	b.WriteString("Full battle in order:\n")
	for _, turn := range t.Turns {
		fmt.Fprintf(&b, "%d. [%s] %s\n", turn.Index, turn.Side, turn.Content.Text)
	}
	return b.String()
}

func writeVerses(b *strings.Builder, side, name string, verses []string) {
	fmt.Fprintf(b, "MC %s (%s):\n", side, name)
	for i, v := range verses {
		fmt.Fprintf(b, "Verse %d:\n%s\n", i+1, v)
	}
	b.WriteString("\n")
}

// cleanVerse trims model output and strips wrapping quotes or code fences.
func cleanVerse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.Trim(strings.TrimSpace(s), "\"'`")
}
