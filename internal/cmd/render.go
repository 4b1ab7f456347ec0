package cmd

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/tui"
	"github.com/Iron-Ham/cypher/internal/tui/styles"
)

// renderer prints session events as a readable battle transcript. Colors and
// borders are only used when the output is a terminal.
type renderer struct {
	w     io.Writer
	color bool
	*tui.Transcript
}

func newRenderer(w io.Writer, s *styles.Styles) *renderer {
	width := tui.DefaultWidth
	color := false
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		color = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 20 {
			width = cols
		}
	}
	return &renderer{w: w, color: color, Transcript: tui.NewTranscript(s, color, width)}
}

// Render prints one event.
func (r *renderer) Render(ev event.Event) {
	if block, ok := r.Format(ev); ok {
		_, _ = fmt.Fprintln(r.w, block)
	}
}
