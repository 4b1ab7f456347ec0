package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/config"
	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/logging"
	"github.com/Iron-Ham/cypher/internal/orchestrator"
	"github.com/Iron-Ham/cypher/internal/tui"
	"github.com/Iron-Ham/cypher/internal/tui/styles"
)

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Stage one battle in the terminal",
	Long: `Stage one battle and print it as it happens.

Interrupting with Ctrl-C ends the battle early; the result is then taken
from the votes cast so far. With --tui the battle is shown full screen and
the keys a and b cast your vote for the current round.`,
	Example: `  cypher run "coffee vs tea"
  cypher run "cats vs dogs" --turns 2 --order alternating --fast
  cypher run "vim vs emacs" --tui`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBattle,
}

func init() {
	runCmd.Flags().Int("turns", 0, "turns per participant (overrides battle.turns_per_participant)")
	runCmd.Flags().String("order", "", "turn order: fixed or alternating")
	runCmd.Flags().String("style", "", "style: battle, answer or freestyle")
	runCmd.Flags().Bool("fast", false, "skip pacing delays between turns and rounds")
	runCmd.Flags().Bool("tui", false, "full-screen view with keyboard voting")
}

func runBattle(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if fast, _ := cmd.Flags().GetBool("fast"); fast {
		cfg.Battle.TurnIntervalMs = 0
		cfg.Battle.RoundIntervalMs = 0
	}
	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}

	// The transcript owns stdout, so logs only go to a file when configured.
	logger := logging.NopLogger()
	if cfg.Logging.Dir != "" {
		if logger, err = logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level); err != nil {
			return err
		}
		defer func() { _ = logger.Close() }()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx, cfg, creds, logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	req := orchestrator.CreateRequest{Topic: strings.Join(args, " ")}
	req.Format.TurnsPerParticipant, _ = cmd.Flags().GetInt("turns")
	order, _ := cmd.Flags().GetString("order")
	req.Format.TurnOrder = battle.TurnOrder(order)
	style, _ := cmd.Flags().GetString("style")
	req.Format.Style = battle.Style(style)

	palette, err := styles.ResolvePalette(cfg.UI.Theme)
	if err != nil {
		return err
	}
	theme := styles.New(palette)

	if interactive, _ := cmd.Flags().GetBool("tui"); interactive {
		return watchBattle(ctx, eng.registry, req, theme, cmd.OutOrStdout())
	}
	_, err = playBattle(ctx, eng.registry, req, newRenderer(cmd.OutOrStdout(), theme))
	return err
}

// playBattle creates and starts a session, renders its events until
// session_end and returns the final snapshot. Cancelling ctx ends the
// session early.
func playBattle(ctx context.Context, registry *orchestrator.Registry, req orchestrator.CreateRequest, r *renderer) (*battle.Session, error) {
	created, err := registry.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	events, cancel, err := registry.Subscribe(created.ID, 0)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := registry.Start(ctx, created.ID); err != nil {
		return nil, err
	}

	interrupted := ctx.Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				registry.Wait()
				return registry.Get(context.WithoutCancel(ctx), created.ID)
			}
			r.Render(ev)
		case <-interrupted:
			interrupted = nil
			if err := registry.End(context.WithoutCancel(ctx), created.ID); err != nil {
				return nil, err
			}
		}
	}
}

// watchBattle runs a session under the full-screen view. The session is ended
// when the view exits early, and the result is printed after the terminal is
// restored.
func watchBattle(ctx context.Context, registry *orchestrator.Registry, req orchestrator.CreateRequest, theme *styles.Styles, out io.Writer) error {
	created, err := registry.Create(ctx, req)
	if err != nil {
		return err
	}
	events, cancel, err := registry.Subscribe(created.ID, 0)
	if err != nil {
		return err
	}
	defer cancel()

	if err := registry.Start(ctx, created.ID); err != nil {
		return err
	}

	voter := "terminal-" + uuid.NewString()
	app := tui.New(tui.NewModel(registry, created.ID, voter, events, theme))
	result, runErr := app.Run(ctx)

	if err := registry.End(context.WithoutCancel(ctx), created.ID); err != nil {
		return err
	}
	registry.Wait()
	if runErr != nil {
		return runErr
	}

	final, err := registry.Get(context.WithoutCancel(ctx), created.ID)
	if err != nil {
		return err
	}
	if result == nil && final.Result != nil {
		result = &event.SessionEnd{
			Winner:    final.Result.Winner,
			Scores:    final.Result.Scores,
			Rationale: final.Result.Rationale,
			Source:    final.Result.Source,
			Tally:     final.Tally,
			Degraded:  final.Degraded,
			Reason:    final.EndReason,
		}
	}
	if result == nil {
		return nil
	}
	r := newRenderer(out, theme)
	r.Format(event.Event{Payload: event.SessionStart{Participants: final.Participants}})
	_, _ = fmt.Fprintln(out, r.Result(*result))
	return nil
}
