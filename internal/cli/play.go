package cli

import (
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"kora-games/internal/catalog"
	"kora-games/internal/tui"
)

// NewPlayCmd plays one game in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		seed           int64
		installationID string
	)
	cmd := &cobra.Command{
		Use:   "play <game-id>",
		Short: "Play a game in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := loadDeps(ctx, *configPath)
			if err != nil {
				return err
			}
			defer d.Close()

			game, err := d.catalogRepository().GetGame(ctx, args[0])
			if err != nil {
				return fmt.Errorf("game %q: %w", args[0], err)
			}
			if seed == 0 {
				if seed, err = catalog.NewSeed(); err != nil {
					return err
				}
			}

			// The terminal belongs to the TUI while it runs.
			quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
			points, done, err := tui.Play(catalog.Shuffled(game, seed), quiet, tea.WithAltScreen())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !done {
				fmt.Fprintln(out, "Game left unfinished.")
				return nil
			}
			fmt.Fprintf(out, "%s: %d points (seed %d)\n", game.Title, points, seed)

			if installationID == "" || game.Hub != catalog.EmotionGamesHub {
				return nil
			}
			rec, badges, err := d.tracker().Record(ctx, installationID, game.ID, points)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Total %d points, streak %d\n", rec.TotalPoints, rec.Streak)
			for _, b := range badges {
				fmt.Fprintf(out, "New badge: %s\n", b)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "option shuffle seed (0 picks one)")
	cmd.Flags().StringVar(&installationID, "installation", "", "record hub progress for this installation")
	return cmd
}
