package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kora-games/internal/domain"
)

// NewGamesCmd lists the catalog.
func NewGamesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List available games",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.Close()
			games, err := d.catalogRepository().ListGames(cmd.Context())
			if err != nil {
				return err
			}
			return printGames(cmd.OutOrStdout(), games)
		},
	}
}

func printGames(out io.Writer, games []domain.GameSummary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tRULE\tSCENARIOS\tHUB")
	for _, g := range games {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", g.ID, g.Title, g.Kind, g.Scenarios, g.Hub)
	}
	return w.Flush()
}
