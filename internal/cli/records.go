package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"kora-games/internal/community"
)

type recordChecker func(data []byte) (int, error)

func checkerFor[T community.Record]() recordChecker {
	return func(data []byte) (int, error) {
		recs, err := community.DecodeAll[T](data)
		return len(recs), err
	}
}

var recordKinds = map[string]recordChecker{
	"post":    checkerFor[community.Post](),
	"comment": checkerFor[community.Comment](),
	"profile": checkerFor[community.Profile](),
	"chat":    checkerFor[community.ChatMessage](),
}

func recordKindNames() []string {
	names := make([]string, 0, len(recordKinds))
	for name := range recordKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRecordsCmd validates exported community documents before they are imported.
func NewRecordsCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "records FILE...",
		Short: "Validate JSON arrays of community records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			check, ok := recordKinds[kind]
			if !ok {
				return fmt.Errorf("unknown record kind %q (want one of %s)", kind, strings.Join(recordKindNames(), ", "))
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				n, err := check(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s records ok\n", path, n, kind)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "post", "record kind: "+strings.Join(recordKindNames(), ", "))
	return cmd
}
