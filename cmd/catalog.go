package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chative-salesdesk/server/internal/agent/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog maintenance",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Load a catalog file and print what would be served",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		path := a.cfg.Catalog.Path
		if len(args) == 1 {
			path = args[0]
		}
		if err := a.catalog.Load(cmd.Context(), catalog.FileSource{Path: path}); err != nil {
			return fmt.Errorf("catalog %s: %w", path, err)
		}

		st := a.catalog.Stats()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "source: %s\nproducts: %d (%d available)\n", st.Source, st.Items, st.Available)
		fmt.Fprintf(out, "categories (%d): %s\n", len(st.Categories), strings.Join(st.Categories, ", "))
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogCheckCmd)
	rootCmd.AddCommand(catalogCmd)
}
