package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank the catalog against a query and print the prompt context",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		res := a.ranker.Search(strings.Join(args, " "), searchLimit)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "strategy: %s  keywords: %s  matched: %d\n\n",
			res.Strategy, strings.Join(res.Keywords, ", "), res.TotalMatched)
		fmt.Fprintln(out, a.formatter.Context(res))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of products")
	rootCmd.AddCommand(searchCmd)
}
