package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin <command...>",
	Short: "Run an operator command against the configured store",
	Long: `Runs one operator command, the same ones accepted by POST /v1/admin/commands.
Try "salesdesk admin help".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.openStore(cmd.Context()); err != nil {
			return err
		}
		defer a.Close()

		out, err := a.admin.Execute(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
}
