package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chative-salesdesk/server/internal/agent/model"
)

var (
	classifySender    string
	classifyName      string
	classifyExchanges int
)

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Show which routing outcome a message would get",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		c := a.classifier.Classify(strings.Join(args, " "), model.SenderContext{
			SenderID:       classifySender,
			DisplayName:    classifyName,
			PriorExchanges: classifyExchanges,
			ReceivedAt:     time.Now(),
		})

		out := cmd.OutOrStdout()
		if c.Outcome == model.OutcomeNone {
			fmt.Fprintln(out, "outcome: (none)")
			return nil
		}
		fmt.Fprintf(out, "outcome: %s\nrule: %s\n", c.Outcome, c.Rule)
		if c.Evidence != "" {
			fmt.Fprintf(out, "evidence: %s\n", c.Evidence)
		}
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifySender, "sender", "573001234567", "sender identifier")
	classifyCmd.Flags().StringVar(&classifyName, "name", "", "sender display name")
	classifyCmd.Flags().IntVar(&classifyExchanges, "exchanges", 0, "completed exchanges before this message")
	rootCmd.AddCommand(classifyCmd)
}
