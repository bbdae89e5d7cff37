package cmd

import (
	"context"

	"github.com/spf13/cobra"

	logx "github.com/chative-salesdesk/server/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "salesdesk",
	Short: "Conversational sales desk for a product catalog",
	Long: `salesdesk answers inbound chat messages from a product catalog, classifies each
message and hands ready buyers to human sales agents in a fair rotation.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// bootstrap loads the configuration, initialises logging and wires the components
// every subcommand shares.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return nil, err
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})
	return newApp(ctx, cfg)
}
