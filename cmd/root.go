package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "p-streamrec",
	Short: "Dashboard sync agent: cached polling, card reconciliation, auto-record",
	Long:  `Synchronization agent for the recorder dashboard. Commands: agent, command.`,
	RunE:  runAgent, // default: run agent (same as "p-streamrec agent")
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
