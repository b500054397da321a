package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// newRootCmd builds the command tree. Flags default to the values in config.
func newRootCmd(config *Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "MicroTutor",
		Short: "GA4 micro-lesson tutor",
		Long: `MicroTutor teaches Google Analytics 4 through short structured lessons.

Each tutor turn is a card: lesson text, an optional example, comparison table,
quiz, practice task with answer chips, and an optional link into a simulated
GA4 interface.

Quick Start:
  MicroTutor chat                 # interactive session in the terminal
  MicroTutor serve                # JSON API on $API_ADDR
  MicroTutor modules              # list the learning path
  MicroTutor screen reports realtime`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initializeLogger(parseLogLevel(config.LogLevel))
		},
	}
	bindFlags(root.PersistentFlags(), config)

	root.AddCommand(
		newServeCmd(config),
		newChatCmd(config),
		newModulesCmd(config),
		newScreenCmd(),
	)
	return root
}
