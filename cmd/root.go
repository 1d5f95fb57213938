package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nextlive",
	Short: "NextLive - an AI developer assistant for your project",
	Long: `NextLive is an AI developer assistant that converses about your
project, reads and edits source files, runs shell commands and generates
images, driven by a Gemini model.

Running nextlive without arguments starts an interactive chat session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
