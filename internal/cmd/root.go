package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for aish
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aish",
		Short: "Natural-language shell task agent",
		Long: `aish turns a natural-language task into shell commands and runs
them, locally or over SSH.

It asks a language model to split the task into phases, generates the
commands for each phase, and executes them behind a safety gate: only a
small set of read-only commands run without confirmation, everything
else is shown to you first. Failed commands are classified and retried
automatically where that is safe.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewHostsCommand())

	return cmd
}
