package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for conductor
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conductor",
		Short: "Parallel multi-agent orchestration engine",
		Long: `Conductor runs a DB-backed parallel execution engine that plans,
worktrees, and dispatches Claude Code CLI agents across a dependency
graph of tasks, merging each epic's work back into the main checkout.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewEngineCommand())

	return cmd
}
