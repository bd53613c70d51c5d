package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackpr/stackpr/cmd/abandon"
	"github.com/stackpr/stackpr/cmd/land"
	"github.com/stackpr/stackpr/cmd/status"
	"github.com/stackpr/stackpr/cmd/submit"
	"github.com/stackpr/stackpr/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stackpr",
	Short: "Stacked pull requests for GitHub",
	Long: `stackpr keeps a stack of dependent commits in sync with GitHub:
each commit maps to one pull request, base-chained so PR n targets the
branch of PR n-1 instead of the mainline.

Commits are identified by a Stack-Id trailer that survives amends, rebases,
and reorders, so editing the stack locally relinks the matching PRs instead
of churning new ones.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	commands := []Command{
		&submit.Command{},
		&status.Command{},
		&land.Command{},
		&abandon.Command{},
	}

	for _, cmd := range commands {
		cmd.Register(rootCmd)
	}
}
