package status

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/stackpr/stackpr/internal/common"
	"github.com/stackpr/stackpr/internal/stack"
	"github.com/stackpr/stackpr/internal/ui"
)

// Command shows the stack and the pending sync plan without executing it
type Command struct {
	// Flags
	Remote string
	Base   string
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"view"},
		Short:   "Show the stack and pending changes",
		Long: `Show the current stack: each commit, its tracked PR, and what a
submit would change. Never tags commits, pushes, or calls GitHub.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&c.Remote, "remote", "", "Remote to push to (default: stackpr.remote or origin)")
	cmd.Flags().StringVar(&c.Base, "base", "", "Mainline branch (default: stackpr.base or main)")

	parent.AddCommand(cmd)
}

// Run executes the command
func (c *Command) Run(ctx context.Context) error {
	engine, err := common.NewEngine(c.Remote, c.Base)
	if err != nil {
		return err
	}

	res, err := engine.Sync.Sync(ctx, stack.SyncOptions{DryRun: true})
	if err != nil {
		return err
	}

	ui.Header("Stack on " + engine.Branch + " (base: " + engine.Base + ")")
	ui.Print(ui.RenderStack(res.Records, res.Entries))

	ui.Header("Pending")
	ui.Print(ui.RenderPlan(res.Plan))
	return nil
}
