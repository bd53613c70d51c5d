package submit

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackpr/stackpr/internal/common"
	"github.com/stackpr/stackpr/internal/stack"
	"github.com/stackpr/stackpr/internal/ui"
)

// Command synchronizes the local stack with GitHub
type Command struct {
	// Flags
	DryRun bool   // Show the plan without executing it
	Draft  bool   // Create new PRs as drafts
	Remote string // Remote name override
	Base   string // Mainline branch override
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Sync the stack to GitHub",
		Long: `Synchronize the local commit stack with GitHub.

Reads the commits between the base branch and HEAD, tags untagged commits
with a Stack-Id trailer, diffs the stack against the tracked PRs, and
applies the minimal set of remote changes: creating PRs for new commits,
force-pushing changed ones, relinking bases after reorders, and closing
PRs whose commits were dropped or squashed away.

Safe to re-run: a second submit with no local changes does nothing, and a
run interrupted partway resumes from what actually completed.

Example:
  stackpr submit            # sync the stack
  stackpr submit --dry-run  # show what would happen
  stackpr submit --draft    # create new PRs as drafts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&c.DryRun, "dry-run", false, "Show the plan without executing it")
	cmd.Flags().BoolVar(&c.Draft, "draft", false, "Create new PRs as drafts")
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
	engine.Executor.Draft = c.Draft

	hasChanges, err := engine.Git.HasUncommittedChanges()
	if err != nil {
		return err
	}
	if hasChanges {
		return fmt.Errorf("you have uncommitted changes; commit or stash them before submitting")
	}

	if c.DryRun {
		res, err := engine.Sync.Sync(ctx, stack.SyncOptions{DryRun: true})
		if err != nil {
			return err
		}
		ui.Info("Dry run mode - no changes will be made")
		ui.Print(ui.RenderPlan(res.Plan))
		return nil
	}

	res, err := engine.Sync.Sync(ctx, stack.SyncOptions{})
	if res != nil {
		renderApplied(res)
	}
	if err != nil {
		if res != nil && res.Retagged {
			ui.Warning("Commit messages were already tagged with stack identities; the tags are durable and a re-run will pick up from here.")
		}
		if stack.IsConflict(err) {
			ui.Warning("A PR changed on GitHub outside this tool. Resolve it with 'stackpr land' or 'stackpr abandon', then re-run submit.")
		}
		return err
	}

	return nil
}

func renderApplied(res *stack.SyncResult) {
	total := len(res.Plan.Steps)
	var created, pushed, retargeted, edited, closed int

	for i, applied := range res.Applied {
		p := ui.StepProgress{
			Position: i + 1,
			Total:    total,
			Reason:   applied.Step.Reason,
		}
		if applied.Step.Record != nil {
			p.Title = applied.Step.Record.Title
		}
		if applied.Entry != nil {
			p.PRNumber = applied.Entry.PRNumber
			p.Title = applied.Entry.Title
			if applied.Step.Record != nil {
				p.Title = applied.Step.Record.Title
			}
		}

		switch applied.Step.Kind {
		case stack.StepCreatePR:
			created++
			p.Action = "created"
			if applied.Entry != nil {
				p.URL = applied.Entry.URL
			}
			if !applied.Created {
				p.Reason = "adopted existing PR"
			}
		case stack.StepUpdateHead:
			pushed++
			p.Action = "pushed"
		case stack.StepRetargetBase:
			retargeted++
			p.Action = "retargeted"
		case stack.StepUpdateMetadata:
			edited++
			p.Action = "edited"
		case stack.StepCloseOrphan:
			closed++
			p.Action = "closed"
		default:
			continue
		}
		ui.Print(ui.RenderStepProgress(p))
	}

	ui.Print(ui.RenderSyncSummary(created, pushed, retargeted, edited, closed))
}
