package land

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackpr/stackpr/internal/common"
	"github.com/stackpr/stackpr/internal/gh"
	"github.com/stackpr/stackpr/internal/model"
	"github.com/stackpr/stackpr/internal/stack"
	"github.com/stackpr/stackpr/internal/ui"
)

// Command merges the bottom of the stack into the mainline
type Command struct {
	// Flags
	All    bool // Land the whole stack bottom-up instead of just the bottom PR
	Remote string
	Base   string
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "land",
		Short: "Merge the bottom PR(s) into the mainline",
		Long: `Land the stack bottom-up: retarget the bottom PR onto the mainline,
squash-merge it, delete its head branch, and retire it from tracking.

The stack must be fully synced first (run 'stackpr submit'). By default only
the bottom PR lands; --all lands every PR in order. After landing, rebase
your branch onto the updated mainline and run 'stackpr submit' to relink
the remaining PRs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&c.All, "all", false, "Land the entire stack bottom-up")
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
	if !res.Plan.IsNoOp() {
		return fmt.Errorf("stack out of sync - run 'stackpr submit' first")
	}

	if err := engine.Store.Lock(); err != nil {
		return err
	}
	defer engine.Store.Unlock()

	entries := res.Entries
	landed := 0
	for _, record := range res.Records {
		entry, ok := entries[record.Identity]
		if !ok {
			return fmt.Errorf("commit %s is not tracked; run 'stackpr submit' first", record.Hash)
		}

		if err := c.landEntry(engine, record, entry); err != nil {
			if stack.IsConflict(err) && landed > 0 {
				ui.Warningf("Landed %d PR(s) before hitting a conflict; resolve it and re-run.", landed)
			}
			return err
		}

		delete(entries, entry.Identity)
		if err := engine.Store.Save(entries); err != nil {
			return err
		}
		landed++

		if !c.All {
			break
		}
	}

	// Prune remote-tracking refs of the deleted head branches; cleanup only.
	_ = engine.Git.Fetch(engine.Remote)

	ui.Successf("Landed %d PR(s) into %s", landed, engine.Base)
	ui.Info("Rebase onto the updated " + engine.Base + " and run 'stackpr submit' to relink the remaining PRs.")
	return nil
}

// landEntry retargets one PR onto the mainline, squash-merges it, and
// cleans up its head branch.
func (c *Command) landEntry(engine *common.Engine, record model.CommitRecord, entry *model.StackEntry) error {
	ui.Infof("Landing PR #%d: %s", entry.PRNumber, record.Title)

	pr, err := engine.GH.GetPR(entry.PRNumber)
	if err != nil {
		return err
	}
	switch {
	case pr.State == "merged":
		ui.Warningf("PR #%d was already merged on GitHub; retiring it from tracking.", entry.PRNumber)
		_ = engine.Git.DeleteRemoteBranch(engine.Remote, entry.HeadBranch)
		return nil
	case !pr.IsOpen():
		return &gh.ConflictError{
			PRNumber: entry.PRNumber,
			Reason:   "PR was closed on GitHub; re-open it or retire it with 'stackpr abandon'",
		}
	}

	if entry.BaseBranch != engine.Base {
		if err := engine.GH.UpdatePRBase(entry.PRNumber, engine.Base); err != nil {
			return fmt.Errorf("failed to retarget PR #%d onto %s: %w", entry.PRNumber, engine.Base, err)
		}
	}

	subject := fmt.Sprintf("%s (#%d)", record.Title, entry.PRNumber)
	if err := engine.GH.MergePR(entry.PRNumber, subject, record.Body); err != nil {
		return fmt.Errorf("failed to merge PR #%d: %w", entry.PRNumber, err)
	}

	// The merge may have deleted the head branch already; cleanup is
	// best-effort.
	_ = engine.Git.DeleteRemoteBranch(engine.Remote, entry.HeadBranch)
	return nil
}
